// internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/artifacts"
	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/browser/cdp"
	"github.com/xkilldash9x/storefront-harness/internal/browser/pwdriver"
	"github.com/xkilldash9x/storefront-harness/internal/browser/roddriver"
	"github.com/xkilldash9x/storefront-harness/internal/config"
	"github.com/xkilldash9x/storefront-harness/internal/hostos"
)

// ComponentFactory builds the harness for a run. Commands depend on the
// interface so they can be tested without launching browsers.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

type concreteFactory struct{}

// NewComponentFactory returns the production factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Launchers returns one launcher per supported engine.
func Launchers(cfg config.Interface, logger *zap.Logger) map[browser.EngineKind]browser.Launcher {
	var cdpOpts []cdp.Option
	if b := cfg.Browser(); b.Locale != "" || b.Timezone != "" {
		cdpOpts = append(cdpOpts, cdp.WithPersona(cdp.Persona{Locale: b.Locale, Timezone: b.Timezone}))
	}
	return map[browser.EngineKind]browser.Launcher{
		browser.EngineChrome:  cdp.NewLauncher(logger, cdpOpts...),
		browser.EngineFirefox: pwdriver.NewLauncher(logger),
		browser.EngineEdge:    roddriver.NewLauncher(logger),
	}
}

// Sinks builds the screenshot destinations: always the local directory, plus
// the S3 bucket when enabled.
func Sinks(ctx context.Context, cfg config.ArtifactsConfig, logger *zap.Logger) (*artifacts.FileSink, browser.ArtifactSink, error) {
	files, err := artifacts.NewFileSink(cfg.Dir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize screenshot directory: %w", err)
	}
	if !cfg.S3.Enabled {
		return files, files, nil
	}
	bucket, err := artifacts.NewS3Sink(ctx, cfg.S3, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize S3 sink: %w", err)
	}
	return files, artifacts.NewMultiSink(logger, files, bucket), nil
}

// Create wires registry, factory, executor, recovery and harness from cfg.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	// 1. Session settings, read once.
	sessionCfg := SessionConfigFrom(cfg, logger)

	// 2. Artifact sinks.
	files, sink, err := Sinks(ctx, cfg.Artifacts(), logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Artifact sinks initialized.", zap.String("dir", files.Dir()), zap.Bool("s3", cfg.Artifacts().S3.Enabled))

	// 3. Browser core.
	killer := hostos.NewKiller(logger)
	registry := browser.NewSessionRegistry()
	factory := browser.NewSessionFactory(sessionCfg, Launchers(cfg, logger), logger)
	executor := browser.NewExecutor(logger, ExecutorOptions(cfg.Recovery())...)
	recovery := browser.NewRecoveryController(registry, factory, killer, logger, RecoveryOptions(cfg.Recovery())...)

	harness := browser.NewHarness(browser.HarnessDeps{
		Registry: registry,
		Factory:  factory,
		Executor: executor,
		Recovery: recovery,
		Sink:     sink,
	}, logger)

	logger.Info("Harness initialized.",
		zap.String("browser", string(sessionCfg.Engine)),
		zap.Bool("headless", sessionCfg.Headless),
		zap.Duration("explicit_wait", sessionCfg.ExplicitWait),
	)
	return NewComponents(harness, files, logger), nil
}

// internal/browser/browsertest/fixture.go
package browsertest

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/mocks"
)

// Fixture is a fully wired harness over mock launchers, killer and sink.
type Fixture struct {
	Config   browser.SessionConfig
	Launcher *mocks.MockLauncher
	Killer   *mocks.MockProcessKiller
	Sink     *mocks.MockArtifactSink

	Registry *browser.SessionRegistry
	Factory  *browser.SessionFactory
	Executor *browser.Executor
	Recovery *browser.RecoveryController
	Harness  *browser.Harness
}

// FastConfig keeps every wait short enough for unit tests.
func FastConfig() browser.SessionConfig {
	cfg := browser.DefaultSessionConfig()
	cfg.ImplicitWait = 0
	cfg.ExplicitWait = 300 * time.Millisecond
	cfg.PageLoadTimeout = time.Second
	return cfg
}

// NewFixture wires a harness whose chrome launcher is f.Launcher.
func NewFixture(t testing.TB, execOpts ...browser.ExecutorOption) *Fixture {
	t.Helper()
	return NewFixtureWithConfig(t, FastConfig(), execOpts...)
}

// NewFixtureWithConfig is NewFixture with an explicit session configuration.
func NewFixtureWithConfig(t testing.TB, cfg browser.SessionConfig, execOpts ...browser.ExecutorOption) *Fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	f := &Fixture{
		Config:   cfg,
		Launcher: new(mocks.MockLauncher),
		Killer:   new(mocks.MockProcessKiller),
		Sink:     new(mocks.MockArtifactSink),
		Registry: browser.NewSessionRegistry(),
	}
	f.Factory = browser.NewSessionFactory(f.Config, map[browser.EngineKind]browser.Launcher{
		browser.EngineChrome: f.Launcher,
	}, logger)
	f.Executor = browser.NewExecutor(logger, append([]browser.ExecutorOption{browser.WithPollInterval(10 * time.Millisecond)}, execOpts...)...)
	f.Recovery = browser.NewRecoveryController(f.Registry, f.Factory, f.Killer, logger,
		browser.WithSettleDelay(0),
		browser.WithQuitTimeout(200*time.Millisecond),
	)
	f.Harness = browser.NewHarness(browser.HarnessDeps{
		Registry: f.Registry,
		Factory:  f.Factory,
		Executor: f.Executor,
		Recovery: f.Recovery,
		Sink:     f.Sink,
	}, logger)
	return f
}

// Acquire registers a session backed by drv under a fresh execution context.
func (f *Fixture) Acquire(t testing.TB, drv *mocks.MockDriver) browser.ExecutionContext {
	t.Helper()
	f.ServeDrivers(drv)
	ec := browser.NewExecutionContext()
	if _, err := f.Harness.AcquireSession(context.Background(), ec, browser.EngineChrome); err != nil {
		t.Fatalf("AcquireSession: %v", err)
	}
	return ec
}

// ServeDrivers makes the launcher hand out drvs in order, one per launch.
func (f *Fixture) ServeDrivers(drvs ...*mocks.MockDriver) {
	for _, d := range drvs {
		f.Launcher.On("Launch", mock.Anything, mock.Anything).Return(d, nil).Once()
	}
}

// NewDriver returns a mock driver with the calls every session makes during
// creation and dialog dismissal already stubbed. Quit is left to the test.
func NewDriver(pid string) *mocks.MockDriver {
	d := new(mocks.MockDriver)
	d.On("ProcessID").Return(pid).Maybe()
	d.On("Maximize", mock.Anything).Return(nil).Maybe()
	d.On("DismissAlert", mock.Anything).Return(false, nil).Maybe()
	d.On("ExecuteScript", mock.Anything, mock.MatchedBy(IsOverlayScript), mock.Anything).
		Run(Result(0)).Return(nil).Maybe()
	return d
}

// IsOverlayScript matches the overlay removal script.
func IsOverlayScript(script string) bool {
	return strings.Contains(script, "querySelectorAll")
}

// Result returns a mock.Call.Run function that stores v into ExecuteScript's
// res argument.
func Result(v any) func(mock.Arguments) {
	return func(args mock.Arguments) {
		SetResult(args.Get(2), v)
	}
}

// SetResult assigns v to the value res points to.
func SetResult(res any, v any) {
	if res == nil {
		return
	}
	target := reflect.ValueOf(res).Elem()
	value := reflect.ValueOf(v)
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return
	}
	if value.Type() != target.Type() && value.Type().ConvertibleTo(target.Type()) {
		value = value.Convert(target.Type())
	}
	target.Set(value)
}

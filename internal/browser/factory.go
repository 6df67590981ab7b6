// internal/browser/factory.go
package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

// SessionFactory launches and configures sessions. Its configuration is
// captured once at construction and never re-read.
type SessionFactory struct {
	cfg       SessionConfig
	launchers map[EngineKind]Launcher
	logger    *zap.Logger
	// base is the unnamed logger session loggers derive from.
	base *zap.Logger
}

// NewSessionFactory creates a factory over the given per-engine launchers.
func NewSessionFactory(cfg SessionConfig, launchers map[EngineKind]Launcher, logger *zap.Logger) *SessionFactory {
	registered := make(map[EngineKind]Launcher, len(launchers))
	for k, l := range launchers {
		registered[k] = l
	}
	return &SessionFactory{
		cfg:       cfg,
		launchers: registered,
		logger:    logger.Named("session_factory"),
		base:      logger,
	}
}

// Config returns the configuration sessions are created with.
func (f *SessionFactory) Config() SessionConfig { return f.cfg }

// Create launches a session for engine and returns it in state Ready. On any
// failure the browser is shut down and a SessionCreationFailure is returned.
func (f *SessionFactory) Create(ctx context.Context, engine EngineKind) (*SessionHandle, error) {
	h := newSessionHandle(engine, f.cfg, f.base)
	if err := h.Transition(StateInitializing); err != nil {
		return nil, f.fail(engine, err)
	}

	// 1. Pick the launcher for the requested engine.
	launcher, ok := f.launchers[engine]
	if !ok || launcher == nil {
		return nil, f.fail(engine, fmt.Errorf("%w: %s", ErrUnknownEngine, engine))
	}

	// 2. Build the engine profile and launch within a bounded window.
	profile := BuildProfile(engine, f.cfg)
	launchCtx, cancel := context.WithTimeout(ctx, f.cfg.PageLoadTimeout+launchGrace)
	defer cancel()

	h.logger.Info("Launching browser session.", zap.Bool("headless", profile.Headless), zap.Strings("args", profile.Args))
	drv, err := launcher.Launch(launchCtx, profile)
	if err != nil {
		return nil, f.fail(engine, fmt.Errorf("failed to launch browser: %w", err))
	}
	h.driver = drv

	// 3. Apply the window size. Constrained hosts often cannot maximize.
	if err := drv.Maximize(launchCtx); err != nil {
		h.logger.Warn("Could not maximize window, falling back to fixed viewport.", zap.Error(err))
		if err := drv.SetViewport(launchCtx, profile.Viewport.Width, profile.Viewport.Height); err != nil {
			f.discard(h)
			return nil, f.fail(engine, fmt.Errorf("failed to set viewport: %w", err))
		}
	}

	if err := h.Transition(StateReady); err != nil {
		f.discard(h)
		return nil, f.fail(engine, err)
	}

	observability.SessionsCreated.WithLabelValues(string(engine), "success").Inc()
	h.logger.Info("Browser session ready.", zap.String("process_id", drv.ProcessID()))
	return h, nil
}

func (f *SessionFactory) fail(engine EngineKind, cause error) error {
	observability.SessionsCreated.WithLabelValues(string(engine), "failure").Inc()
	f.logger.Error("Session creation failed.", zap.String("engine", string(engine)), zap.Error(cause))
	return NewError(KindSessionCreationFailure, "create", "", cause)
}

// discard shuts down a half-configured browser. The handle was never registered.
func (f *SessionFactory) discard(h *SessionHandle) {
	if h.driver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), quitTimeoutFallback)
	defer cancel()
	if err := h.driver.Quit(ctx); err != nil {
		h.logger.Warn("Failed to quit browser after creation failure.", zap.Error(err))
	}
}

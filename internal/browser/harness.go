// internal/browser/harness.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const captureTimeout = 15 * time.Second

// InteractionKind selects what Interact does.
type InteractionKind int

const (
	InteractClick InteractionKind = iota
	InteractType
	InteractRead
)

func (k InteractionKind) String() string {
	switch k {
	case InteractClick:
		return "click"
	case InteractType:
		return "type"
	case InteractRead:
		return "read"
	}
	return fmt.Sprintf("interaction(%d)", int(k))
}

// Interaction is one request routed through Interact.
type Interaction struct {
	Kind InteractionKind
	Ref  ElementRef
	// Text is the payload for InteractType.
	Text string
	// Read tunes InteractRead.
	Read ReadOptions
}

// Harness is the surface page objects, step definitions and reporting
// listeners use. It owns the registry for one test suite.
type Harness struct {
	registry *SessionRegistry
	factory  *SessionFactory
	executor *Executor
	recovery *RecoveryController
	sink     ArtifactSink
	logger   *zap.Logger

	closeOnce sync.Once
}

// HarnessDeps bundles the collaborators of a Harness.
type HarnessDeps struct {
	Registry *SessionRegistry
	Factory  *SessionFactory
	Executor *Executor
	Recovery *RecoveryController
	// Sink receives failure screenshots. Nil disables capture.
	Sink ArtifactSink
}

// NewHarness assembles a Harness.
func NewHarness(deps HarnessDeps, logger *zap.Logger) *Harness {
	return &Harness{
		registry: deps.Registry,
		factory:  deps.Factory,
		executor: deps.Executor,
		recovery: deps.Recovery,
		sink:     deps.Sink,
		logger:   logger.Named("harness"),
	}
}

// Registry exposes the session registry, mostly for diagnostics.
func (h *Harness) Registry() *SessionRegistry { return h.registry }

// Recovery exposes the recovery controller.
func (h *Harness) Recovery() *RecoveryController { return h.recovery }

// DefaultEngine is the engine selected by configuration.
func (h *Harness) DefaultEngine() EngineKind { return h.factory.Config().Engine }

// AcquireSession creates a session for ec and registers it. A context that
// already owns a session is rejected before anything is launched.
func (h *Harness) AcquireSession(ctx context.Context, ec ExecutionContext, engine EngineKind) (*SessionHandle, error) {
	if h.registry.Has(ec) {
		return nil, NewError(KindNone, "acquire", ec, ErrAlreadyRegistered)
	}

	s, err := h.factory.Create(ctx, engine)
	if err != nil {
		return nil, err
	}
	if err := h.registry.Set(ec, s); err != nil {
		if termErr := h.recovery.TerminateSession(ctx, s); termErr != nil {
			h.logger.Warn("Failed to release session after registration conflict.", zap.Error(termErr))
		}
		return nil, err
	}

	h.recovery.DismissDialogs(ctx, s)
	h.logger.Debug("Session acquired.", zap.String("execution_context", string(ec)), zap.String("session_id", s.ID()))
	return s, nil
}

// ReleaseSession unregisters the session owned by ec and shuts its browser down.
func (h *Harness) ReleaseSession(ctx context.Context, ec ExecutionContext) error {
	s, ok := h.registry.Remove(ec)
	if !ok {
		return NewError(KindSessionNotInitialized, "release", ec, nil)
	}
	if err := h.recovery.TerminateSession(ctx, s); err != nil {
		return fmt.Errorf("failed to release session %s: %w", s.ID(), err)
	}
	return nil
}

// Session returns the session owned by ec.
func (h *Harness) Session(ec ExecutionContext) (*SessionHandle, error) {
	return h.registry.Get(ec)
}

// Interact routes one click, type or read to the session owned by ec. The
// returned string is only meaningful for reads.
func (h *Harness) Interact(ctx context.Context, ec ExecutionContext, in Interaction) (string, InteractionOutcome) {
	s, err := h.registry.Get(ec)
	if err != nil {
		return "", failed(KindSessionNotInitialized, err)
	}
	switch in.Kind {
	case InteractClick:
		return "", h.executor.Click(ctx, s, in.Ref)
	case InteractType:
		return "", h.executor.Type(ctx, s, in.Ref, in.Text)
	case InteractRead:
		return h.executor.Read(ctx, s, in.Ref, in.Read)
	}
	return "", failed(KindInteractionFailure, fmt.Errorf("unknown interaction kind %s", in.Kind))
}

// Navigate loads url and waits for the document to finish loading within the
// session's page-load timeout.
func (h *Harness) Navigate(ctx context.Context, ec ExecutionContext, url string) error {
	s, err := h.registry.Get(ec)
	if err != nil {
		return err
	}
	if !s.State().Interactive() {
		return NewError(KindSessionNotInitialized, "navigate", ec, fmt.Errorf("session is %s", s.State()))
	}
	s.markInUse()

	timeout := s.Config().PageLoadTimeout
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Driver().Navigate(navCtx, url); err != nil {
		return NewError(KindNavigationFailure, "navigate", ec, fmt.Errorf("failed to navigate to %s: %w", url, err))
	}
	out := Await(navCtx, WaitSpec{
		Timeout:   timeout,
		Predicate: PageLoadComplete(s.Driver()),
		Label:     "page load",
	})
	if !out.Succeeded {
		return NewError(KindNavigationFailure, "navigate", ec, out.Err)
	}
	return nil
}

// Evaluate runs a script in ec's session, bounded by the explicit wait, and
// decodes its result into res.
func (h *Harness) Evaluate(ctx context.Context, ec ExecutionContext, script string, res any) error {
	s, err := h.registry.Get(ec)
	if err != nil {
		return err
	}
	if !s.State().Interactive() {
		return NewError(KindSessionNotInitialized, "evaluate", ec, fmt.Errorf("session is %s", s.State()))
	}
	s.markInUse()

	evalCtx, cancel := context.WithTimeout(ctx, s.Config().ExplicitWait)
	defer cancel()
	if err := s.Driver().ExecuteScript(evalCtx, script, res); err != nil {
		return NewError(KindInteractionFailure, "evaluate", ec, err)
	}
	return nil
}

// DismissDialogs clears dialogs and overlays in ec's session and returns the
// number of overlays removed.
func (h *Harness) DismissDialogs(ctx context.Context, ec ExecutionContext) (int, error) {
	s, err := h.registry.Get(ec)
	if err != nil {
		return 0, err
	}
	return h.recovery.DismissDialogs(ctx, s), nil
}

// Recover first tries to repair the session owned by ec in place and, if
// that fails, replaces it. The returned handle is the one now registered.
func (h *Harness) Recover(ctx context.Context, ec ExecutionContext) (*SessionHandle, error) {
	s, err := h.registry.Get(ec)
	if err != nil {
		return nil, NewError(KindRecoveryFailure, "recover", ec, err)
	}
	if s.State().Interactive() {
		err := h.recovery.Repair(ctx, s)
		if err == nil {
			return s, nil
		}
		h.logger.Warn("Local repair failed, escalating to emergency recovery.", zap.String("execution_context", string(ec)), zap.Error(err))
	}
	return h.recovery.EmergencyRecover(ctx, ec)
}

// CaptureFailure stores a screenshot of ec's session under testName. It is
// best-effort: a failed capture is returned for logging only.
func (h *Harness) CaptureFailure(ctx context.Context, ec ExecutionContext, testName string) (string, error) {
	if h.sink == nil || !h.factory.Config().ScreenshotOnFailure {
		return "", nil
	}
	s, err := h.registry.Get(ec)
	if err != nil {
		return "", err
	}
	png, err := s.Driver().Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}
	location, err := h.sink.Store(ctx, testName+"_FAILED", png)
	if err != nil {
		return "", fmt.Errorf("failed to store screenshot: %w", err)
	}
	h.logger.Info("Failure screenshot captured.", zap.String("test", testName), zap.String("location", location))
	return location, nil
}

// EndTest finishes a test: on failure it captures a screenshot, then it
// releases the session. testErr is returned unchanged; capture problems are
// only logged and release problems surface only when the test passed.
func (h *Harness) EndTest(ctx context.Context, ec ExecutionContext, testName string, testErr error) error {
	cleanupCtx := Detach(ctx)
	if testErr != nil {
		captureCtx, cancel := context.WithTimeout(cleanupCtx, captureTimeout)
		if _, err := h.CaptureFailure(captureCtx, ec, testName); err != nil {
			h.logger.Warn("Failure screenshot not captured.", zap.String("test", testName), zap.Error(err))
		}
		cancel()
	}

	releaseErr := h.ReleaseSession(cleanupCtx, ec)
	if testErr != nil {
		if releaseErr != nil {
			h.logger.Warn("Session release failed after test failure.", zap.String("test", testName), zap.Error(releaseErr))
		}
		return testErr
	}
	return releaseErr
}

// ActiveSessions is the number of registered sessions.
func (h *Harness) ActiveSessions() int { return h.registry.Len() }

// Shutdown releases every session still registered. Engines whose sessions
// could not be released cleanly are swept at the process level, so nothing
// outlives the suite.
func (h *Harness) Shutdown(ctx context.Context) error {
	var shutdownErr error
	h.closeOnce.Do(func() {
		remaining := h.registry.Drain()
		if len(remaining) == 0 {
			h.logger.Debug("No sessions left at shutdown.")
			return
		}
		h.logger.Warn("Terminating sessions left open at shutdown.", zap.Int("count", len(remaining)))

		g, gctx := errgroup.WithContext(Detach(ctx))
		var mu sync.Mutex
		var errs []error
		dirty := make(map[EngineKind]struct{})
		for ec, s := range remaining {
			g.Go(func() error {
				if err := h.recovery.TerminateSession(gctx, s); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("context %s: %w", ec, err))
					dirty[s.Engine()] = struct{}{}
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		for engine := range dirty {
			if err := h.recovery.ForceTerminateProcesses(Detach(ctx), engine); err != nil {
				errs = append(errs, err)
			}
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}

// internal/browser/interaction.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

// ClickStrategy is one way of clicking an element.
type ClickStrategy interface {
	Name() string
	Click(ctx context.Context, drv Driver, ref ElementRef) error
}

// NativeClick uses the driver's own input pipeline, which honors hit-testing.
type NativeClick struct{}

func (NativeClick) Name() string { return "native" }

func (NativeClick) Click(ctx context.Context, drv Driver, ref ElementRef) error {
	return drv.Click(ctx, ref)
}

// ScriptClick dispatches a synthetic click event on the node. It ignores
// overlays and, unlike NativeClick, also ignores the disabled state.
type ScriptClick struct{}

func (ScriptClick) Name() string { return "script" }

func (ScriptClick) Click(ctx context.Context, drv Driver, ref ElementRef) error {
	var ok bool
	if err := drv.ExecuteScript(ctx, ClickScript(ref), &ok); err != nil {
		return err
	}
	if !ok {
		return errors.New("synthetic click was not dispatched")
	}
	return nil
}

// ReadOptions tunes a read.
type ReadOptions struct {
	// Attribute selects an attribute instead of the element text.
	Attribute string
	// AbsentOK makes a missing element or attribute a valid empty result.
	AbsentOK bool
	// Timeout overrides the session's explicit wait when positive.
	Timeout time.Duration
}

// Executor performs click, type and read against a session. Each call waits
// for the element first. Only click has a second tier.
type Executor struct {
	logger       *zap.Logger
	primary      ClickStrategy
	fallback     ClickStrategy
	pollInterval time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithStrictClick disables the scripted click fallback, so a click on a
// disabled or covered element fails instead of being forced.
func WithStrictClick() ExecutorOption {
	return func(e *Executor) { e.fallback = nil }
}

// WithClickStrategies replaces the two click tiers.
func WithClickStrategies(primary, fallback ClickStrategy) ExecutorOption {
	return func(e *Executor) {
		e.primary = primary
		e.fallback = fallback
	}
}

// WithPollInterval overrides the wait poll interval.
func WithPollInterval(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.pollInterval = d }
}

// NewExecutor creates an executor with native-then-script clicking.
func NewExecutor(logger *zap.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger:       logger.Named("interaction"),
		primary:      NativeClick{},
		fallback:     ScriptClick{},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Click waits for ref to be clickable and clicks it natively. If the wait or
// the native click fails, exactly one scripted click is attempted.
func (e *Executor) Click(ctx context.Context, s *SessionHandle, ref ElementRef) InteractionOutcome {
	if out, ok := e.usable(s); !ok {
		return e.record("click", out)
	}
	s.markInUse()
	drv := s.Driver()
	logger := s.Logger().With(zap.Stringer("ref", ref))

	// 1. Wait for clickability.
	wait := Await(ctx, WaitSpec{
		Timeout:      s.Config().ExplicitWait,
		PollInterval: e.pollInterval,
		Predicate:    ElementClickable(drv, ref),
		Label:        "clickable " + ref.String(),
	})

	// 2. Native click, only once the element is clickable.
	var primaryErr error
	if wait.Succeeded {
		stepCtx, cancel := e.step(ctx, s)
		primaryErr = e.primary.Click(stepCtx, drv, ref)
		cancel()
		if primaryErr == nil {
			return e.record("click", succeeded(false))
		}
		logger.Debug("Primary click failed.", zap.String("strategy", e.primary.Name()), zap.Error(primaryErr))
	} else {
		primaryErr = NewError(KindElementNotClickable, "click", "", wait.Err)
		logger.Debug("Element did not become clickable.", zap.Error(wait.Err))
	}

	if e.fallback == nil {
		kind := KindInteractionFailure
		if !wait.Succeeded {
			kind = KindElementNotClickable
		}
		return e.record("click", failed(kind, primaryErr))
	}

	// 3. One scripted fallback. Nothing is retried after it.
	observability.ClickFallbacks.Inc()
	stepCtx, cancel := e.step(ctx, s)
	defer cancel()
	if err := e.fallback.Click(stepCtx, drv, ref); err != nil {
		logger.Warn("Click failed on both tiers.", zap.NamedError("primary_error", primaryErr), zap.Error(err))
		return e.record("click", failed(KindInteractionFailure, errors.Join(primaryErr, fmt.Errorf("%s click: %w", e.fallback.Name(), err))))
	}
	logger.Info("Click succeeded via fallback.", zap.String("strategy", e.fallback.Name()))
	out := succeeded(true)
	out.Err = primaryErr
	return e.record("click", out)
}

// Type waits for ref to be visible, clears it, and sends text.
func (e *Executor) Type(ctx context.Context, s *SessionHandle, ref ElementRef, text string) InteractionOutcome {
	if out, ok := e.usable(s); !ok {
		return e.record("type", out)
	}
	s.markInUse()
	drv := s.Driver()

	if wait := e.awaitVisible(ctx, s, ref, 0); !wait.Succeeded {
		return e.record("type", failed(KindElementNotVisible, wait.Err))
	}
	stepCtx, cancel := e.step(ctx, s)
	defer cancel()
	if err := drv.Clear(stepCtx, ref); err != nil {
		return e.record("type", failed(KindInteractionFailure, fmt.Errorf("failed to clear %s: %w", ref, err)))
	}
	if err := drv.SendKeys(stepCtx, ref, text); err != nil {
		return e.record("type", failed(KindInteractionFailure, fmt.Errorf("failed to send keys to %s: %w", ref, err)))
	}
	return e.record("type", succeeded(false))
}

// Read waits for ref to be visible and returns its text or the requested
// attribute. A missing element is ElementNotVisible unless opts.AbsentOK.
func (e *Executor) Read(ctx context.Context, s *SessionHandle, ref ElementRef, opts ReadOptions) (string, InteractionOutcome) {
	if out, ok := e.usable(s); !ok {
		return "", e.record("read", out)
	}
	s.markInUse()
	drv := s.Driver()

	if wait := e.awaitVisible(ctx, s, ref, opts.Timeout); !wait.Succeeded {
		if opts.AbsentOK {
			return "", e.record("read", succeeded(false))
		}
		return "", e.record("read", failed(KindElementNotVisible, wait.Err))
	}
	stepCtx, cancel := e.step(ctx, s)
	defer cancel()

	if opts.Attribute == "" {
		text, err := drv.Text(stepCtx, ref)
		if err != nil {
			return "", e.record("read", failed(KindInteractionFailure, fmt.Errorf("failed to read text of %s: %w", ref, err)))
		}
		return text, e.record("read", succeeded(false))
	}

	value, present, err := drv.Attribute(stepCtx, ref, opts.Attribute)
	if err != nil {
		return "", e.record("read", failed(KindInteractionFailure, fmt.Errorf("failed to read attribute %q of %s: %w", opts.Attribute, ref, err)))
	}
	if !present && !opts.AbsentOK {
		return "", e.record("read", failed(KindInteractionFailure, fmt.Errorf("%w: %q on %s", ErrAttributeAbsent, opts.Attribute, ref)))
	}
	return value, e.record("read", succeeded(false))
}

func (e *Executor) awaitVisible(ctx context.Context, s *SessionHandle, ref ElementRef, override time.Duration) InteractionOutcome {
	timeout := s.Config().ExplicitWait
	if override > 0 {
		timeout = override
	}
	return Await(ctx, WaitSpec{
		Timeout:      timeout,
		PollInterval: e.pollInterval,
		Predicate:    ElementVisible(s.Driver(), ref),
		Label:        "visible " + ref.String(),
	})
}

// step bounds a single driver call by the session's explicit wait.
func (e *Executor) step(ctx context.Context, s *SessionHandle) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Config().ExplicitWait)
}

func (e *Executor) usable(s *SessionHandle) (InteractionOutcome, bool) {
	if s == nil || s.Driver() == nil {
		return failed(KindSessionNotInitialized, ErrSessionNotInitialized), false
	}
	if !s.State().Interactive() {
		return failed(KindSessionNotInitialized, fmt.Errorf("session %s is %s", s.ID(), s.State())), false
	}
	return InteractionOutcome{}, true
}

func (e *Executor) record(kind string, out InteractionOutcome) InteractionOutcome {
	result := "success"
	switch {
	case !out.Succeeded:
		result = out.ErrorKind.String()
	case out.UsedFallback:
		result = "fallback"
	}
	observability.Interactions.WithLabelValues(kind, result).Inc()
	return out
}

// internal/browser/wait.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

// DefaultPollInterval is used when a WaitSpec leaves PollInterval unset.
const DefaultPollInterval = 250 * time.Millisecond

// Predicate performs one remote query. Errors mean "not yet satisfied".
type Predicate func(ctx context.Context) (bool, error)

// WaitSpec describes one bounded polling wait. Build one per call site.
type WaitSpec struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Predicate    Predicate
	// Label names the condition in diagnostics.
	Label string
}

// Await polls spec.Predicate until it holds or the timeout elapses. The first
// evaluation happens immediately and success returns without further delay.
func Await(ctx context.Context, spec WaitSpec) InteractionOutcome {
	start := time.Now()
	defer func() {
		observability.WaitSeconds.Observe(time.Since(start).Seconds())
	}()

	interval := spec.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	// A non-positive timeout is a single check.
	if spec.Timeout <= 0 {
		ok, err := spec.Predicate(ctx)
		if err == nil && ok {
			return succeeded(false)
		}
		return failed(KindTimeout, timeoutCause(spec, 0, err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := spec.Predicate(waitCtx)
		if err == nil && ok {
			return succeeded(false)
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil && lastErr == nil {
				lastErr = ctx.Err()
			}
			return failed(KindTimeout, timeoutCause(spec, time.Since(start), lastErr))
		case <-ticker.C:
		}
	}
}

func timeoutCause(spec WaitSpec, elapsed time.Duration, last error) error {
	label := spec.Label
	if label == "" {
		label = "condition"
	}
	if last != nil {
		return fmt.Errorf("%w: %s not met after %s: %w", ErrTimeout, label, elapsed.Round(time.Millisecond), last)
	}
	return fmt.Errorf("%w: %s not met after %s", ErrTimeout, label, elapsed.Round(time.Millisecond))
}

// ElementVisible holds once ref resolves to a visible node.
func ElementVisible(drv Driver, ref ElementRef) Predicate {
	return func(ctx context.Context) (bool, error) {
		return drv.IsVisible(ctx, ref)
	}
}

// ElementClickable holds once ref is visible and enabled.
func ElementClickable(drv Driver, ref ElementRef) Predicate {
	return func(ctx context.Context) (bool, error) {
		visible, err := drv.IsVisible(ctx, ref)
		if err != nil || !visible {
			return false, err
		}
		return drv.IsEnabled(ctx, ref)
	}
}

// PageLoadComplete holds once document.readyState is "complete".
func PageLoadComplete(drv Driver) Predicate {
	return func(ctx context.Context) (bool, error) {
		var complete bool
		if err := drv.ExecuteScript(ctx, ReadyStateScript, &complete); err != nil {
			return false, err
		}
		return complete, nil
	}
}

// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context that carries the values of parent (for
// example a CDP target) and is cancelled when either parent or op is done.
// Drivers use it to apply a per-call deadline to a long-lived browser context.
func CombineContext(parent, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	if deadline, ok := op.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		prev := cancel
		cancel = func() {
			cancelDeadline()
			prev()
		}
	}

	stop := context.AfterFunc(op, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// Detach returns a context that inherits values from ctx but outlives its
// cancellation. Teardown paths use it so cleanup still runs after a test
// context has been cancelled.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

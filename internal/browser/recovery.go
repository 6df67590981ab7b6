// internal/browser/recovery.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

const (
	// DefaultSettleDelay lets the host reap killed processes before relaunch.
	DefaultSettleDelay = 2 * time.Second
	// DefaultQuitTimeout bounds a graceful quit before falling back to a kill.
	DefaultQuitTimeout  = 10 * time.Second
	quitTimeoutFallback = 10 * time.Second
)

// RecoveryController repairs or replaces sessions. It is the only component
// allowed to move a session out of Recovering or into Terminated.
type RecoveryController struct {
	registry    *SessionRegistry
	factory     *SessionFactory
	killer      ProcessKiller
	policy      DialogDismissalPolicy
	settleDelay time.Duration
	quitTimeout time.Duration
	logger      *zap.Logger
}

// RecoveryOption configures a RecoveryController.
type RecoveryOption func(*RecoveryController)

func WithDialogPolicy(p DialogDismissalPolicy) RecoveryOption {
	return func(c *RecoveryController) { c.policy = p }
}

func WithSettleDelay(d time.Duration) RecoveryOption {
	return func(c *RecoveryController) { c.settleDelay = d }
}

func WithQuitTimeout(d time.Duration) RecoveryOption {
	return func(c *RecoveryController) {
		if d > 0 {
			c.quitTimeout = d
		}
	}
}

// NewRecoveryController wires the controller to the registry and factory it repairs.
func NewRecoveryController(registry *SessionRegistry, factory *SessionFactory, killer ProcessKiller, logger *zap.Logger, opts ...RecoveryOption) *RecoveryController {
	c := &RecoveryController{
		registry:    registry,
		factory:     factory,
		killer:      killer,
		policy:      DefaultDialogPolicy(),
		settleDelay: DefaultSettleDelay,
		quitTimeout: DefaultQuitTimeout,
		logger:      logger.Named("recovery"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DismissDialogs clears native alerts and policy-listed overlays. It never
// fails; each step logs and swallows its own errors. It returns the number of
// overlay nodes removed.
func (c *RecoveryController) DismissDialogs(ctx context.Context, s *SessionHandle) int {
	if s == nil || s.Driver() == nil {
		return 0
	}
	drv := s.Driver()
	logger := s.Logger()
	ctx, cancel := context.WithTimeout(ctx, c.quitTimeout)
	defer cancel()

	// 1. Native modal dialog. None open is the normal case.
	if c.policy.DismissAlerts {
		dismissed, err := drv.DismissAlert(ctx)
		switch {
		case err != nil:
			logger.Debug("No alert dismissed.", zap.Error(err))
		case dismissed:
			logger.Info("Dismissed native alert.")
		default:
			logger.Debug("No alert present.")
		}
	}

	// 2. In-page overlays.
	if len(c.policy.Selectors) == 0 {
		return 0
	}
	var removed int
	if err := drv.ExecuteScript(ctx, RemoveOverlaysScript(c.policy.Selectors), &removed); err != nil {
		logger.Debug("Overlay dismissal script failed.", zap.Error(err))
		return 0
	}
	if removed > 0 {
		logger.Info("Removed blocking overlays.", zap.Int("count", removed))
	}
	return removed
}

// ForceTerminateProcesses kills every host process belonging to engine and
// then waits the settle delay. Calling it with nothing to kill is a no-op.
func (c *RecoveryController) ForceTerminateProcesses(ctx context.Context, engine EngineKind) error {
	var errs []error
	for _, pattern := range engine.ProcessPatterns() {
		if err := c.killer.TerminateByName(ctx, pattern); err != nil {
			c.logger.Warn("Failed to terminate processes.", zap.String("pattern", pattern), zap.Error(err))
			errs = append(errs, fmt.Errorf("pattern %q: %w", pattern, err))
		}
	}
	c.logger.Info("Force-terminated browser processes.", zap.String("engine", string(engine)))
	if err := sleepCtx(ctx, c.settleDelay); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TerminateSession is the release path for a registered session: quit
// gracefully, kill the process if that fails, and mark it Terminated.
func (c *RecoveryController) TerminateSession(ctx context.Context, s *SessionHandle) error {
	switch s.State() {
	case StateTerminated:
		return nil
	case StateTerminating:
	default:
		if err := s.transitionBy(actorRecovery, StateTerminating); err != nil {
			return err
		}
	}

	// Cleanup must survive a cancelled test context.
	quitCtx, cancel := context.WithTimeout(Detach(ctx), c.quitTimeout)
	defer cancel()

	var quitErr error
	if drv := s.Driver(); drv != nil {
		if quitErr = drv.Quit(quitCtx); quitErr != nil {
			s.Logger().Warn("Graceful quit failed, killing browser process.", zap.Error(quitErr))
			if killErr := c.killProcess(quitCtx, s); killErr != nil {
				quitErr = errors.Join(quitErr, killErr)
			} else {
				quitErr = nil
			}
		}
		s.processGone = quitErr == nil
	} else {
		s.processGone = true
	}

	if err := s.transitionBy(actorRecovery, StateTerminated); err != nil {
		return errors.Join(quitErr, err)
	}
	s.Logger().Info("Browser session terminated.")
	return quitErr
}

// Repair attempts local recovery of a stuck session: dismiss dialogs, reload,
// dismiss again, then probe. On success the session is Ready again. On
// failure it is Terminated and a RecoveryFailure is returned.
func (c *RecoveryController) Repair(ctx context.Context, s *SessionHandle) error {
	if err := s.transitionBy(actorRecovery, StateRecovering); err != nil {
		return NewError(KindRecoveryFailure, "repair", "", err)
	}
	drv := s.Driver()
	logger := s.Logger()
	logger.Info("Attempting local session repair.")

	c.DismissDialogs(ctx, s)
	reloadCtx, cancel := context.WithTimeout(ctx, s.Config().PageLoadTimeout)
	if err := drv.Reload(reloadCtx); err != nil {
		logger.Warn("Reload during repair failed.", zap.Error(err))
	}
	cancel()
	c.DismissDialogs(ctx, s)

	probeCtx, cancel := context.WithTimeout(ctx, c.quitTimeout)
	defer cancel()
	var sum int
	if err := drv.ExecuteScript(probeCtx, LivenessScript, &sum); err != nil {
		observability.Recoveries.WithLabelValues("repair", "failure").Inc()
		logger.Warn("Session failed liveness probe after repair.", zap.Error(err))
		if termErr := c.TerminateSession(ctx, s); termErr != nil {
			logger.Warn("Failed to terminate unrepairable session.", zap.Error(termErr))
		}
		return NewError(KindRecoveryFailure, "repair", "", err)
	}

	if err := s.transitionBy(actorRecovery, StateReady); err != nil {
		return NewError(KindRecoveryFailure, "repair", "", err)
	}
	observability.Recoveries.WithLabelValues("repair", "success").Inc()
	logger.Info("Session repaired.")
	return nil
}

// EmergencyRecover discards the session owned by ec, kills its process and
// replaces it with a freshly created one registered under the same context.
// A failure to create the replacement is a RecoveryFailure; there is no
// further tier.
func (c *RecoveryController) EmergencyRecover(ctx context.Context, ec ExecutionContext) (*SessionHandle, error) {
	old, err := c.registry.Get(ec)
	if err != nil {
		observability.Recoveries.WithLabelValues("emergency", "failure").Inc()
		return nil, NewError(KindRecoveryFailure, "emergency_recover", ec, err)
	}
	logger := old.Logger().With(zap.String("execution_context", string(ec)))
	logger.Warn("Starting emergency recovery.", zap.Stringer("state", old.State()))

	// 1. Tear down the old session, by force if it does not quit.
	c.discardForRecovery(ctx, old)
	c.registry.Remove(ec)

	// 2. Replace it.
	fresh, err := c.factory.Create(ctx, old.Engine())
	if err != nil {
		observability.Recoveries.WithLabelValues("emergency", "failure").Inc()
		logger.Error("Emergency recovery could not create a new session.", zap.Error(err))
		return nil, NewError(KindRecoveryFailure, "emergency_recover", ec, err)
	}
	if err := c.registry.Set(ec, fresh); err != nil {
		observability.Recoveries.WithLabelValues("emergency", "failure").Inc()
		if termErr := c.TerminateSession(ctx, fresh); termErr != nil {
			logger.Warn("Failed to release replacement session.", zap.Error(termErr))
		}
		return nil, NewError(KindRecoveryFailure, "emergency_recover", ec, err)
	}

	// 3. New browsers can open with the same prompts.
	c.DismissDialogs(ctx, fresh)

	observability.Recoveries.WithLabelValues("emergency", "success").Inc()
	logger.Info("Emergency recovery complete.",
		zap.String("old_process_id", old.ProcessID()),
		zap.String("new_session_id", fresh.ID()),
		zap.String("new_process_id", fresh.ProcessID()),
	)
	return fresh, nil
}

// discardForRecovery drives old to Terminated however far it already got. A
// session that reached Terminated without its process confirmed gone is
// still swept.
func (c *RecoveryController) discardForRecovery(ctx context.Context, old *SessionHandle) {
	if old.State() == StateTerminated {
		if !old.processGone {
			old.Logger().Warn("Terminated session may have left its browser running, sweeping.")
			c.killStragglers(ctx, old)
			old.processGone = true
		}
		return
	}
	if old.State().Interactive() {
		if err := old.transitionBy(actorRecovery, StateRecovering); err != nil {
			old.Logger().Warn("Could not mark session as recovering.", zap.Error(err))
		}
	}

	if drv := old.Driver(); drv != nil {
		quitCtx, cancel := context.WithTimeout(Detach(ctx), c.quitTimeout)
		if err := drv.Quit(quitCtx); err != nil {
			old.Logger().Warn("Unresponsive session did not quit.", zap.Error(err))
		}
		cancel()
	}
	c.killStragglers(ctx, old)
	old.processGone = true

	if old.State() != StateTerminating {
		if err := old.transitionBy(actorRecovery, StateTerminating); err != nil {
			old.Logger().Warn("Could not mark session as terminating.", zap.Error(err))
		}
	}
	if err := old.transitionBy(actorRecovery, StateTerminated); err != nil {
		old.Logger().Warn("Could not mark session as terminated.", zap.Error(err))
	}
}

// killStragglers kills the session's own process when its PID is known, and
// every process of the engine otherwise or when the PID kill fails.
func (c *RecoveryController) killStragglers(ctx context.Context, s *SessionHandle) {
	err := c.killSessionProcess(ctx, s)
	if err == nil {
		if err := sleepCtx(ctx, c.settleDelay); err != nil {
			s.Logger().Warn("Settle delay interrupted.", zap.Error(err))
		}
		return
	}
	if !errors.Is(err, errNoProcessID) {
		s.Logger().Warn("Failed to kill session process.", zap.Error(err))
	}
	if err := c.ForceTerminateProcesses(ctx, s.Engine()); err != nil {
		s.Logger().Warn("Force termination reported errors.", zap.Error(err))
	}
}

// killProcess kills the session's own process, or every process of its
// engine when the driver exposes no host PID.
func (c *RecoveryController) killProcess(ctx context.Context, s *SessionHandle) error {
	err := c.killSessionProcess(ctx, s)
	if !errors.Is(err, errNoProcessID) {
		return err
	}
	s.Logger().Info("No host PID for session, terminating engine processes.", zap.String("process_id", s.ProcessID()))
	return c.ForceTerminateProcesses(ctx, s.Engine())
}

var errNoProcessID = errors.New("no numeric process id")

func (c *RecoveryController) killSessionProcess(ctx context.Context, s *SessionHandle) error {
	pid := s.ProcessID()
	if _, err := strconv.Atoi(pid); err != nil {
		return fmt.Errorf("%w for session %s", errNoProcessID, s.ID())
	}
	return c.killer.TerminatePID(ctx, pid)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

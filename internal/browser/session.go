// internal/browser/session.go
package browser

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

// actor identifies who requests a state transition.
type actor int

const (
	actorHarness actor = iota
	actorRecovery
)

// transitionRule lists the legal targets from a state and whether they are
// reserved for the recovery controller.
type transitionRule struct {
	to           SessionState
	recoveryOnly bool
}

var transitions = map[SessionState][]transitionRule{
	StateUninitialized: {{to: StateInitializing}},
	StateInitializing:  {{to: StateReady}},
	StateReady:         {{to: StateInUse}, {to: StateRecovering}, {to: StateTerminating}},
	StateInUse:         {{to: StateRecovering}, {to: StateTerminating}},
	StateRecovering:    {{to: StateReady, recoveryOnly: true}, {to: StateTerminating, recoveryOnly: true}},
	StateTerminating:   {{to: StateTerminated, recoveryOnly: true}},
}

// SessionHandle is one live browser session. It is owned by exactly one
// execution context and is never touched concurrently, so it carries no lock.
type SessionHandle struct {
	id        string
	engine    EngineKind
	cfg       SessionConfig
	driver    Driver
	state     SessionState
	createdAt time.Time
	logger    *zap.Logger

	// processGone records that termination confirmed the browser exited.
	processGone bool
}

func newSessionHandle(engine EngineKind, cfg SessionConfig, logger *zap.Logger) *SessionHandle {
	id := uuid.NewString()
	return &SessionHandle{
		id:        id,
		engine:    engine,
		cfg:       cfg,
		state:     StateUninitialized,
		createdAt: time.Now(),
		logger:    logger.Named("session").With(zap.String("session_id", id), zap.String("engine", string(engine))),
	}
}

func (s *SessionHandle) ID() string { return s.id }
func (s *SessionHandle) Engine() EngineKind { return s.engine }
func (s *SessionHandle) Config() SessionConfig { return s.cfg }
func (s *SessionHandle) Driver() Driver { return s.driver }
func (s *SessionHandle) State() SessionState { return s.state }
func (s *SessionHandle) CreatedAt() time.Time { return s.createdAt }
func (s *SessionHandle) Logger() *zap.Logger { return s.logger }

// ProcessID returns the identity of the browser process behind the session.
func (s *SessionHandle) ProcessID() string {
	if s.driver == nil {
		return ""
	}
	return s.driver.ProcessID()
}

// Transition moves the session forward. Leaving Recovering and entering
// Terminated are reserved for the recovery controller.
func (s *SessionHandle) Transition(to SessionState) error {
	return s.transitionBy(actorHarness, to)
}

func (s *SessionHandle) transitionBy(by actor, to SessionState) error {
	from := s.state
	for _, rule := range transitions[from] {
		if rule.to != to {
			continue
		}
		if rule.recoveryOnly && by != actorRecovery {
			return fmt.Errorf("%w: %s -> %s is reserved for recovery", ErrIllegalTransition, from, to)
		}
		s.state = to
		s.logger.Debug("Session state changed.", zap.Stringer("from", from), zap.Stringer("to", to))
		switch to {
		case StateReady:
			if from == StateInitializing {
				observability.ActiveSessions.Inc()
			}
		case StateTerminated:
			observability.ActiveSessions.Dec()
		}
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// markInUse moves a Ready session to InUse on its first interaction.
func (s *SessionHandle) markInUse() {
	if s.state == StateReady {
		_ = s.transitionBy(actorHarness, StateInUse)
	}
}

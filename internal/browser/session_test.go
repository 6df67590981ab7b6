// internal/browser/session_test.go
package browser

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

func newTestHandle(t *testing.T) *SessionHandle {
	t.Helper()
	return newSessionHandle(EngineChrome, DefaultSessionConfig(), zaptest.NewLogger(t))
}

// walk drives h through states as the recovery actor.
func walk(t *testing.T, h *SessionHandle, states ...SessionState) {
	t.Helper()
	for _, s := range states {
		require.NoError(t, h.transitionBy(actorRecovery, s))
	}
}

func TestSessionHandle_Lifecycle(t *testing.T) {
	h := newTestHandle(t)
	assert.Equal(t, StateUninitialized, h.State())
	assert.NotEmpty(t, h.ID())

	require.NoError(t, h.Transition(StateInitializing))
	require.NoError(t, h.Transition(StateReady))
	require.NoError(t, h.Transition(StateInUse))
	require.NoError(t, h.Transition(StateTerminating))
	require.NoError(t, h.transitionBy(actorRecovery, StateTerminated))
	assert.Equal(t, StateTerminated, h.State())
}

func TestSessionHandle_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []SessionState
		to   SessionState
	}{
		{"skip initializing", nil, StateReady},
		{"interact before ready", []SessionState{StateInitializing}, StateInUse},
		{"back to ready from in use", []SessionState{StateInitializing, StateReady, StateInUse}, StateReady},
		{"leave terminated", []SessionState{StateInitializing, StateReady, StateTerminating, StateTerminated}, StateReady},
		{"terminating to recovering", []SessionState{StateInitializing, StateReady, StateTerminating}, StateRecovering},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandle(t)
			walk(t, h, tt.path...)
			before := h.State()

			err := h.transitionBy(actorRecovery, tt.to)
			assert.ErrorIs(t, err, ErrIllegalTransition)
			assert.Equal(t, before, h.State(), "state must not change on a rejected transition")
		})
	}
}

func TestSessionHandle_RecoveryOnlyTransitions(t *testing.T) {
	h := newTestHandle(t)
	walk(t, h, StateInitializing, StateReady)
	require.NoError(t, h.Transition(StateRecovering))

	assert.ErrorIs(t, h.Transition(StateReady), ErrIllegalTransition)
	assert.ErrorIs(t, h.Transition(StateTerminating), ErrIllegalTransition)
	assert.Equal(t, StateRecovering, h.State())

	require.NoError(t, h.transitionBy(actorRecovery, StateReady))

	walk(t, h, StateTerminating)
	assert.ErrorIs(t, h.Transition(StateTerminated), ErrIllegalTransition)
}

func TestSessionHandle_MarkInUse(t *testing.T) {
	h := newTestHandle(t)
	h.markInUse()
	assert.Equal(t, StateUninitialized, h.State(), "only Ready moves to InUse")

	walk(t, h, StateInitializing, StateReady)
	h.markInUse()
	assert.Equal(t, StateInUse, h.State())
	h.markInUse()
	assert.Equal(t, StateInUse, h.State())
}

func TestSessionHandle_ActiveSessionsGauge(t *testing.T) {
	start := testutil.ToFloat64(observability.ActiveSessions)

	h := newTestHandle(t)
	walk(t, h, StateInitializing, StateReady)
	assert.Equal(t, start+1, testutil.ToFloat64(observability.ActiveSessions))

	walk(t, h, StateRecovering, StateReady)
	assert.Equal(t, start+1, testutil.ToFloat64(observability.ActiveSessions), "repair must not count a new session")

	walk(t, h, StateTerminating, StateTerminated)
	assert.Equal(t, start, testutil.ToFloat64(observability.ActiveSessions))
}

func TestSessionState_Interactive(t *testing.T) {
	for _, s := range []SessionState{StateUninitialized, StateInitializing, StateRecovering, StateTerminating, StateTerminated} {
		assert.False(t, s.Interactive(), s.String())
	}
	assert.True(t, StateReady.Interactive())
	assert.True(t, StateInUse.Interactive())
}

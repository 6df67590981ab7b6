// internal/browser/errors_test.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MatchesKindSentinelAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewError(KindElementNotVisible, "type", "ec-1", cause)

	assert.ErrorIs(t, err, ErrElementNotVisible)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrElementNotClickable)
	assert.Equal(t, "type: element not visible (context ec-1): context deadline exceeded", err.Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("step failed: %w", NewError(KindNavigationFailure, "navigate", "", nil))
	assert.Equal(t, KindNavigationFailure, KindOf(wrapped))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("%w: page load", ErrTimeout)))
	assert.Equal(t, KindNone, KindOf(errors.New("plain")))
	assert.Equal(t, KindNone, KindOf(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewError(KindRecoveryFailure, "emergency_recover", "", nil)))
	assert.True(t, IsFatal(NewError(KindSessionCreationFailure, "create", "", nil)))
	assert.False(t, IsFatal(NewError(KindElementNotClickable, "click", "", nil)))
	assert.False(t, IsFatal(nil))
}

func TestInteractionOutcome_AsError(t *testing.T) {
	assert.NoError(t, succeeded(true).AsError("click", "ec"))

	err := failed(KindInteractionFailure, errors.New("boom")).AsError("click", "ec")
	assert.ErrorIs(t, err, ErrInteraction)
	assert.Equal(t, KindInteractionFailure, KindOf(err))
}

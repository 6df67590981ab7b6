// internal/browser/errors.go
package browser

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a harness failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTimeout
	KindSessionCreationFailure
	KindSessionNotInitialized
	KindElementNotVisible
	KindElementNotClickable
	KindInteractionFailure
	KindNavigationFailure
	KindRecoveryFailure
)

var kindNames = map[ErrorKind]string{
	KindNone:                   "none",
	KindTimeout:                "timeout",
	KindSessionCreationFailure: "session_creation_failure",
	KindSessionNotInitialized:  "session_not_initialized",
	KindElementNotVisible:      "element_not_visible",
	KindElementNotClickable:    "element_not_clickable",
	KindInteractionFailure:     "interaction_failure",
	KindNavigationFailure:      "navigation_failure",
	KindRecoveryFailure:        "recovery_failure",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels, one per kind. Match with errors.Is.
var (
	ErrTimeout               = errors.New("wait timed out")
	ErrSessionCreation       = errors.New("session creation failed")
	ErrSessionNotInitialized = errors.New("session not initialized")
	ErrElementNotVisible     = errors.New("element not visible")
	ErrElementNotClickable   = errors.New("element not clickable")
	ErrInteraction           = errors.New("interaction failed")
	ErrNavigation            = errors.New("navigation failed")
	ErrRecovery              = errors.New("recovery failed")
)

var (
	// ErrAlreadyRegistered is returned when a context already owns a session.
	ErrAlreadyRegistered = errors.New("execution context already has a registered session")
	ErrIllegalTransition = errors.New("illegal session state transition")
	// ErrUnsupported is returned by drivers for optional operations their engine lacks.
	ErrUnsupported     = errors.New("operation not supported by driver")
	ErrAttributeAbsent = errors.New("attribute not present on element")
	ErrUnknownEngine   = errors.New("no launcher registered for engine")
)

var kindSentinels = map[ErrorKind]error{
	KindTimeout:                ErrTimeout,
	KindSessionCreationFailure: ErrSessionCreation,
	KindSessionNotInitialized:  ErrSessionNotInitialized,
	KindElementNotVisible:      ErrElementNotVisible,
	KindElementNotClickable:    ErrElementNotClickable,
	KindInteractionFailure:     ErrInteraction,
	KindNavigationFailure:      ErrNavigation,
	KindRecoveryFailure:        ErrRecovery,
}

// Error is the typed failure returned by harness operations.
type Error struct {
	Kind    ErrorKind
	Op      string
	Context ExecutionContext
	Err     error
}

// NewError builds an *Error for the given kind and operation.
func NewError(kind ErrorKind, op string, ec ExecutionContext, cause error) *Error {
	return &Error{Kind: kind, Op: op, Context: ec, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		msg = sentinel.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s (context %s)", msg, e.Context)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindNone
}

// IsFatal reports whether err should end the calling test outright.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindRecoveryFailure, KindSessionCreationFailure:
		return true
	}
	return false
}

// internal/browser/types.go
package browser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext scopes one concurrently running test. It owns at most one session.
type ExecutionContext string

// NewExecutionContext mints a fresh, unique execution context.
func NewExecutionContext() ExecutionContext {
	return ExecutionContext(uuid.NewString())
}

// EngineKind selects the browser engine behind a session.
type EngineKind string

const (
	// EngineChrome is the primary engine, driven over CDP.
	EngineChrome EngineKind = "chrome"
	// EngineFirefox is the secondary engine, driven through Playwright.
	EngineFirefox EngineKind = "firefox"
	// EngineEdge is the tertiary engine, driven through Rod.
	EngineEdge EngineKind = "edge"
)

// Engines lists every supported engine in rank order.
var Engines = []EngineKind{EngineChrome, EngineFirefox, EngineEdge}

// ParseEngineKind resolves a configured browser name. Unknown names fall back
// to chrome; ok reports whether the name was recognized.
func ParseEngineKind(name string) (kind EngineKind, ok bool) {
	switch EngineKind(strings.ToLower(strings.TrimSpace(name))) {
	case EngineChrome:
		return EngineChrome, true
	case EngineFirefox:
		return EngineFirefox, true
	case EngineEdge:
		return EngineEdge, true
	}
	return EngineChrome, false
}

// ProcessPatterns returns the host process-name patterns belonging to the engine.
func (e EngineKind) ProcessPatterns() []string {
	switch e {
	case EngineFirefox:
		return []string{"firefox"}
	case EngineEdge:
		return []string{"msedge", "microsoft-edge"}
	default:
		return []string{"chrome", "chromium"}
	}
}

// SessionState is the lifecycle position of a SessionHandle.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateInitializing
	StateReady
	StateInUse
	StateRecovering
	StateTerminating
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateReady:
		return "Ready"
	case StateInUse:
		return "InUse"
	case StateRecovering:
		return "Recovering"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Interactive reports whether interactions may run against a session in this state.
func (s SessionState) Interactive() bool {
	return s == StateReady || s == StateInUse
}

// LocatorStrategy says how an ElementRef selector is interpreted.
type LocatorStrategy int

const (
	ByCSS LocatorStrategy = iota
	ByXPath
)

// ElementRef locates an element. It is re-resolved on every driver call.
type ElementRef struct {
	By       LocatorStrategy
	Selector string
}

// CSS returns a CSS-selector reference.
func CSS(selector string) ElementRef { return ElementRef{By: ByCSS, Selector: selector} }

// XPath returns an XPath reference.
func XPath(expr string) ElementRef { return ElementRef{By: ByXPath, Selector: expr} }

func (r ElementRef) String() string {
	if r.By == ByXPath {
		return "xpath=" + r.Selector
	}
	return "css=" + r.Selector
}

// JSExpr renders a JavaScript expression evaluating to the referenced node or null.
func (r ElementRef) JSExpr() string {
	lit := jsString(r.Selector)
	if r.By == ByXPath {
		return "document.evaluate(" + lit + ", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue"
	}
	return "document.querySelector(" + lit + ")"
}

func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal on a string only fails on invalid UTF-8, which it replaces anyway.
		return `""`
	}
	return string(b)
}

// InteractionOutcome reports the result of a wait or interaction.
type InteractionOutcome struct {
	Succeeded    bool
	ErrorKind    ErrorKind
	UsedFallback bool
	// Err is the underlying cause, kept for diagnostics.
	Err error
}

func succeeded(usedFallback bool) InteractionOutcome {
	return InteractionOutcome{Succeeded: true, UsedFallback: usedFallback}
}

func failed(kind ErrorKind, cause error) InteractionOutcome {
	return InteractionOutcome{ErrorKind: kind, Err: cause}
}

// AsError converts a failed outcome into a typed *Error, or nil on success.
func (o InteractionOutcome) AsError(op string, ec ExecutionContext) error {
	if o.Succeeded {
		return nil
	}
	return NewError(o.ErrorKind, op, ec, o.Err)
}

// DialogDismissalPolicy enumerates the transient UI that is safe to auto-dismiss.
type DialogDismissalPolicy struct {
	DismissAlerts bool
	Selectors     []string
}

// DefaultDialogPolicy covers native alerts, password-manager bubbles and notification banners.
func DefaultDialogPolicy() DialogDismissalPolicy {
	return DialogDismissalPolicy{
		DismissAlerts: true,
		Selectors: []string{
			`[role="dialog"]`,
			`[role="alertdialog"]`,
			".password-bubble",
			".save-password",
			".notification-banner",
			"#onetrust-banner-sdk",
		},
	}
}

// SessionConfig is the immutable per-session configuration, read once from config.
type SessionConfig struct {
	Engine              EngineKind
	Headless            bool
	ImplicitWait        time.Duration
	ExplicitWait        time.Duration
	PageLoadTimeout     time.Duration
	ScreenshotOnFailure bool
	// ExecPaths overrides the browser binary per engine.
	ExecPaths map[EngineKind]string
}

// DefaultSessionConfig mirrors the configuration defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Engine:              EngineChrome,
		ImplicitWait:        10 * time.Second,
		ExplicitWait:        20 * time.Second,
		PageLoadTimeout:     30 * time.Second,
		ScreenshotOnFailure: true,
	}
}

// internal/browser/driver.go
package browser

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Driver is the narrow command/query surface of a live browser. Every call is a
// remote round trip bounded by ctx; implementations must not retry internally
// beyond the session's implicit wait.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)

	// FindElement reports whether ref resolves, polling for up to the implicit wait.
	FindElement(ctx context.Context, ref ElementRef) (bool, error)
	IsVisible(ctx context.Context, ref ElementRef) (bool, error)
	IsEnabled(ctx context.Context, ref ElementRef) (bool, error)

	Click(ctx context.Context, ref ElementRef) error
	Clear(ctx context.Context, ref ElementRef) error
	SendKeys(ctx context.Context, ref ElementRef, text string) error
	Text(ctx context.Context, ref ElementRef) (string, error)
	// Attribute returns the attribute value; ok is false when the attribute is absent.
	Attribute(ctx context.Context, ref ElementRef, name string) (value string, ok bool, err error)

	// ExecuteScript evaluates a self-contained JavaScript expression and decodes
	// its JSON-serializable result into res (which may be nil).
	ExecuteScript(ctx context.Context, script string, res any) error
	Screenshot(ctx context.Context) ([]byte, error)

	// DismissAlert dismisses an open native dialog. dismissed is false when none was open.
	DismissAlert(ctx context.Context) (dismissed bool, err error)
	Maximize(ctx context.Context) error
	SetViewport(ctx context.Context, width, height int) error

	// ProcessID identifies the underlying browser process. It changes across relaunches.
	ProcessID() string
	Quit(ctx context.Context) error
}

// Launcher starts a browser for one engine.
type Launcher interface {
	Launch(ctx context.Context, profile Profile) (Driver, error)
}

// ProcessKiller terminates host processes.
type ProcessKiller interface {
	// TerminateByName kills every process whose name matches pattern.
	// No matching process is not an error.
	TerminateByName(ctx context.Context, pattern string) error
	TerminatePID(ctx context.Context, pid string) error
}

// ArtifactSink receives screenshot bytes. The core never interprets them.
type ArtifactSink interface {
	Store(ctx context.Context, name string, png []byte) (location string, err error)
}

// Viewport is a window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// DefaultViewport is the fixed size every session is given.
var DefaultViewport = Viewport{Width: 1920, Height: 1080}

const (
	// DefaultScriptTimeout bounds asynchronous script execution.
	DefaultScriptTimeout = 30 * time.Second
	// launchGrace is added to the page-load timeout to bound process start-up.
	launchGrace = 30 * time.Second
)

// Profile is the engine-specific launch configuration.
type Profile struct {
	Engine          EngineKind
	Headless        bool
	Viewport        Viewport
	ImplicitWait    time.Duration
	PageLoadTimeout time.Duration
	ScriptTimeout   time.Duration
	// Args are command-line switches without the leading "--".
	Args []string
	// ExcludeSwitches are default switches the launcher must drop.
	ExcludeSwitches []string
	// Prefs are engine preferences (about:config for firefox).
	Prefs    map[string]any
	ExecPath string
}

// chromiumStability keeps the browser alive in constrained hosts.
var chromiumStability = []string{
	"no-sandbox",
	"disable-dev-shm-usage",
	"disable-gpu",
	"disable-extensions",
	"disable-hang-monitor",
	"disable-prompt-on-repost",
	"disable-background-networking",
}

// chromiumDeterminism suppresses UI that can block an interaction.
var chromiumDeterminism = []string{
	"disable-features=PasswordManager,AutofillServerCommunication",
	"disable-save-password-bubble",
	"disable-notifications",
	"disable-default-apps",
	"disable-blink-features=AutomationControlled",
	"disable-sync",
	"no-first-run",
}

// BuildProfile assembles the launch profile for engine from cfg.
func BuildProfile(engine EngineKind, cfg SessionConfig) Profile {
	p := Profile{
		Engine:          engine,
		Headless:        cfg.Headless,
		Viewport:        DefaultViewport,
		ImplicitWait:    cfg.ImplicitWait,
		PageLoadTimeout: cfg.PageLoadTimeout,
		ScriptTimeout:   DefaultScriptTimeout,
		ExecPath:        cfg.ExecPaths[engine],
	}
	windowSize := "window-size=" + strconv.Itoa(p.Viewport.Width) + "," + strconv.Itoa(p.Viewport.Height)

	switch engine {
	case EngineFirefox:
		p.Args = []string{"width=" + strconv.Itoa(p.Viewport.Width), "height=" + strconv.Itoa(p.Viewport.Height)}
		p.Prefs = map[string]any{
			"dom.webnotifications.enabled":                false,
			"dom.push.enabled":                            false,
			"signon.rememberSignons":                      false,
			"signon.autofillForms":                        false,
			"browser.formfill.enable":                     false,
			"extensions.formautofill.addresses.enabled":   false,
			"extensions.formautofill.creditCards.enabled": false,
			"dom.webdriver.enabled":                       false,
		}
	case EngineEdge:
		p.Args = append(append([]string{}, chromiumStability...), chromiumDeterminism...)
		p.Args = append(p.Args, windowSize)
		p.ExcludeSwitches = []string{"enable-automation"}
	default:
		p.Args = append(append([]string{}, chromiumStability...), chromiumDeterminism...)
		p.Args = append(p.Args, windowSize, "password-store=basic", "use-mock-keychain")
		p.ExcludeSwitches = []string{"enable-automation"}
	}
	return p
}

// HasArg reports whether the profile carries the switch (matched up to any "=value").
func (p Profile) HasArg(name string) bool {
	for _, a := range p.Args {
		if a == name || strings.HasPrefix(a, name+"=") {
			return true
		}
	}
	return false
}

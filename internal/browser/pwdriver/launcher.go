// internal/browser/pwdriver/launcher.go
package pwdriver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// Launcher starts Firefox through the Playwright driver.
type Launcher struct {
	logger *zap.Logger
}

// NewLauncher returns a Launcher for the secondary engine.
func NewLauncher(logger *zap.Logger) *Launcher {
	return &Launcher{logger: logger.Named("pw_launcher")}
}

var _ browser.Launcher = (*Launcher)(nil)

// launchOptions translates a profile into Playwright launch options.
func launchOptions(p browser.Profile) playwright.BrowserTypeLaunchOptions {
	args := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		args = append(args, "--"+a)
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless:         playwright.Bool(p.Headless),
		Args:             args,
		FirefoxUserPrefs: p.Prefs,
	}
	if p.ExecPath != "" {
		opts.ExecutablePath = playwright.String(p.ExecPath)
	}
	return opts
}

// Launch starts the Playwright driver and Firefox, then opens a page in a
// fresh context sized to the profile viewport.
func (l *Launcher) Launch(ctx context.Context, p browser.Profile) (browser.Driver, error) {
	type launched struct {
		d   *Driver
		err error
	}
	started := make(chan launched, 1)
	go func() {
		d, err := l.start(p)
		started <- launched{d, err}
	}()

	select {
	case res := <-started:
		if res.err != nil {
			return nil, res.err
		}
		l.logger.Debug("Firefox started.", zap.String("pid", res.d.pid), zap.Bool("headless", p.Headless))
		return res.d, nil
	case <-ctx.Done():
		// Reap whatever eventually starts.
		go func() {
			if res := <-started; res.d != nil {
				_ = res.d.Quit(context.Background())
			}
		}()
		return nil, fmt.Errorf("timed out launching firefox: %w", ctx.Err())
	}
}

func (l *Launcher) start(p browser.Profile) (*Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	b, err := pw.Firefox.Launch(launchOptions(p))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch firefox: %w", err)
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: p.Viewport.Width, Height: p.Viewport.Height},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultNavigationTimeout(float64(p.PageLoadTimeout.Milliseconds()))
	page.SetDefaultTimeout(float64(p.ScriptTimeout.Milliseconds()))

	d := &Driver{
		pw:           pw,
		browser:      b,
		page:         page,
		implicitWait: p.ImplicitWait,
		// Playwright does not expose the browser's process id.
		pid:    "pw-" + uuid.NewString(),
		logger: l.logger,
	}
	page.OnDialog(d.onDialog)
	return d, nil
}

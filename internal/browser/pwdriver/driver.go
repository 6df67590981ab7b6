// internal/browser/pwdriver/driver.go
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const presencePoll = 100 * time.Millisecond

// Driver drives one Firefox page through Playwright. Playwright calls take
// millisecond timeouts rather than contexts, so each call derives its timeout
// from the context deadline.
type Driver struct {
	pw           *playwright.Playwright
	browser      playwright.Browser
	page         playwright.Page
	implicitWait time.Duration
	pid          string
	logger       *zap.Logger

	// dialogs counts dialogs dismissed by onDialog since the last DismissAlert.
	dialogs atomic.Int32

	quitOnce sync.Once
	quitErr  error
}

var _ browser.Driver = (*Driver)(nil)

// onDialog dismisses every native dialog as it opens. Unhandled dialogs
// would otherwise block the page.
func (d *Driver) onDialog(dlg playwright.Dialog) {
	if err := dlg.Dismiss(); err != nil {
		d.logger.Debug("Failed to dismiss dialog.", zap.Error(err))
		return
	}
	d.dialogs.Add(1)
	d.logger.Debug("Dialog dismissed.", zap.String("type", dlg.Type()), zap.String("message", dlg.Message()))
}

// timeoutMS converts the remaining time on ctx into a Playwright timeout.
// Zero means no limit to Playwright, so a context without a deadline
// returns nil and the page default applies.
func timeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// call runs fn and gives up when ctx ends. fn keeps running in the background.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (d *Driver) locator(ref browser.ElementRef) playwright.Locator {
	// ElementRef renders as a Playwright selector ("css=..." or "xpath=...").
	return d.page.Locator(ref.String()).First()
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{Timeout: timeoutMS(ctx)})
	return err
}

func (d *Driver) Reload(ctx context.Context) error {
	_, err := d.page.Reload(playwright.PageReloadOptions{Timeout: timeoutMS(ctx)})
	return err
}

func (d *Driver) CurrentURL(context.Context) (string, error) {
	return d.page.URL(), nil
}

// FindElement polls for presence for up to the implicit wait.
func (d *Driver) FindElement(ctx context.Context, ref browser.ElementRef) (bool, error) {
	loc := d.page.Locator(ref.String())
	out := browser.Await(ctx, browser.WaitSpec{
		Timeout:      d.implicitWait,
		PollInterval: presencePoll,
		Label:        "present " + ref.String(),
		Predicate: func(ctx context.Context) (bool, error) {
			n, err := call(ctx, loc.Count)
			return n > 0, err
		},
	})
	if out.Succeeded {
		return true, nil
	}
	if errors.Is(out.Err, context.Canceled) {
		return false, out.Err
	}
	return false, nil
}

func (d *Driver) IsVisible(ctx context.Context, ref browser.ElementRef) (bool, error) {
	var visible bool
	err := d.ExecuteScript(ctx, browser.VisibleScript(ref), &visible)
	return visible, err
}

func (d *Driver) IsEnabled(ctx context.Context, ref browser.ElementRef) (bool, error) {
	var enabled bool
	err := d.ExecuteScript(ctx, browser.EnabledScript(ref), &enabled)
	return enabled, err
}

// Click relies on Playwright's actionability checks, which report a covering
// element as a failure once the timeout passes.
func (d *Driver) Click(ctx context.Context, ref browser.ElementRef) error {
	return d.locator(ref).Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx)})
}

func (d *Driver) Clear(ctx context.Context, ref browser.ElementRef) error {
	return d.locator(ref).Clear(playwright.LocatorClearOptions{Timeout: timeoutMS(ctx)})
}

func (d *Driver) SendKeys(ctx context.Context, ref browser.ElementRef, text string) error {
	return d.locator(ref).PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: timeoutMS(ctx)})
}

func (d *Driver) Text(ctx context.Context, ref browser.ElementRef) (string, error) {
	text, err := d.locator(ref).InnerText(playwright.LocatorInnerTextOptions{Timeout: timeoutMS(ctx)})
	return strings.TrimSpace(text), err
}

// Attribute goes through a script because Playwright cannot tell an absent
// attribute from an empty one.
func (d *Driver) Attribute(ctx context.Context, ref browser.ElementRef, name string) (string, bool, error) {
	var value *string
	if err := d.ExecuteScript(ctx, browser.AttributeScript(ref, name), &value); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// ExecuteScript evaluates a JavaScript expression. Playwright returns
// loosely typed values, which are re-encoded into res.
func (d *Driver) ExecuteScript(ctx context.Context, script string, res any) error {
	v, err := call(ctx, func() (any, error) { return d.page.Evaluate(script) })
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	return json.Unmarshal(raw, res)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Screenshot(playwright.PageScreenshotOptions{Timeout: timeoutMS(ctx)})
}

// DismissAlert reports whether any dialog was dismissed since the last call.
// Dialogs are dismissed as they open, so there is nothing left to act on.
func (d *Driver) DismissAlert(context.Context) (bool, error) {
	return d.dialogs.Swap(0) > 0, nil
}

// Maximize is not available: Playwright sizes the viewport, not the window.
func (d *Driver) Maximize(context.Context) error {
	return fmt.Errorf("maximize firefox window: %w", browser.ErrUnsupported)
}

func (d *Driver) SetViewport(ctx context.Context, width, height int) error {
	_, err := call(ctx, func() (struct{}, error) {
		return struct{}{}, d.page.SetViewportSize(width, height)
	})
	return err
}

func (d *Driver) ProcessID() string { return d.pid }

// Quit closes the browser and stops the Playwright driver process.
func (d *Driver) Quit(ctx context.Context) error {
	d.quitOnce.Do(func() {
		_, err := call(ctx, func() (struct{}, error) {
			return struct{}{}, errors.Join(d.browser.Close(), d.pw.Stop())
		})
		if err != nil {
			d.quitErr = fmt.Errorf("failed to close firefox: %w", err)
		}
	})
	return d.quitErr
}

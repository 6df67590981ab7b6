// internal/browser/cdp/driver.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

const presencePoll = 100 * time.Millisecond

// Driver drives one Chrome tab over CDP.
type Driver struct {
	tabCtx       context.Context
	shutdown     func()
	implicitWait time.Duration
	pid          string
	logger       *zap.Logger

	quitOnce sync.Once
	quitErr  error
}

var _ browser.Driver = (*Driver)(nil)

// run executes actions on the tab, bounded by the caller's ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := browser.CombineContext(d.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func queryOpts(ref browser.ElementRef, extra ...chromedp.QueryOption) []chromedp.QueryOption {
	by := chromedp.ByQuery
	if ref.By == browser.ByXPath {
		by = chromedp.BySearch
	}
	return append([]chromedp.QueryOption{by}, extra...)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *Driver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

// FindElement polls for presence for up to the implicit wait.
func (d *Driver) FindElement(ctx context.Context, ref browser.ElementRef) (bool, error) {
	out := browser.Await(ctx, browser.WaitSpec{
		Timeout:      d.implicitWait,
		PollInterval: presencePoll,
		Label:        "present " + ref.String(),
		Predicate: func(ctx context.Context) (bool, error) {
			var present bool
			err := d.ExecuteScript(ctx, "("+ref.JSExpr()+") !== null", &present)
			return present, err
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

// Click dispatches a real mouse click at the element's center. chromedp
// clicks coordinates, so a covering element is detected up front and reported
// as an interception instead of silently receiving the click.
func (d *Driver) Click(ctx context.Context, ref browser.ElementRef) error {
	var onTop bool
	if err := d.ExecuteScript(ctx, browser.HitTestScript(ref), &onTop); err != nil {
		return fmt.Errorf("failed to hit-test %s: %w", ref, err)
	}
	if !onTop {
		return fmt.Errorf("click on %s intercepted by another element", ref)
	}
	return d.run(ctx, chromedp.Click(ref.Selector, queryOpts(ref, chromedp.NodeVisible)...))
}

func (d *Driver) Clear(ctx context.Context, ref browser.ElementRef) error {
	return d.run(ctx, chromedp.Clear(ref.Selector, queryOpts(ref)...))
}

func (d *Driver) SendKeys(ctx context.Context, ref browser.ElementRef, text string) error {
	return d.run(ctx, chromedp.SendKeys(ref.Selector, text, queryOpts(ref, chromedp.NodeVisible)...))
}

func (d *Driver) Text(ctx context.Context, ref browser.ElementRef) (string, error) {
	var text string
	err := d.run(ctx, chromedp.Text(ref.Selector, &text, queryOpts(ref, chromedp.NodeVisible)...))
	return strings.TrimSpace(text), err
}

func (d *Driver) Attribute(ctx context.Context, ref browser.ElementRef, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := d.run(ctx, chromedp.AttributeValue(ref.Selector, name, &value, &ok, queryOpts(ref)...))
	return value, ok, err
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, res any) error {
	if res == nil {
		var discard any
		res = &discard
	}
	return d.run(ctx, chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// DismissAlert dismisses an open JavaScript dialog. CDP reports a missing
// dialog as an error, which is translated into dismissed=false.
func (d *Driver) DismissAlert(ctx context.Context) (bool, error) {
	err := d.run(ctx, page.HandleJavaScriptDialog(false))
	if err == nil {
		return true, nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "no dialog is showing") {
		return false, nil
	}
	return false, err
}

func (d *Driver) Maximize(ctx context.Context) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to get window: %w", err)
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{
			WindowState: cdpbrowser.WindowStateMaximized,
		}).Do(ctx)
	}))
}

func (d *Driver) SetViewport(ctx context.Context, width, height int) error {
	return d.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

func (d *Driver) ProcessID() string { return d.pid }

// Quit closes the browser gracefully. If that does not finish before ctx
// expires, the allocator is cancelled, which kills the process.
func (d *Driver) Quit(ctx context.Context) error {
	d.quitOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(d.tabCtx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				d.quitErr = fmt.Errorf("failed to close chrome: %w", err)
			}
		case <-ctx.Done():
			d.quitErr = fmt.Errorf("timed out closing chrome: %w", ctx.Err())
		}
		d.shutdown()
	})
	return d.quitErr
}

// internal/browser/roddriver/driver.go
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

const presencePoll = 100 * time.Millisecond

// Driver drives one Edge tab through go-rod.
type Driver struct {
	browser      *rod.Browser
	page         *rod.Page
	launcher     *launcher.Launcher
	implicitWait time.Duration
	pid          string
	logger       *zap.Logger

	quitOnce sync.Once
	quitErr  error
}

var _ browser.Driver = (*Driver)(nil)

func (d *Driver) on(ctx context.Context) *rod.Page {
	return d.page.Context(ctx)
}

// element resolves ref, retrying until ctx expires.
func (d *Driver) element(ctx context.Context, ref browser.ElementRef) (*rod.Element, error) {
	if ref.By == browser.ByXPath {
		return d.on(ctx).ElementX(ref.Selector)
	}
	return d.on(ctx).Element(ref.Selector)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.on(ctx).Navigate(url)
}

func (d *Driver) Reload(ctx context.Context) error {
	return d.on(ctx).Reload()
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.on(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// FindElement polls for presence for up to the implicit wait.
func (d *Driver) FindElement(ctx context.Context, ref browser.ElementRef) (bool, error) {
	out := browser.Await(ctx, browser.WaitSpec{
		Timeout:      d.implicitWait,
		PollInterval: presencePoll,
		Label:        "present " + ref.String(),
		Predicate: func(ctx context.Context) (bool, error) {
			var (
				found bool
				err   error
			)
			if ref.By == browser.ByXPath {
				found, _, err = d.on(ctx).HasX(ref.Selector)
			} else {
				found, _, err = d.on(ctx).Has(ref.Selector)
			}
			return found, err
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

// Click checks that the element is the hit target before clicking, since
// rod would otherwise keep waiting for a covered element to become interactable.
func (d *Driver) Click(ctx context.Context, ref browser.ElementRef) error {
	el, err := d.element(ctx, ref)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll %s into view: %w", ref, err)
	}
	if _, err := el.Interactable(); err != nil {
		return fmt.Errorf("click on %s intercepted: %w", ref, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *Driver) Clear(ctx context.Context, ref browser.ElementRef) error {
	return d.ExecuteScript(ctx, browser.ClearScript(ref), nil)
}

func (d *Driver) SendKeys(ctx context.Context, ref browser.ElementRef, text string) error {
	el, err := d.element(ctx, ref)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (d *Driver) Text(ctx context.Context, ref browser.ElementRef) (string, error) {
	el, err := d.element(ctx, ref)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return strings.TrimSpace(text), err
}

func (d *Driver) Attribute(ctx context.Context, ref browser.ElementRef, name string) (string, bool, error) {
	el, err := d.element(ctx, ref)
	if err != nil {
		return "", false, err
	}
	value, err := el.Attribute(name)
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

// ExecuteScript evaluates a JavaScript expression and decodes its value into res.
func (d *Driver) ExecuteScript(ctx context.Context, script string, res any) error {
	obj, err := d.on(ctx).Evaluate(rod.Eval("() => (" + script + ")").ByPromise())
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	return obj.Value.Unmarshal(res)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.on(ctx).Screenshot(false, nil)
}

// DismissAlert dismisses an open JavaScript dialog. A missing dialog is
// reported by the browser as an error and translated into dismissed=false.
func (d *Driver) DismissAlert(ctx context.Context) (bool, error) {
	err := proto.PageHandleJavaScriptDialog{Accept: false}.Call(d.on(ctx))
	if err == nil {
		return true, nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "no dialog is showing") {
		return false, nil
	}
	return false, err
}

func (d *Driver) Maximize(ctx context.Context) error {
	return d.on(ctx).SetWindow(&proto.BrowserBounds{WindowState: proto.BrowserWindowStateMaximized})
}

func (d *Driver) SetViewport(ctx context.Context, width, height int) error {
	return proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}.Call(d.on(ctx))
}

func (d *Driver) ProcessID() string { return d.pid }

// Quit closes the browser over the protocol and then makes sure the process
// and its temporary profile are gone.
func (d *Driver) Quit(ctx context.Context) error {
	d.quitOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- d.browser.Close() }()

		select {
		case err := <-done:
			if err != nil {
				d.quitErr = fmt.Errorf("failed to close edge: %w", err)
			}
		case <-ctx.Done():
			d.quitErr = fmt.Errorf("timed out closing edge: %w", ctx.Err())
		}
		d.launcher.Kill()
		d.launcher.Cleanup()
	})
	return d.quitErr
}

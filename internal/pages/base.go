// internal/pages/base.go
package pages

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// displayCheckTimeout bounds IsDisplayed, which is a query rather than an expectation.
const displayCheckTimeout = 2 * time.Second

// Base carries the vocabulary every page object shares. Concrete pages embed
// it and declare their own locators.
type Base struct {
	harness *browser.Harness
	ec      browser.ExecutionContext
	logger  *zap.Logger
}

// NewBase binds a page to the session owned by ec.
func NewBase(h *browser.Harness, ec browser.ExecutionContext, logger *zap.Logger) *Base {
	return &Base{
		harness: h,
		ec:      ec,
		logger:  logger.Named("page").With(zap.String("execution_context", string(ec))),
	}
}

// ExecutionContext is the context the page acts in.
func (b *Base) ExecutionContext() browser.ExecutionContext { return b.ec }

func (b *Base) NavigateTo(ctx context.Context, url string) error {
	b.logger.Info("Navigating.", zap.String("url", url))
	return b.harness.Navigate(ctx, b.ec, url)
}

// WaitForPageLoad waits up to the page-load timeout for the document to be complete.
func (b *Base) WaitForPageLoad(ctx context.Context) error {
	s, err := b.harness.Session(b.ec)
	if err != nil {
		return err
	}
	out := browser.Await(ctx, browser.WaitSpec{
		Timeout:   s.Config().PageLoadTimeout,
		Predicate: b.scriptTrue(browser.ReadyStateScript),
		Label:     "page load",
	})
	return out.AsError("wait_for_page_load", b.ec)
}

func (b *Base) Click(ctx context.Context, ref browser.ElementRef) error {
	_, out := b.harness.Interact(ctx, b.ec, browser.Interaction{Kind: browser.InteractClick, Ref: ref})
	return out.AsError("click", b.ec)
}

// EnterText replaces the content of a field.
func (b *Base) EnterText(ctx context.Context, ref browser.ElementRef, text string) error {
	_, out := b.harness.Interact(ctx, b.ec, browser.Interaction{Kind: browser.InteractType, Ref: ref, Text: text})
	return out.AsError("type", b.ec)
}

func (b *Base) Text(ctx context.Context, ref browser.ElementRef) (string, error) {
	text, out := b.harness.Interact(ctx, b.ec, browser.Interaction{Kind: browser.InteractRead, Ref: ref})
	return text, out.AsError("read", b.ec)
}

func (b *Base) Attribute(ctx context.Context, ref browser.ElementRef, name string) (string, error) {
	value, out := b.harness.Interact(ctx, b.ec, browser.Interaction{
		Kind: browser.InteractRead,
		Ref:  ref,
		Read: browser.ReadOptions{Attribute: name},
	})
	return value, out.AsError("read_attribute", b.ec)
}

// IsDisplayed reports whether ref becomes visible within a short window.
// Absence is a normal answer, never an error.
func (b *Base) IsDisplayed(ctx context.Context, ref browser.ElementRef) bool {
	out := browser.Await(ctx, browser.WaitSpec{
		Timeout:   displayCheckTimeout,
		Predicate: b.scriptTrue(browser.VisibleScript(ref)),
		Label:     "displayed " + ref.String(),
	})
	return out.Succeeded
}

func (b *Base) ScrollIntoView(ctx context.Context, ref browser.ElementRef) error {
	return b.harness.Evaluate(ctx, b.ec, browser.ScrollIntoViewScript(ref), nil)
}

// SelectByVisibleText picks the option of a <select> whose text matches.
func (b *Base) SelectByVisibleText(ctx context.Context, ref browser.ElementRef, text string) error {
	var selected bool
	if err := b.harness.Evaluate(ctx, b.ec, browser.SelectByTextScript(ref, text), &selected); err != nil {
		return err
	}
	if !selected {
		return browser.NewError(browser.KindInteractionFailure, "select", b.ec, fmt.Errorf("no option %q in %s", text, ref))
	}
	return nil
}

func (b *Base) PageTitle(ctx context.Context) (string, error) {
	var title string
	err := b.harness.Evaluate(ctx, b.ec, browser.TitleScript, &title)
	return title, err
}

func (b *Base) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := b.harness.Evaluate(ctx, b.ec, browser.LocationScript, &url)
	return url, err
}

// DismissDialogs clears alerts and overlays that may block the next step.
func (b *Base) DismissDialogs(ctx context.Context) int {
	n, err := b.harness.DismissDialogs(ctx, b.ec)
	if err != nil {
		b.logger.Debug("Dialog dismissal skipped.", zap.Error(err))
	}
	return n
}

func (b *Base) scriptTrue(script string) browser.Predicate {
	return func(ctx context.Context) (bool, error) {
		var ok bool
		err := b.harness.Evaluate(ctx, b.ec, script, &ok)
		return ok, err
	}
}

// internal/browser/cdp/stealth.go
package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// automationMaskScript hides the automation markers that make storefront
// anti-bot widgets render interstitials.
const automationMaskScript = `(() => {
  Object.defineProperty(Navigator.prototype, "webdriver", { get: () => undefined, configurable: true });
  if (!window.chrome) { window.chrome = { runtime: {} }; }
})();`

// Persona pins locale-sensitive rendering (prices, dates) to fixed values.
type Persona struct {
	Locale   string
	Timezone string
}

// stealthTasks masks automation on every new document and applies the persona.
func stealthTasks(p *Persona) chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(automationMaskScript).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject automation mask: %w", err)
			}
			return nil
		}),
	}
	if p == nil {
		return tasks
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	return tasks
}

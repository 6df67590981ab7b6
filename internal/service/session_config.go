// internal/service/session_config.go
package service

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/config"
)

// SessionConfigFrom converts the loaded configuration into the immutable
// session settings the browser core works with. An unrecognized browser name
// falls back to chrome with a warning.
func SessionConfigFrom(cfg config.Interface, logger *zap.Logger) browser.SessionConfig {
	b := cfg.Browser()
	engine, ok := browser.ParseEngineKind(b.Engine)
	if !ok {
		logger.Warn("Unrecognized browser, falling back to chrome.", zap.String("browser", b.Engine))
	}

	sc := browser.SessionConfig{
		Engine:              engine,
		Headless:            b.Headless,
		ImplicitWait:        b.ImplicitWait(),
		ExplicitWait:        b.ExplicitWait(),
		PageLoadTimeout:     b.PageLoadTimeout(),
		ScreenshotOnFailure: b.ScreenshotOnFailure,
	}
	if len(b.ExecPaths) > 0 {
		sc.ExecPaths = make(map[browser.EngineKind]string, len(b.ExecPaths))
		for name, path := range b.ExecPaths {
			if kind, ok := browser.ParseEngineKind(name); ok {
				sc.ExecPaths[kind] = path
			}
		}
	}
	return sc
}

// ExecutorOptions derives interaction settings from the recovery section.
func ExecutorOptions(cfg config.RecoveryConfig) []browser.ExecutorOption {
	if cfg.StrictClick {
		return []browser.ExecutorOption{browser.WithStrictClick()}
	}
	return nil
}

// RecoveryOptions derives the controller's timing and dialog policy.
func RecoveryOptions(cfg config.RecoveryConfig) []browser.RecoveryOption {
	policy := browser.DefaultDialogPolicy()
	policy.DismissAlerts = cfg.DismissAlerts
	if len(cfg.DialogSelectors) > 0 {
		policy.Selectors = cfg.DialogSelectors
	}
	return []browser.RecoveryOption{
		browser.WithDialogPolicy(policy),
		browser.WithSettleDelay(cfg.SettleDelay),
		browser.WithQuitTimeout(cfg.QuitTimeout),
	}
}

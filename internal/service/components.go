// internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/artifacts"
	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// shutdownTimeout bounds the suite-level sweep when the caller's context is
// already gone.
const shutdownTimeout = 30 * time.Second

// Components holds the wired harness and the collaborators commands use directly.
type Components struct {
	Harness *browser.Harness
	// Files is the local screenshot directory, also used for pruning.
	Files *artifacts.FileSink

	logger *zap.Logger
}

// NewComponents bundles an already wired harness.
func NewComponents(h *browser.Harness, files *artifacts.FileSink, logger *zap.Logger) *Components {
	return &Components{Harness: h, Files: files, logger: logger.Named("components")}
}

// Shutdown releases every session still open. It is safe to call on a
// partially built Components.
func (c *Components) Shutdown(ctx context.Context) error {
	if c == nil || c.Harness == nil {
		return nil
	}
	c.logger.Debug("Beginning components shutdown sequence.")

	shutdownCtx, cancel := context.WithTimeout(browser.Detach(ctx), shutdownTimeout)
	defer cancel()
	if err := c.Harness.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("Error during harness shutdown.", zap.Error(err))
		return err
	}
	c.logger.Info("All harness components shut down.")
	return nil
}

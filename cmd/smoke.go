// cmd/smoke.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/observability"
	"github.com/xkilldash9x/storefront-harness/internal/pages"
	"github.com/xkilldash9x/storefront-harness/internal/service"
)

const metricsShutdownTimeout = 5 * time.Second

func newSmokeCmd(factory service.ComponentFactory) *cobra.Command {
	var (
		engine            string
		headless          bool
		screenshot        bool
		failureScreenshot bool
	)

	cmd := &cobra.Command{
		Use:   "smoke <url>",
		Short: "Open a browser session, load a page and release it",
		Long: `Acquires one session, navigates to the URL, dismisses any dialogs and
reports the page title. Useful for checking that a browser engine works on
this host before running a suite.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("engine") {
				cfg.SetBrowserEngine(engine)
			}
			if cmd.Flags().Changed("headless") {
				cfg.SetBrowserHeadless(headless)
			}
			if cmd.Flags().Changed("failure-screenshot") {
				cfg.SetScreenshotOnFailure(failureScreenshot)
			}

			ctx := cmd.Context()
			logger := observability.GetLogger().Named("smoke")

			if cfg.Metrics().Enabled {
				stop := serveMetrics(cfg.Metrics().Addr, logger)
				defer stop()
			}

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize harness: %w", err)
			}
			defer func() {
				if err := components.Shutdown(ctx); err != nil {
					logger.Warn("Shutdown reported errors.", zap.Error(err))
				}
			}()

			return runSmoke(ctx, cmd, components, args[0], screenshot, logger)
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "browser to use: chrome, firefox or edge (overrides the browser key)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without a visible window (overrides the headless key)")
	cmd.Flags().BoolVar(&screenshot, "screenshot", false, "store a screenshot of the loaded page")
	cmd.Flags().BoolVar(&failureScreenshot, "failure-screenshot", true, "capture a screenshot when the check fails (overrides the screenshot.on.failure key)")
	return cmd
}

func runSmoke(ctx context.Context, cmd *cobra.Command, components *service.Components, url string, screenshot bool, logger *zap.Logger) error {
	h := components.Harness
	ec := browser.NewExecutionContext()

	// 1. Acquire.
	if _, err := h.AcquireSession(ctx, ec, h.DefaultEngine()); err != nil {
		return err
	}
	page := pages.NewBase(h, ec, logger)

	// 2. Navigate.
	navErr := page.NavigateTo(ctx, url)
	if navErr == nil {
		// 3. Clear anything in the way.
		if n := page.DismissDialogs(ctx); n > 0 {
			logger.Info("Dismissed overlays.", zap.Int("count", n))
		}

		title, err := page.PageTitle(ctx)
		if err != nil {
			logger.Warn("Could not read page title.", zap.Error(err))
		}
		current, err := page.CurrentURL(ctx)
		if err != nil {
			current = url
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", current, title)

		// 4. Optional screenshot.
		if screenshot {
			location, err := captureSmoke(ctx, components, ec)
			if err != nil {
				logger.Warn("Screenshot not stored.", zap.Error(err))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "screenshot: %s\n", location)
			}
		}
	}

	// 5. Release. A navigation failure still gets its failure screenshot.
	return h.EndTest(ctx, ec, "smoke", navErr)
}

func captureSmoke(ctx context.Context, components *service.Components, ec browser.ExecutionContext) (string, error) {
	s, err := components.Harness.Session(ec)
	if err != nil {
		return "", err
	}
	png, err := s.Driver().Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}
	return components.Files.Store(ctx, "smoke", png)
}

// serveMetrics exposes the Prometheus registry until the returned func is called.
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics.", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed.", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server did not shut down cleanly.", zap.Error(err))
		}
	}
}

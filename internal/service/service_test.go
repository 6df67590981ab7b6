// internal/service/service_test.go
package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/storefront-harness/internal/artifacts"
	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/browser/browsertest"
	"github.com/xkilldash9x/storefront-harness/internal/browser/cdp"
	"github.com/xkilldash9x/storefront-harness/internal/browser/pwdriver"
	"github.com/xkilldash9x/storefront-harness/internal/browser/roddriver"
	"github.com/xkilldash9x/storefront-harness/internal/config"
	"github.com/xkilldash9x/storefront-harness/internal/mocks"
)

func loadConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("artifacts.dir", t.TempDir())
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestSessionConfigFrom(t *testing.T) {
	t.Run("maps every session key", func(t *testing.T) {
		cfg := loadConfig(t, map[string]any{
			"browser":                    "Edge",
			"headless":                   true,
			"implicit.wait":              2,
			"explicit.wait":              4,
			"page.load.timeout":          8,
			"screenshot.on.failure":      false,
			"browsers.firefox.exec_path": "/usr/lib/firefox/firefox",
		})

		sc := SessionConfigFrom(cfg, zaptest.NewLogger(t))

		assert.Equal(t, browser.EngineEdge, sc.Engine)
		assert.True(t, sc.Headless)
		assert.Equal(t, 2*time.Second, sc.ImplicitWait)
		assert.Equal(t, 4*time.Second, sc.ExplicitWait)
		assert.Equal(t, 8*time.Second, sc.PageLoadTimeout)
		assert.False(t, sc.ScreenshotOnFailure)
		assert.Equal(t, map[browser.EngineKind]string{browser.EngineFirefox: "/usr/lib/firefox/firefox"}, sc.ExecPaths)
	})

	t.Run("unknown browser falls back to chrome", func(t *testing.T) {
		cfg := loadConfig(t, map[string]any{"browser": "netscape"})
		sc := SessionConfigFrom(cfg, zaptest.NewLogger(t))
		assert.Equal(t, browser.EngineChrome, sc.Engine)
		assert.Nil(t, sc.ExecPaths)
	})
}

func TestSessionConfigFrom_IgnoresUnknownExecPaths(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("Browser").Return(config.BrowserConfig{
		Engine:                 "chrome",
		ExplicitWaitSeconds:    20,
		PageLoadTimeoutSeconds: 30,
		ExecPaths: map[string]string{
			"chrome": "/opt/google/chrome/chrome",
			"opera":  "/usr/bin/opera",
		},
	})

	sc := SessionConfigFrom(cfg, zaptest.NewLogger(t))

	assert.Equal(t, map[browser.EngineKind]string{browser.EngineChrome: "/opt/google/chrome/chrome"}, sc.ExecPaths)
	assert.Zero(t, sc.ImplicitWait)
	cfg.AssertExpectations(t)
}

func TestRecoveryOptions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	drv := new(mocks.MockDriver)
	drv.On("ProcessID").Return("100").Maybe()
	drv.On("Maximize", mock.Anything).Return(nil)
	drv.On("ExecuteScript", mock.Anything, mock.MatchedBy(func(script string) bool {
		return strings.Contains(script, ".cookie-banner") && !strings.Contains(script, "onetrust")
	}), mock.Anything).Run(browsertest.Result(1)).Return(nil).Once()
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything, mock.Anything).Return(drv, nil)

	factory := browser.NewSessionFactory(browsertest.FastConfig(), map[browser.EngineKind]browser.Launcher{
		browser.EngineChrome: launcher,
	}, logger)
	s, err := factory.Create(context.Background(), browser.EngineChrome)
	require.NoError(t, err)

	c := browser.NewRecoveryController(browser.NewSessionRegistry(), factory, nil, logger, RecoveryOptions(config.RecoveryConfig{
		QuitTimeout:     time.Second,
		DismissAlerts:   false,
		DialogSelectors: []string{".cookie-banner"},
	})...)

	assert.Equal(t, 1, c.DismissDialogs(context.Background(), s))
	drv.AssertNotCalled(t, "DismissAlert", mock.Anything)
	drv.AssertExpectations(t)
}

func TestExecutorOptions(t *testing.T) {
	assert.Empty(t, ExecutorOptions(config.RecoveryConfig{}))
	assert.Len(t, ExecutorOptions(config.RecoveryConfig{StrictClick: true}), 1)
}

func TestLaunchers(t *testing.T) {
	launchers := Launchers(config.NewDefaultConfig(), zaptest.NewLogger(t))

	require.Len(t, launchers, len(browser.Engines))
	assert.IsType(t, &cdp.Launcher{}, launchers[browser.EngineChrome])
	assert.IsType(t, &pwdriver.Launcher{}, launchers[browser.EngineFirefox])
	assert.IsType(t, &roddriver.Launcher{}, launchers[browser.EngineEdge])
}

func TestSinks(t *testing.T) {
	ctx := context.Background()

	t.Run("local only", func(t *testing.T) {
		dir := t.TempDir()
		files, sink, err := Sinks(ctx, config.ArtifactsConfig{Dir: dir}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, dir, files.Dir())
		assert.Same(t, files, sink)
	})

	t.Run("local and bucket", func(t *testing.T) {
		_, sink, err := Sinks(ctx, config.ArtifactsConfig{
			Dir: t.TempDir(),
			S3: config.S3Config{
				Enabled:         true,
				Bucket:          "qa-screenshots",
				Region:          "us-east-1",
				Endpoint:        "http://127.0.0.1:9000",
				AccessKeyID:     "test",
				SecretAccessKey: "test",
			},
		}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.IsType(t, &artifacts.MultiSink{}, sink)
	})
}

func TestCreateAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := loadConfig(t, map[string]any{"recovery.strict_click": true})
	components, err := NewComponentFactory().Create(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NotNil(t, components.Harness)
	require.NotNil(t, components.Files)
	assert.Equal(t, browser.EngineChrome, components.Harness.DefaultEngine())
	assert.Zero(t, components.Harness.ActiveSessions())
	assert.NoError(t, components.Shutdown(context.Background()))
}

func TestComponents_ShutdownNil(t *testing.T) {
	var c *Components
	assert.NoError(t, c.Shutdown(context.Background()))
}

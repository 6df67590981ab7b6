// internal/browser/pwdriver/driver_test.go
package pwdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

func TestLaunchOptions(t *testing.T) {
	cfg := browser.DefaultSessionConfig()
	cfg.Headless = true
	p := browser.BuildProfile(browser.EngineFirefox, cfg)
	p.ExecPath = "/opt/firefox/firefox"

	opts := launchOptions(p)

	require.NotNil(t, opts.Headless)
	assert.True(t, *opts.Headless)
	assert.Contains(t, opts.Args, "--width=1920")
	assert.Contains(t, opts.Args, "--height=1080")
	require.NotNil(t, opts.ExecutablePath)
	assert.Equal(t, "/opt/firefox/firefox", *opts.ExecutablePath)
	assert.Equal(t, p.Prefs, opts.FirefoxUserPrefs)
}

func TestTimeoutMS(t *testing.T) {
	assert.Nil(t, timeoutMS(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ms := timeoutMS(ctx)
	require.NotNil(t, ms)
	assert.InDelta(t, 5000, *ms, 200)

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, float64(1), *timeoutMS(expired))
}

func TestCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("returns result", func(t *testing.T) {
		v, err := call(context.Background(), func() (int, error) { return 2, nil })
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("returns error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := call(context.Background(), func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("gives up on context end", func(t *testing.T) {
		release := make(chan struct{})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := call(ctx, func() (int, error) { <-release; return 1, nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
	})
}

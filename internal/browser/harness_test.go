// internal/browser/harness_test.go
package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/browser/browsertest"
)

func TestAcquireSession_RejectsSecondSessionForContext(t *testing.T) {
	f := browsertest.NewFixture(t)
	ec := f.Acquire(t, browsertest.NewDriver("100"))

	_, err := f.Harness.AcquireSession(context.Background(), ec, browser.EngineChrome)

	assert.ErrorIs(t, err, browser.ErrAlreadyRegistered)
	f.Launcher.AssertNumberOfCalls(t, "Launch", 1)
	assert.Equal(t, 1, f.Harness.ActiveSessions())
}

func TestAcquireSession_IsolatesContexts(t *testing.T) {
	f := browsertest.NewFixture(t)
	a := f.Acquire(t, browsertest.NewDriver("100"))
	b := f.Acquire(t, browsertest.NewDriver("200"))

	sa, sb := session(t, f, a), session(t, f, b)
	assert.NotEqual(t, sa.ID(), sb.ID())
	assert.Equal(t, "100", sa.ProcessID())
	assert.Equal(t, "200", sb.ProcessID())
	assert.Equal(t, browser.StateReady, sa.State())
}

func TestReleaseSession(t *testing.T) {
	t.Run("quits and unregisters", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		drv := browsertest.NewDriver("100")
		ec := f.Acquire(t, drv)
		s := session(t, f, ec)
		drv.On("Quit", mock.Anything).Return(nil).Once()

		require.NoError(t, f.Harness.ReleaseSession(context.Background(), ec))
		assert.Equal(t, browser.StateTerminated, s.State())
		assert.False(t, f.Registry.Has(ec))
		drv.AssertExpectations(t)
	})

	t.Run("kills the process when quit fails", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		drv := browsertest.NewDriver("100")
		ec := f.Acquire(t, drv)
		drv.On("Quit", mock.Anything).Return(errors.New("timed out closing chrome"))
		f.Killer.On("TerminatePID", mock.Anything, "100").Return(nil).Once()

		require.NoError(t, f.Harness.ReleaseSession(context.Background(), ec))
		f.Killer.AssertExpectations(t)
	})

	t.Run("sweeps the engine when quit fails without a host pid", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		drv := browsertest.NewDriver("pw-abc")
		ec := f.Acquire(t, drv)
		s := session(t, f, ec)
		drv.On("Quit", mock.Anything).Return(errors.New("target closed"))
		f.Killer.On("TerminateByName", mock.Anything, "chrome").Return(nil).Once()
		f.Killer.On("TerminateByName", mock.Anything, "chromium").Return(nil).Once()

		require.NoError(t, f.Harness.ReleaseSession(context.Background(), ec))
		assert.Equal(t, browser.StateTerminated, s.State())
		f.Killer.AssertExpectations(t)
		f.Killer.AssertNotCalled(t, "TerminatePID", mock.Anything, mock.Anything)
	})

	t.Run("unknown context", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		err := f.Harness.ReleaseSession(context.Background(), browser.NewExecutionContext())
		assert.Equal(t, browser.KindSessionNotInitialized, browser.KindOf(err))
	})
}

func TestNavigate(t *testing.T) {
	const url = "https://shop.example.test/cart"

	t.Run("waits for document load", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		drv := browsertest.NewDriver("100")
		ec := f.Acquire(t, drv)
		drv.On("Navigate", mock.Anything, url).Return(nil)
		drv.On("ExecuteScript", mock.Anything, browser.ReadyStateScript, mock.Anything).
			Run(browsertest.Result(true)).Return(nil)

		require.NoError(t, f.Harness.Navigate(context.Background(), ec, url))
	})

	t.Run("navigation error", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		drv := browsertest.NewDriver("100")
		ec := f.Acquire(t, drv)
		drv.On("Navigate", mock.Anything, url).Return(errors.New("net::ERR_NAME_NOT_RESOLVED"))

		err := f.Harness.Navigate(context.Background(), ec, url)
		assert.Equal(t, browser.KindNavigationFailure, browser.KindOf(err))
		assert.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")
	})

	t.Run("page never completes", func(t *testing.T) {
		f := browsertest.NewFixture(t)
		drv := browsertest.NewDriver("100")
		ec := f.Acquire(t, drv)
		drv.On("Navigate", mock.Anything, url).Return(nil)
		drv.On("ExecuteScript", mock.Anything, browser.ReadyStateScript, mock.Anything).
			Run(browsertest.Result(false)).Return(nil)

		err := f.Harness.Navigate(context.Background(), ec, url)
		assert.Equal(t, browser.KindNavigationFailure, browser.KindOf(err))
		assert.ErrorIs(t, err, browser.ErrTimeout)
	})
}

func TestEndTest_FailureCapturesScreenshot(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("100")
	ec := f.Acquire(t, drv)
	png := []byte("\x89PNG")
	drv.On("Screenshot", mock.Anything).Return(png, nil).Once()
	drv.On("Quit", mock.Anything).Return(nil)
	f.Sink.On("Store", mock.Anything, "TestCheckout_FAILED", png).Return("screenshots/TestCheckout_FAILED.png", nil).Once()

	testErr := errors.New("expected total $42.00")
	err := f.Harness.EndTest(context.Background(), ec, "TestCheckout", testErr)

	assert.Same(t, testErr, err)
	assert.False(t, f.Registry.Has(ec))
	f.Sink.AssertExpectations(t)
}

func TestEndTest_CaptureFailureDoesNotMaskTestError(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("100")
	ec := f.Acquire(t, drv)
	drv.On("Screenshot", mock.Anything).Return(nil, errors.New("target crashed"))
	drv.On("Quit", mock.Anything).Return(nil)

	testErr := errors.New("assertion failed")
	assert.Same(t, testErr, f.Harness.EndTest(context.Background(), ec, "TestCart", testErr))
	f.Sink.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestEndTest_PassSkipsScreenshot(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("100")
	ec := f.Acquire(t, drv)
	drv.On("Quit", mock.Anything).Return(nil)

	require.NoError(t, f.Harness.EndTest(context.Background(), ec, "TestCart", nil))
	drv.AssertNotCalled(t, "Screenshot", mock.Anything)
}

func TestEndTest_ScreenshotsDisabled(t *testing.T) {
	cfg := browsertest.FastConfig()
	cfg.ScreenshotOnFailure = false
	f := browsertest.NewFixtureWithConfig(t, cfg)
	drv := browsertest.NewDriver("100")
	ec := f.Acquire(t, drv)
	drv.On("Quit", mock.Anything).Return(nil)

	_ = f.Harness.EndTest(context.Background(), ec, "TestCart", errors.New("failed"))
	drv.AssertNotCalled(t, "Screenshot", mock.Anything)
}

func TestEndTest_CancelledContextStillReleases(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("100")
	ec := f.Acquire(t, drv)
	drv.On("Quit", mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Harness.EndTest(ctx, ec, "TestCart", nil))
	drv.AssertExpectations(t)
}

func TestRecover_RepairFirstThenEmergency(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("1111")
	ec := f.Acquire(t, drv)
	drv.On("Reload", mock.Anything).Return(errors.New("renderer hung"))
	drv.On("ExecuteScript", mock.Anything, browser.LivenessScript, mock.Anything).Return(errors.New("renderer hung"))
	drv.On("Quit", mock.Anything).Return(nil)
	f.ServeDrivers(browsertest.NewDriver("2222"))

	fresh, err := f.Harness.Recover(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, "2222", fresh.ProcessID())
	assert.Equal(t, browser.StateReady, fresh.State())
}

func TestRecover_HungSessionWithoutHostPIDIsKilled(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("pw-abc")
	ec := f.Acquire(t, drv)
	old := session(t, f, ec)
	drv.On("Reload", mock.Anything).Return(errors.New("renderer hung"))
	drv.On("ExecuteScript", mock.Anything, browser.LivenessScript, mock.Anything).Return(errors.New("renderer hung"))
	drv.On("Quit", mock.Anything).Return(errors.New("renderer hung"))
	f.Killer.On("TerminateByName", mock.Anything, "chrome").Return(nil).Once()
	f.Killer.On("TerminateByName", mock.Anything, "chromium").Return(nil).Once()
	f.ServeDrivers(browsertest.NewDriver("pw-def"))

	fresh, err := f.Harness.Recover(context.Background(), ec)
	require.NoError(t, err)

	assert.Equal(t, "pw-def", fresh.ProcessID())
	assert.Equal(t, browser.StateTerminated, old.State())
	f.Killer.AssertExpectations(t)
	f.Killer.AssertNotCalled(t, "TerminatePID", mock.Anything, mock.Anything)
}

func TestRecover_FailedKillDuringRepairIsSweptByEmergency(t *testing.T) {
	f := browsertest.NewFixture(t)
	drv := browsertest.NewDriver("1111")
	ec := f.Acquire(t, drv)
	drv.On("Reload", mock.Anything).Return(errors.New("renderer hung"))
	drv.On("ExecuteScript", mock.Anything, browser.LivenessScript, mock.Anything).Return(errors.New("renderer hung"))
	drv.On("Quit", mock.Anything).Return(errors.New("renderer hung"))
	f.Killer.On("TerminatePID", mock.Anything, "1111").Return(errors.New("operation not permitted"))
	f.Killer.On("TerminateByName", mock.Anything, "chrome").Return(nil).Once()
	f.Killer.On("TerminateByName", mock.Anything, "chromium").Return(nil).Once()
	f.ServeDrivers(browsertest.NewDriver("2222"))

	fresh, err := f.Harness.Recover(context.Background(), ec)
	require.NoError(t, err)

	assert.Equal(t, "2222", fresh.ProcessID())
	f.Killer.AssertExpectations(t)
	f.Killer.AssertNumberOfCalls(t, "TerminatePID", 2)
}

func TestShutdown_ReleasesEverythingAndSweepsDirtyEngines(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := browsertest.NewFixture(t)
	clean := browsertest.NewDriver("100")
	stuck := browsertest.NewDriver("200")
	f.Acquire(t, clean)
	f.Acquire(t, stuck)
	clean.On("Quit", mock.Anything).Return(nil)
	stuck.On("Quit", mock.Anything).Return(errors.New("hung"))
	f.Killer.On("TerminatePID", mock.Anything, "200").Return(errors.New("operation not permitted"))
	f.Killer.On("TerminateByName", mock.Anything, "chrome").Return(nil).Once()
	f.Killer.On("TerminateByName", mock.Anything, "chromium").Return(nil).Once()

	err := f.Harness.Shutdown(context.Background())

	assert.ErrorContains(t, err, "operation not permitted")
	assert.Zero(t, f.Harness.ActiveSessions())
	f.Killer.AssertExpectations(t)
	assert.NoError(t, f.Harness.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestShutdown_NothingOpen(t *testing.T) {
	f := browsertest.NewFixture(t)
	require.NoError(t, f.Harness.Shutdown(context.Background()))
	f.Killer.AssertNotCalled(t, "TerminateByName", mock.Anything, mock.Anything)
}

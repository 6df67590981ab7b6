// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Artifacts() config.ArtifactsConfig {
	args := m.Called()
	return args.Get(0).(config.ArtifactsConfig)
}

func (m *MockConfig) Recovery() config.RecoveryConfig {
	args := m.Called()
	return args.Get(0).(config.RecoveryConfig)
}

func (m *MockConfig) Metrics() config.MetricsConfig {
	args := m.Called()
	return args.Get(0).(config.MetricsConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserEngine(name string) { m.Called(name) }
func (m *MockConfig) SetBrowserHeadless(b bool)    { m.Called(b) }

func (m *MockConfig) SetScreenshotOnFailure(b bool) {
	m.Called(b)
}

// -- Driver Mock --

// MockDriver mocks browser.Driver. ExecuteScript results are written into
// the res argument with mock.Call.Run, e.g.
//
//	drv.On("ExecuteScript", mock.Anything, browser.LivenessScript, mock.Anything).
//		Run(func(a mock.Arguments) { *a.Get(2).(*int) = 2 }).Return(nil)
type MockDriver struct {
	mock.Mock
}

var _ browser.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Reload(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) FindElement(ctx context.Context, ref browser.ElementRef) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) IsVisible(ctx context.Context, ref browser.ElementRef) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) IsEnabled(ctx context.Context, ref browser.ElementRef) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) Click(ctx context.Context, ref browser.ElementRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *MockDriver) Clear(ctx context.Context, ref browser.ElementRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *MockDriver) SendKeys(ctx context.Context, ref browser.ElementRef, text string) error {
	return m.Called(ctx, ref, text).Error(0)
}

func (m *MockDriver) Text(ctx context.Context, ref browser.ElementRef) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Attribute(ctx context.Context, ref browser.ElementRef, name string) (string, bool, error) {
	args := m.Called(ctx, ref, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDriver) ExecuteScript(ctx context.Context, script string, res any) error {
	return m.Called(ctx, script, res).Error(0)
}

func (m *MockDriver) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	var png []byte
	if b := args.Get(0); b != nil {
		png = b.([]byte)
	}
	return png, args.Error(1)
}

func (m *MockDriver) DismissAlert(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) Maximize(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockDriver) SetViewport(ctx context.Context, width, height int) error {
	return m.Called(ctx, width, height).Error(0)
}

func (m *MockDriver) ProcessID() string { return m.Called().String(0) }

func (m *MockDriver) Quit(ctx context.Context) error { return m.Called(ctx).Error(0) }

// -- Launcher Mock --

// MockLauncher mocks browser.Launcher.
type MockLauncher struct {
	mock.Mock
}

var _ browser.Launcher = (*MockLauncher)(nil)

func (m *MockLauncher) Launch(ctx context.Context, p browser.Profile) (browser.Driver, error) {
	args := m.Called(ctx, p)
	var drv browser.Driver
	if d := args.Get(0); d != nil {
		drv = d.(browser.Driver)
	}
	return drv, args.Error(1)
}

// -- Process Killer Mock --

// MockProcessKiller mocks browser.ProcessKiller.
type MockProcessKiller struct {
	mock.Mock
}

var _ browser.ProcessKiller = (*MockProcessKiller)(nil)

func (m *MockProcessKiller) TerminateByName(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

func (m *MockProcessKiller) TerminatePID(ctx context.Context, pid string) error {
	return m.Called(ctx, pid).Error(0)
}

// -- Artifact Sink Mock --

// MockArtifactSink mocks browser.ArtifactSink.
type MockArtifactSink struct {
	mock.Mock
}

var _ browser.ArtifactSink = (*MockArtifactSink)(nil)

func (m *MockArtifactSink) Store(ctx context.Context, name string, png []byte) (string, error) {
	args := m.Called(ctx, name, png)
	return args.String(0), args.Error(1)
}

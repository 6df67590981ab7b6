// internal/browser/roddriver/launcher.go
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// edgeBinaries are looked up on PATH when no exec path is configured.
var edgeBinaries = []string{"msedge", "microsoft-edge", "microsoft-edge-stable"}

// ErrBrowserNotFound is returned when no Edge binary can be located.
var ErrBrowserNotFound = errors.New("edge binary not found")

// Launcher starts Microsoft Edge through go-rod.
type Launcher struct {
	logger   *zap.Logger
	lookPath func(string) (string, error)
}

// NewLauncher returns a Launcher for the tertiary engine.
func NewLauncher(logger *zap.Logger) *Launcher {
	return &Launcher{logger: logger.Named("rod_launcher"), lookPath: exec.LookPath}
}

var _ browser.Launcher = (*Launcher)(nil)

// resolveBin prefers the configured path and falls back to PATH lookup.
func (l *Launcher) resolveBin(p browser.Profile) (string, error) {
	if p.ExecPath != "" {
		return p.ExecPath, nil
	}
	for _, name := range edgeBinaries {
		if path, err := l.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrBrowserNotFound
}

// configure applies a profile to a rod launcher.
func configure(lc *launcher.Launcher, bin string, p browser.Profile) *launcher.Launcher {
	lc = lc.Bin(bin).Headless(p.Headless).Leakless(false)
	for _, sw := range p.ExcludeSwitches {
		lc = lc.Delete(flags.Flag(sw))
	}
	for _, arg := range p.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if hasValue {
			lc = lc.Set(flags.Flag(name), value)
		} else {
			lc = lc.Set(flags.Flag(name))
		}
	}
	return lc
}

// Launch starts Edge, connects over its debugging URL and opens a blank tab.
func (l *Launcher) Launch(ctx context.Context, p browser.Profile) (browser.Driver, error) {
	bin, err := l.resolveBin(p)
	if err != nil {
		return nil, err
	}

	// The process must outlive the launch context.
	lc := configure(launcher.New().Context(browser.Detach(ctx)), bin, p)

	type launched struct {
		url string
		err error
	}
	started := make(chan launched, 1)
	go func() {
		u, err := lc.Launch()
		started <- launched{u, err}
	}()

	var controlURL string
	select {
	case res := <-started:
		if res.err != nil {
			lc.Kill()
			return nil, fmt.Errorf("failed to launch edge: %w", res.err)
		}
		controlURL = res.url
	case <-ctx.Done():
		lc.Kill()
		return nil, fmt.Errorf("timed out launching edge: %w", ctx.Err())
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lc.Kill()
		return nil, fmt.Errorf("failed to connect to edge: %w", err)
	}
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		lc.Kill()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	d := &Driver{
		browser:      b,
		page:         page.Context(context.Background()),
		launcher:     lc,
		implicitWait: p.ImplicitWait,
		pid:          strconv.Itoa(lc.PID()),
		logger:       l.logger,
	}
	l.logger.Debug("Edge started.", zap.String("pid", d.pid), zap.String("bin", bin), zap.Bool("headless", p.Headless))
	return d, nil
}

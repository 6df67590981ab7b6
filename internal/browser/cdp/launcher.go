// internal/browser/cdp/launcher.go
package cdp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// Launcher starts Chrome through a chromedp exec allocator.
type Launcher struct {
	logger  *zap.Logger
	persona *Persona
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithPersona pins locale and timezone for every launched browser.
func WithPersona(p Persona) Option {
	return func(l *Launcher) { l.persona = &p }
}

// NewLauncher returns a Launcher for the primary engine.
func NewLauncher(logger *zap.Logger, opts ...Option) *Launcher {
	l := &Launcher{logger: logger.Named("cdp_launcher")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ browser.Launcher = (*Launcher)(nil)

// flag is one command-line switch. A false value removes the switch.
type flag struct {
	Name  string
	Value any
}

// flagsFor lists the switches a profile adds on top of chromedp's defaults,
// in application order.
func flagsFor(p browser.Profile) []flag {
	var flags []flag
	for _, sw := range p.ExcludeSwitches {
		flags = append(flags, flag{Name: sw, Value: false})
	}
	flags = append(flags, flag{Name: "headless", Value: p.Headless})
	if p.Headless {
		flags = append(flags, flag{Name: "hide-scrollbars", Value: true})
	}
	for _, arg := range p.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if hasValue {
			flags = append(flags, flag{Name: name, Value: value})
			continue
		}
		flags = append(flags, flag{Name: name, Value: true})
	}
	return flags
}

// AllocatorOptions translates a profile into chromedp allocator options.
// Later options override earlier ones, so excluded defaults are switched off
// by appending them as false.
func AllocatorOptions(p browser.Profile) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range flagsFor(p) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	opts = append(opts, chromedp.WindowSize(p.Viewport.Width, p.Viewport.Height))
	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}
	return opts
}

// Launch starts a browser and verifies it can load a blank page before ctx
// expires. The browser itself outlives ctx.
func (l *Launcher) Launch(ctx context.Context, p browser.Profile) (browser.Driver, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(browser.Detach(ctx), AllocatorOptions(p)...)

	sugar := l.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)
	shutdown := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run allocates the browser, so it must run on the tab context
	// itself; the launch deadline is enforced around it.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx, append(stealthTasks(l.persona), chromedp.Navigate("about:blank"))...)
	}()
	select {
	case err := <-started:
		if err != nil {
			shutdown()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-ctx.Done():
		shutdown()
		return nil, fmt.Errorf("timed out starting chrome: %w", ctx.Err())
	}

	d := &Driver{
		tabCtx:       tabCtx,
		shutdown:     shutdown,
		implicitWait: p.ImplicitWait,
		logger:       l.logger,
	}
	if c := chromedp.FromContext(tabCtx); c != nil && c.Browser != nil {
		if proc := c.Browser.Process(); proc != nil {
			d.pid = strconv.Itoa(proc.Pid)
		}
	}
	l.logger.Debug("Chrome started.", zap.String("pid", d.pid), zap.Bool("headless", p.Headless))
	return d, nil
}

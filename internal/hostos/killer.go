// internal/hostos/killer.go
package hostos

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// runFunc runs a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Killer terminates browser processes with the host's process tools.
type Killer struct {
	goos   string
	run    runFunc
	logger *zap.Logger
}

// NewKiller returns a Killer for the current operating system.
func NewKiller(logger *zap.Logger) *Killer {
	return &Killer{goos: runtime.GOOS, run: runCommand, logger: logger.Named("process_killer")}
}

var _ browser.ProcessKiller = (*Killer)(nil)

// TerminateByName kills every process whose name matches pattern. Command
// lines are not matched, so the harness's own "--browser chrome" survives.
// No matching process is not an error.
func (k *Killer) TerminateByName(ctx context.Context, pattern string) error {
	if pattern == "" {
		return errors.New("empty process pattern")
	}
	name, args := k.byNameCommand(pattern)
	return k.exec(ctx, nameMissingCodes, name, args...)
}

// TerminatePID kills one process. A process that is already gone is not an error.
func (k *Killer) TerminatePID(ctx context.Context, pid string) error {
	if pid == "" {
		return errors.New("empty process id")
	}
	name, args := k.byPIDCommand(pid)
	return k.exec(ctx, pidMissingCodes, name, args...)
}

func (k *Killer) byNameCommand(pattern string) (string, []string) {
	if k.goos == "windows" {
		image := pattern
		if !strings.HasSuffix(strings.ToLower(image), ".exe") {
			image += ".exe"
		}
		return "taskkill", []string{"/F", "/T", "/IM", image}
	}
	return "pkill", []string{"-9", pattern}
}

func (k *Killer) byPIDCommand(pid string) (string, []string) {
	if k.goos == "windows" {
		return "taskkill", []string{"/F", "/T", "/PID", pid}
	}
	return "kill", []string{"-9", pid}
}

func (k *Killer) exec(ctx context.Context, missing []int, name string, args ...string) error {
	out, err := k.run(ctx, name, args...)
	if err == nil {
		k.logger.Debug("Process command succeeded.", zap.String("command", name), zap.Strings("args", args))
		return nil
	}
	if nothingToKill(err, out, missing) {
		k.logger.Debug("No matching process.", zap.String("command", name), zap.Strings("args", args))
		return nil
	}
	return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
}

var (
	// pkill exits 1 when nothing matched; taskkill exits 128.
	nameMissingCodes = []int{1, 128}
	// kill also exits 1 on EPERM, so for a PID only the output is trusted.
	pidMissingCodes = []int{128}
)

// nothingToKill recognizes the "no such process" outcomes of pkill, kill and
// taskkill. missing lists the exit codes that mean nothing matched.
func nothingToKill(err error, out []byte, missing []int) bool {
	msg := strings.ToLower(string(out))
	if strings.Contains(msg, "not permitted") || strings.Contains(msg, "access is denied") {
		return false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && slices.Contains(missing, exitErr.ExitCode()) {
		return true
	}
	return strings.Contains(msg, "no such process") || strings.Contains(msg, "not found")
}

// internal/artifacts/file.go
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
)

// FileSink writes screenshots to a local directory.
type FileSink struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewFileSink creates dir (after "~" expansion) if needed.
func NewFileSink(dir string, logger *zap.Logger) (*FileSink, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand artifacts dir %q: %w", dir, err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir %q: %w", expanded, err)
	}
	return &FileSink{dir: expanded, now: time.Now, logger: logger.Named("file_sink")}, nil
}

var _ browser.ArtifactSink = (*FileSink)(nil)

// Dir is the resolved output directory.
func (f *FileSink) Dir() string { return f.dir }

func (f *FileSink) Store(_ context.Context, name string, png []byte) (string, error) {
	path := filepath.Join(f.dir, objectName(name, f.now()))
	err := os.WriteFile(path, png, 0o644)
	recordStore("file", err)
	if err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	f.logger.Info("Screenshot saved.", zap.String("path", path))
	return path, nil
}

// Prune removes screenshots last modified more than olderThan ago and
// returns how many were removed. Other files are left alone.
func (f *FileSink) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", f.dir, err)
	}
	cutoff := f.now().Add(-olderThan)

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		f.logger.Info("Pruned old screenshots.", zap.Int("removed", removed), zap.Duration("older_than", olderThan))
	}
	return removed, errors.Join(errs...)
}

// internal/artifacts/sink.go
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/storefront-harness/internal/browser"
	"github.com/xkilldash9x/storefront-harness/internal/observability"
)

// TimestampLayout is appended to every stored screenshot name.
const TimestampLayout = "2006-01-02_15-04-05"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize makes a test name safe to use as a file name or object key segment.
func sanitize(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	if s == "" || s == "_" {
		return "screenshot"
	}
	return s
}

// objectName is "<name>_<timestamp>.png".
func objectName(name string, at time.Time) string {
	return fmt.Sprintf("%s_%s.png", sanitize(name), at.Format(TimestampLayout))
}

func recordStore(sink string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	observability.ArtifactsStored.WithLabelValues(sink, result).Inc()
}

// MultiSink stores every screenshot in each of its sinks.
type MultiSink struct {
	sinks  []browser.ArtifactSink
	logger *zap.Logger
}

// NewMultiSink fans out to sinks in order.
func NewMultiSink(logger *zap.Logger, sinks ...browser.ArtifactSink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger.Named("artifacts")}
}

var _ browser.ArtifactSink = (*MultiSink)(nil)

// Store returns the first location written. A failing sink does not stop
// the rest; its error is joined into the result.
func (m *MultiSink) Store(ctx context.Context, name string, png []byte) (string, error) {
	var (
		first string
		errs  []error
	)
	for _, s := range m.sinks {
		loc, err := s.Store(ctx, name, png)
		if err != nil {
			m.logger.Warn("Screenshot sink failed.", zap.String("name", name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}

// Package testoutput sends helper logs to the test log so they interleave
// with the failing assertion.
package testoutput

import (
	"io"
	"testing"

	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/sirupsen/logrus"
)

// Capture routes the root logger into t at debug level until t finishes.
// Parallel tests must not use it, they would write into each other's output.
func Capture(t testing.TB) {
	t.Helper()
	var (
		out   io.Writer
		level logrus.Level
	)
	_ = logging.Set(func(l *logrus.Logger) error {
		out, level = l.Out, l.GetLevel()
		l.SetOutput(writer{t})
		l.SetLevel(logrus.DebugLevel)
		return nil
	})
	t.Cleanup(func() {
		_ = logging.Set(func(l *logrus.Logger) error {
			l.SetOutput(out)
			l.SetLevel(level)
			return nil
		})
	})
}

type writer struct {
	t testing.TB
}

func (w writer) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

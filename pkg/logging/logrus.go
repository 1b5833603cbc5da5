package logging

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is handed to each component. Entries carry the component name.
type Logger = logrus.FieldLogger

// Setter reconfigures the root logger.
type Setter func(*logrus.Logger) error

var (
	mu sync.Mutex
	// root writes to stderr only: stdout carries the command protocol.
	root = &logrus.Logger{
		Out:       os.Stderr,
		Formatter: &logrus.TextFormatter{FullTimestamp: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
		ExitFunc:  os.Exit,
	}
)

// New returns a logger tagged with the given component name.
func New(component string) Logger {
	return root.WithField("component", component)
}

// Set applies setter to the root logger.
func Set(setter Setter) error {
	mu.Lock()
	defer mu.Unlock()
	return setter(root)
}

// SetLevel parses lvl and applies it to the root logger. At trace level the
// output of every package manager command is logged as well.
func SetLevel(lvl string) error {
	l, err := logrus.ParseLevel(lvl)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	return Set(func(r *logrus.Logger) error {
		r.SetLevel(l)
		return nil
	})
}

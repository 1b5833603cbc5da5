package logging

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// JournalHook mirrors log entries into the systemd journal.
type JournalHook struct {
	levels []logrus.Level
	send   func(message string, priority journal.Priority, vars map[string]string) error
}

// Journal returns a Setter that installs a JournalHook on the root logger. It
// fails when journald is not reachable from this process.
func Journal() Setter {
	return func(r *logrus.Logger) error {
		if !journal.Enabled() {
			return errors.New("journald socket is not available")
		}
		r.AddHook(&JournalHook{levels: logrus.AllLevels, send: journal.Send})
		return nil
	}
}

// Fire is invoked when logrus logs an entry at one of the hook's levels.
func (hook *JournalHook) Fire(entry *logrus.Entry) error {
	vars := make(map[string]string, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			vars[journalField(k)] = err.Error()
			continue
		}
		vars[journalField(k)] = toString(v)
	}
	return hook.send(entry.Message, journalPriority(entry.Level), vars)
}

// Levels returns the log levels this hook is being applied to.
func (hook *JournalHook) Levels() []logrus.Level {
	return hook.levels
}

func journalPriority(lvl logrus.Level) journal.Priority {
	switch lvl {
	case logrus.PanicLevel:
		return journal.PriEmerg
	case logrus.FatalLevel:
		return journal.PriCrit
	case logrus.ErrorLevel:
		return journal.PriErr
	case logrus.WarnLevel:
		return journal.PriWarning
	case logrus.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalField upper cases a logrus field name and replaces anything journald
// rejects in a field name with an underscore.
func journalField(k string) string {
	b := []byte(k)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			b[i] = '_'
		}
	}
	if len(b) > 0 && b[0] == '_' {
		return "F" + string(b)
	}
	return string(b)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

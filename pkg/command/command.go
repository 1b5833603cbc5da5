// Package command decodes the helper's line protocol. Each input line is a
// JSON object naming an action; Decode turns it into one of the typed
// commands below, validating the fields that action needs.
package command

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Action is the verb of a command line.
type Action string

const (
	ActionWhatInstalled Action = "whatinstalled"
	ActionWhatAvailable Action = "whatavailable"
	ActionInstall       Action = "install"
	ActionFlushCache    Action = "flushcache"
)

var (
	// ErrMalformed is the cause of errors for lines that are not a JSON
	// command object.
	ErrMalformed = errors.New("malformed command")
	// ErrBadCommand is the cause of errors for an unknown action.
	ErrBadCommand = errors.New("bad command")
	// ErrMissingProvides is the cause of errors for query and install lines
	// without a package specification.
	ErrMissingProvides = errors.New("missing provides")
)

// Command is one decoded input line.
type Command interface {
	Action() Action
}

// Spec selects packages: Provides is resolved with best-query semantics and
// each non-nil filter narrows the result.
type Spec struct {
	Provides string
	Epoch    *int
	Version  *string
	Release  *string
	Arch     *string
}

// BaseName is the first word of Provides, used to report a miss.
func (s Spec) BaseName() string {
	fields := strings.Fields(s.Provides)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Query asks for the best installed or available package matching Spec.
type Query struct {
	Installed bool
	Spec      Spec
}

func (q *Query) Action() Action {
	if q.Installed {
		return ActionWhatInstalled
	}
	return ActionWhatAvailable
}

// Install selects the best available package matching Spec and installs it.
type Install struct {
	Spec Spec
}

func (*Install) Action() Action { return ActionInstall }

// FlushCache drops the cached system repository index.
type FlushCache struct{}

func (*FlushCache) Action() Action { return ActionFlushCache }

type line struct {
	Action   *string    `json:"action"`
	Provides *string    `json:"provides"`
	Epoch    *epochText `json:"epoch"`
	Version  *string    `json:"version"`
	Release  *string    `json:"release"`
	Arch     *string    `json:"arch"`
}

// epochText accepts an epoch given as a JSON number or a numeric string.
type epochText int

func (e *epochText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return errors.Errorf("epoch %s is not an integer", b)
	}
	*e = epochText(n)
	return nil
}

// Decode parses and validates one input line.
func Decode(b []byte) (Command, error) {
	var l line
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%v", err)
	}
	if l.Action == nil {
		return nil, errors.Wrap(ErrMalformed, "no action")
	}

	switch Action(*l.Action) {
	case ActionFlushCache:
		return &FlushCache{}, nil
	case ActionWhatInstalled, ActionWhatAvailable:
		spec, err := l.spec()
		if err != nil {
			return nil, err
		}
		return &Query{Installed: Action(*l.Action) == ActionWhatInstalled, Spec: spec}, nil
	case ActionInstall:
		spec, err := l.spec()
		if err != nil {
			return nil, err
		}
		return &Install{Spec: spec}, nil
	default:
		return nil, errors.Wrapf(ErrBadCommand, "action %q", *l.Action)
	}
}

func (l *line) spec() (Spec, error) {
	if l.Provides == nil || strings.TrimSpace(*l.Provides) == "" {
		return Spec{}, errors.Wrapf(ErrMissingProvides, "action %q", *l.Action)
	}
	s := Spec{
		Provides: *l.Provides,
		Version:  l.Version,
		Release:  l.Release,
		Arch:     l.Arch,
	}
	if l.Epoch != nil {
		e := int(*l.Epoch)
		s.Epoch = &e
	}
	return s, nil
}

package sack

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sense holds the comparison flags of a Reldep.
type Sense uint8

const (
	SenseLess Sense = 1 << iota
	SenseGreater
	SenseEqual
)

var senses = map[string]Sense{
	"<":  SenseLess,
	"<=": SenseLess | SenseEqual,
	"=":  SenseEqual,
	"==": SenseEqual,
	">=": SenseGreater | SenseEqual,
	">":  SenseGreater,
}

func (s Sense) String() string {
	var b strings.Builder
	if s&SenseLess != 0 {
		b.WriteString("<")
	}
	if s&SenseGreater != 0 {
		b.WriteString(">")
	}
	if s&SenseEqual != 0 {
		b.WriteString("=")
	}
	return b.String()
}

// Reldep is a capability with an optional version constraint, such as
// "libc.so.6" or "python3 >= 3.9".
type Reldep struct {
	Name    string
	Sense   Sense
	Epoch   int
	Version string
	Release string
}

// Versioned reports whether the reldep carries a constraint.
func (d Reldep) Versioned() bool {
	return d.Sense != 0 && d.Version != ""
}

func (d Reldep) String() string {
	if !d.Versioned() {
		return d.Name
	}
	evr := d.Version
	if d.Epoch != 0 {
		evr = strconv.Itoa(d.Epoch) + ":" + evr
	}
	if d.Release != "" {
		evr += "-" + d.Release
	}
	return d.Name + " " + d.Sense.String() + " " + evr
}

// ParseReldep parses "name", or "name op [epoch:]version[-release]".
func ParseReldep(s string) (Reldep, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return Reldep{Name: fields[0]}, nil
	case 2:
		// rpm prints unversioned provides with a trailing empty flag column
		if _, ok := senses[fields[1]]; ok {
			return Reldep{Name: fields[0]}, nil
		}
	case 3:
		sense, ok := senses[fields[1]]
		if !ok {
			return Reldep{}, errors.Errorf("reldep %q: unknown comparison %q", s, fields[1])
		}
		e, v, r, err := splitEVR(fields[2])
		if err != nil {
			return Reldep{}, errors.WithMessagef(err, "reldep %q", s)
		}
		return Reldep{Name: fields[0], Sense: sense, Epoch: e, Version: v, Release: r}, nil
	}
	return Reldep{}, errors.Errorf("reldep %q: unexpected form", s)
}

// splitEVR splits "[epoch:]version[-release]".
func splitEVR(s string) (int, string, string, error) {
	epoch := 0
	if i := strings.Index(s, ":"); i >= 0 {
		e, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, "", "", errors.Errorf("bad epoch in %q", s)
		}
		epoch, s = e, s[i+1:]
	}
	release := ""
	if i := strings.LastIndex(s, "-"); i >= 0 {
		s, release = s[:i], s[i+1:]
	}
	if s == "" {
		return 0, "", "", errors.Errorf("empty version in evr")
	}
	return epoch, s, release, nil
}

// Satisfies reports whether the provide d fulfils the requirement req. An
// unversioned provide or requirement matches on name alone.
func (d Reldep) Satisfies(req Reldep) bool {
	if d.Name != req.Name {
		return false
	}
	if !d.Versioned() || !req.Versioned() {
		return true
	}
	sense := compareEVR(d.Epoch, d.Version, d.Release, req.Epoch, req.Version, req.Release)
	switch {
	case sense < 0:
		return d.Sense&SenseGreater != 0 || req.Sense&SenseLess != 0
	case sense > 0:
		return d.Sense&SenseLess != 0 || req.Sense&SenseGreater != 0
	default:
		return (d.Sense&SenseEqual != 0 && req.Sense&SenseEqual != 0) ||
			(d.Sense&SenseLess != 0 && req.Sense&SenseLess != 0) ||
			(d.Sense&SenseGreater != 0 && req.Sense&SenseGreater != 0)
	}
}

package sack

import (
	"strconv"
	"strings"
)

// nevra is a parsed package specification. Empty fields and a nil epoch are
// wildcards.
type nevra struct {
	name    string
	epoch   *int
	version string
	release string
	arch    string
}

func (n nevra) predicates() []Predicate {
	preds := []Predicate{NameGlob(n.name)}
	if n.epoch != nil {
		preds = append(preds, EpochIs(*n.epoch))
	}
	if n.version != "" {
		preds = append(preds, VersionGlob(n.version))
	}
	if n.release != "" {
		preds = append(preds, ReleaseGlob(n.release))
	}
	if n.arch != "" {
		preds = append(preds, ArchGlob(n.arch))
	}
	return preds
}

// form parses a specification according to one NEVRA layout.
type form func(string) (nevra, bool)

// forms are tried in order, from the most to the least specific layout.
var forms = []form{
	formNEVRA,
	formNA,
	formName,
	formNEVR,
	formNEV,
}

func formName(s string) (nevra, bool) {
	return nevra{name: s}, s != ""
}

func formNA(s string) (nevra, bool) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return nevra{}, false
	}
	return nevra{name: s[:i], arch: s[i+1:]}, true
}

func formNEV(s string) (nevra, bool) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return nevra{}, false
	}
	n := nevra{name: s[:i], version: s[i+1:]}
	if j := strings.Index(n.version, ":"); j >= 0 {
		e, err := strconv.Atoi(n.version[:j])
		if err != nil || j == len(n.version)-1 {
			return nevra{}, false
		}
		n.epoch, n.version = &e, n.version[j+1:]
	}
	return n, true
}

func formNEVR(s string) (nevra, bool) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return nevra{}, false
	}
	n, ok := formNEV(s[:i])
	if !ok {
		return nevra{}, false
	}
	n.release = s[i+1:]
	return n, true
}

func formNEVRA(s string) (nevra, bool) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return nevra{}, false
	}
	n, ok := formNEVR(s[:i])
	if !ok {
		return nevra{}, false
	}
	n.arch = s[i+1:]
	return n, true
}

// BestQuery resolves a package specification the way a package manager
// resolves user input: the first NEVRA layout that names existing packages
// wins, otherwise the specification is matched against declared provides.
func BestQuery(q Query, spec string) Query {
	spec = strings.TrimSpace(spec)
	if !strings.ContainsAny(spec, " \t") {
		for _, f := range forms {
			n, ok := f(spec)
			if !ok {
				continue
			}
			if found := q.Filter(n.predicates()...); found.Len() > 0 {
				return found
			}
		}
	}

	req, err := ParseReldep(spec)
	if err != nil {
		return Query{}
	}
	return q.Filter(Provides(req))
}

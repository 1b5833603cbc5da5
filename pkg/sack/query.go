package sack

import (
	"path"
	"strings"
)

// Predicate selects packages in a Query.
type Predicate func(*Package) bool

// Query is an immutable view over packages of a Sack. Every narrowing method
// returns a new Query and leaves the receiver untouched.
type Query struct {
	pkgs []*Package
}

// NewQuery wraps pkgs, which must not be modified afterwards.
func NewQuery(pkgs []*Package) Query {
	return Query{pkgs: pkgs}
}

// Filter keeps packages matching every predicate.
func (q Query) Filter(preds ...Predicate) Query {
	out := make([]*Package, 0, len(q.pkgs))
outer:
	for _, p := range q.pkgs {
		for _, pred := range preds {
			if !pred(p) {
				continue outer
			}
		}
		out = append(out, p)
	}
	return Query{pkgs: out}
}

// Installed keeps packages of the system repository.
func (q Query) Installed() Query {
	return q.Filter(func(p *Package) bool { return p.Installed() })
}

// Available keeps packages offered by enabled repositories.
func (q Query) Available() Query {
	return q.Filter(func(p *Package) bool { return !p.Installed() })
}

func (q Query) Len() int {
	return len(q.pkgs)
}

// Packages returns a copy of the packages in the query.
func (q Query) Packages() []*Package {
	return append([]*Package(nil), q.pkgs...)
}

// Latest returns the package with the highest EVR, or nil for an empty
// query. Among equal EVRs the earliest package in the query wins.
func (q Query) Latest() *Package {
	var best *Package
	for _, p := range q.pkgs {
		if best == nil || Compare(p, best) > 0 {
			best = p
		}
	}
	return best
}

// glob matches s against a shell wildcard pattern. Classes may be negated
// with either [!...] or [^...]. A malformed pattern matches nothing.
func glob(pattern, s string) bool {
	ok, err := path.Match(strings.ReplaceAll(pattern, "[!", "[^"), s)
	return err == nil && ok
}

// EpochIs matches an exact epoch.
func EpochIs(epoch int) Predicate {
	return func(p *Package) bool { return p.Epoch == epoch }
}

func NameGlob(pattern string) Predicate {
	return func(p *Package) bool { return glob(pattern, p.Name) }
}

func VersionGlob(pattern string) Predicate {
	return func(p *Package) bool { return glob(pattern, p.Version) }
}

func ReleaseGlob(pattern string) Predicate {
	return func(p *Package) bool { return glob(pattern, p.Release) }
}

func ArchGlob(pattern string) Predicate {
	return func(p *Package) bool { return glob(pattern, p.Arch) }
}

// ArchIn matches any of the given architectures exactly.
func ArchIn(arches ...string) Predicate {
	return func(p *Package) bool {
		for _, a := range arches {
			if p.Arch == a {
				return true
			}
		}
		return false
	}
}

// Provides matches packages declaring a capability that satisfies req. The
// name of an unversioned req may be a glob.
func Provides(req Reldep) Predicate {
	return func(p *Package) bool {
		for _, prov := range p.Provides {
			if !req.Versioned() {
				if glob(req.Name, prov.Name) {
					return true
				}
				continue
			}
			if prov.Satisfies(req) {
				return true
			}
		}
		return false
	}
}

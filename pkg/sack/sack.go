// Package sack is the in-memory package index the helper answers queries
// from. It holds the system repository (installed packages) next to the
// packages offered by enabled repositories.
package sack

import (
	"sync"
	"time"

	"github.com/karlseguin/ccache"
)

const (
	memoTimeout = time.Hour
	memoSize    = 1000
)

// Sack is the combined package index.
type Sack struct {
	arch string

	mu        sync.RWMutex
	system    []*Package
	available []*Package

	memo *ccache.Cache
}

// New creates an empty sack for a host of the given native architecture.
func New(arch string) *Sack {
	return &Sack{
		arch: arch,
		memo: ccache.New(ccache.Configure().MaxSize(memoSize).ItemsToPrune(memoSize / 10)),
	}
}

// Arch is the native architecture of the host.
func (s *Sack) Arch() string {
	return s.arch
}

// LoadSystem replaces the system repository.
func (s *Sack) LoadSystem(pkgs []*Package) {
	s.mu.Lock()
	s.system = pkgs
	s.mu.Unlock()
	s.memo.Clear()
}

// LoadAvailable replaces the packages offered by enabled repositories.
func (s *Sack) LoadAvailable(pkgs []*Package) {
	s.mu.Lock()
	s.available = pkgs
	s.mu.Unlock()
	s.memo.Clear()
}

// Query returns every package in the sack, installed packages first.
func (s *Sack) Query() Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*Package, 0, len(s.system)+len(s.available))
	all = append(all, s.system...)
	all = append(all, s.available...)
	return Query{pkgs: all}
}

// BestQuery resolves spec over the whole sack. Results are remembered until
// either repository is reloaded.
func (s *Sack) BestQuery(spec string) Query {
	if item := s.memo.Get(spec); item != nil && !item.Expired() {
		if q, ok := item.Value().(Query); ok {
			return q
		}
	}
	q := BestQuery(s.Query(), spec)
	s.memo.Set(spec, q, memoTimeout)
	return q
}

package helper

import (
	"context"
	"os"

	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/bottlerocket-os/dnf-helper/pkg/platform"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Session is the helper's handle on the package database. The sack is filled
// on first use and kept for the life of the process.
type Session struct {
	log         logging.Logger
	platform    platform.Platform
	arch        string
	systemCache string

	sack *sack.Sack
}

// NewSession creates a session over p. Nothing is loaded until the first
// query. systemCache is the package manager's cached system repository index,
// removed by FlushCache.
func NewSession(p platform.Platform, arch, systemCache string) *Session {
	return &Session{
		log:         logging.New("session"),
		platform:    p,
		arch:        arch,
		systemCache: systemCache,
	}
}

// Sack returns the package index, loading the system repository and all
// enabled repositories the first time it is called.
func (s *Session) Sack(ctx context.Context) (*sack.Sack, error) {
	if s.sack != nil {
		return s.sack, nil
	}

	s.log.Info("filling sack")
	if err := platform.Ping(s.platform); err != nil {
		return nil, err
	}

	var system, available []*sack.Package
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		system, err = s.platform.LoadSystem(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		available, err = s.platform.LoadAvailable(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.WithMessage(err, "fill sack")
	}

	sk := sack.New(s.arch)
	sk.LoadSystem(system)
	sk.LoadAvailable(available)
	s.sack = sk

	s.log.WithField("installed", len(system)).WithField("available", len(available)).Info("sack filled")
	return s.sack, nil
}

// FlushCache removes the cached system repository index and reloads the
// system repository into the existing sack. Available repositories are kept
// as they are, so this is not a full reset of the session. A session that
// was never filled is filled once and not reloaded.
func (s *Session) FlushCache(ctx context.Context) error {
	if err := os.Remove(s.systemCache); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove system cache")
	}

	fresh := s.sack == nil
	sk, err := s.Sack(ctx)
	if err != nil || fresh {
		return err
	}

	s.log.WithField("cache", s.systemCache).Warn("flushcache reloads only the system repository")
	system, err := s.platform.LoadSystem(ctx)
	if err != nil {
		return errors.WithMessage(err, "reload system repository")
	}
	sk.LoadSystem(system)
	return nil
}

// Transaction starts an empty transaction against the session's sack.
func (s *Session) Transaction(ctx context.Context) (*Transaction, error) {
	sk, err := s.Sack(ctx)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		log:       s.log.WithField("transaction", true),
		platform:  s.platform,
		installed: sk.Query().Installed(),
	}, nil
}

package platform

import (
	"context"

	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/pkg/errors"
)

// Platform is the package manager the helper drives. It supplies repository
// metadata and carries out transactions; queries are answered from the sack
// without involving it.
type Platform interface {
	// Status reports whether the package manager is usable.
	Status() (Status, error)
	// LoadSystem reads the installed packages.
	LoadSystem(ctx context.Context) ([]*sack.Package, error)
	// LoadAvailable reads the packages offered by enabled repositories.
	LoadAvailable(ctx context.Context) ([]*sack.Package, error)
	// Resolve computes the packages that must be installed for goal to be
	// installed, including goal itself.
	Resolve(ctx context.Context, goal []*sack.Package, installed sack.Query) ([]*sack.Package, error)
	// Download fetches pkgs into local storage.
	Download(ctx context.Context, pkgs []*sack.Package) (*Download, error)
	// Apply installs downloaded packages on the system. The download is
	// consumed whether or not Apply succeeds.
	Apply(ctx context.Context, d *Download) error
}

// Status reports the readiness of the underlying platform.
type Status interface {
	// OK will return true when the platform is able to assert its status
	// response is accurately reporting from the underlying components.
	OK() bool
}

// Download is a set of package files fetched for a transaction.
type Download struct {
	Dir      string
	Files    []string
	Packages []*sack.Package
}

// Ping the platform to verify its liveliness and general usability based on its
// status. Platform consumers should utilize this method to consistently
// validate the platform before use.
func Ping(p Platform) error {
	status, err := p.Status()
	if err != nil {
		return errors.WithMessage(err, "could not retrieve platform status")
	}
	if !status.OK() {
		return errors.New("platform did not report OK status")
	}
	return nil
}

package helper

import (
	"context"

	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/bottlerocket-os/dnf-helper/pkg/platform"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/pkg/errors"
)

// Transaction stages packages and carries them through resolve, download and
// apply. Each step must follow the previous one.
type Transaction struct {
	log       logging.Logger
	platform  platform.Platform
	installed sack.Query

	goal       []*sack.Package
	installSet []*sack.Package
	download   *platform.Download
}

// Install stages pkg.
func (t *Transaction) Install(pkg *sack.Package) {
	t.log.WithField("package", pkg.NEVRA()).Info("staged for install")
	t.goal = append(t.goal, pkg)
}

// Resolve computes the install set of the staged packages.
func (t *Transaction) Resolve(ctx context.Context) error {
	set, err := t.platform.Resolve(ctx, t.goal, t.installed)
	if err != nil {
		return err
	}
	t.installSet = set
	t.log.WithField("packages", len(set)).Info("resolved")
	return nil
}

// InstallSet is the resolved set of packages to install.
func (t *Transaction) InstallSet() []*sack.Package {
	return t.installSet
}

// Download fetches the install set.
func (t *Transaction) Download(ctx context.Context) error {
	if t.installSet == nil {
		return errors.New("download before resolve")
	}
	d, err := t.platform.Download(ctx, t.installSet)
	if err != nil {
		return err
	}
	t.download = d
	t.log.WithField("files", len(d.Files)).Info("downloaded")
	return nil
}

// Do applies the downloaded transaction to the system.
func (t *Transaction) Do(ctx context.Context) error {
	if t.download == nil {
		return errors.New("apply before download")
	}
	d := t.download
	t.download = nil
	if err := t.platform.Apply(ctx, d); err != nil {
		return err
	}
	t.log.Info("applied")
	return nil
}

package helper

import (
	"github.com/bottlerocket-os/dnf-helper/pkg/command"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
)

// selectPackage picks the package a query or install refers to: the best
// query for spec.Provides, restricted to installed or available packages and
// narrowed by every filter given. The native architecture restriction is only
// kept when something survives it. The newest remaining package wins; nil
// means nothing matched.
func selectPackage(sk *sack.Sack, spec command.Spec, installed bool) *sack.Package {
	q := sk.BestQuery(spec.Provides)
	if installed {
		q = q.Installed()
	} else {
		q = q.Available()
	}

	var preds []sack.Predicate
	if spec.Epoch != nil {
		preds = append(preds, sack.EpochIs(*spec.Epoch))
	}
	if spec.Version != nil {
		preds = append(preds, sack.VersionGlob(*spec.Version))
	}
	if spec.Release != nil {
		preds = append(preds, sack.ReleaseGlob(*spec.Release))
	}
	if spec.Arch != nil {
		preds = append(preds, sack.ArchGlob(*spec.Arch))
	}
	q = q.Filter(preds...)

	if archq := q.Filter(sack.ArchIn(sack.NoArch, sk.Arch())); archq.Len() > 0 {
		q = archq
	}

	return q.Latest()
}

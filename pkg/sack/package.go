package sack

import (
	"fmt"
	"strings"

	version "github.com/knqyf263/go-rpm-version"
)

// SystemRepo is the repository id of installed packages.
const SystemRepo = "@System"

// Package is one entry of the package index.
type Package struct {
	Name     string
	Epoch    int
	Version  string
	Release  string
	Arch     string
	Repo     string
	Provides []Reldep
}

// Installed reports whether the package comes from the system repository.
func (p *Package) Installed() bool {
	return p.Repo == SystemRepo
}

// EVR is the epoch:version-release triple of the package.
func (p *Package) EVR() string {
	return fmt.Sprintf("%d:%s-%s", p.Epoch, p.Version, p.Release)
}

// NEVRA names the exact package in the form accepted by dnf.
func (p *Package) NEVRA() string {
	return fmt.Sprintf("%s-%s.%s", p.Name, p.EVR(), p.Arch)
}

func (p *Package) String() string {
	return p.NEVRA()
}

// Compare orders a and b by EVR using rpm version comparison.
func Compare(a, b *Package) int {
	return compareEVR(a.Epoch, a.Version, a.Release, b.Epoch, b.Version, b.Release)
}

// compareEVR compares two EVRs. When either release is empty the releases are
// not compared, so "1.2" matches every release of version 1.2.
func compareEVR(e1 int, v1, r1 string, e2 int, v2, r2 string) int {
	if r1 == "" || r2 == "" {
		r1, r2 = "", ""
	}
	return version.NewVersion(evrString(e1, v1, r1)).Compare(version.NewVersion(evrString(e2, v2, r2)))
}

func evrString(e int, v, r string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%s", e, v)
	if r != "" {
		b.WriteString("-")
		b.WriteString(r)
	}
	return b.String()
}

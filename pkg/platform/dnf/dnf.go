// Package dnf binds the helper's platform to the host's rpm and dnf
// executables.
package dnf

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bottlerocket-os/dnf-helper/pkg/config"
	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/bottlerocket-os/dnf-helper/pkg/platform"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/bottlerocket-os/dnf-helper/pkg/supervise"
	"github.com/pkg/errors"
)

// Assert Platform as a platform implementor.
var _ platform.Platform = (*Platform)(nil)

type Platform struct {
	log         logging.Logger
	bin         runner
	rpm         string
	dnf         string
	downloadDir string
	arch        string
}

// New creates a platform running the executables named in cfg. Subprocesses
// are registered with guard so their exit is not taken for a shutdown signal.
func New(cfg *config.Config, arch string, guard *supervise.ChildGuard) *Platform {
	log := logging.New("dnf")
	return &Platform{
		log:         log,
		bin:         &executable{log: log, guard: guard},
		rpm:         cfg.RPM,
		dnf:         cfg.DNF,
		downloadDir: cfg.DownloadDir,
		arch:        arch,
	}
}

type statusResponse struct {
	ok bool
}

func (s *statusResponse) OK() bool { return s.ok }

// Status checks that both executables are present.
func (p *Platform) Status() (platform.Status, error) {
	for _, bin := range []string{p.rpm, p.dnf} {
		if _, err := exec.LookPath(bin); err != nil {
			return &statusResponse{}, errors.Wrapf(err, "package manager executable %q", bin)
		}
	}
	return &statusResponse{ok: true}, nil
}

func (p *Platform) LoadSystem(ctx context.Context) ([]*sack.Package, error) {
	p.log.Debug("loading system repository")
	out, err := p.bin.Run(ctx, p.rpm, "-qa", "--qf", rpmFormat)
	if err != nil {
		return nil, errors.WithMessage(err, "list installed packages")
	}
	pkgs, err := parsePackages(out, sack.SystemRepo)
	if err != nil {
		return nil, err
	}
	p.log.WithField("packages", len(pkgs)).Debug("loaded system repository")
	return pkgs, nil
}

func (p *Platform) LoadAvailable(ctx context.Context) ([]*sack.Package, error) {
	p.log.Debug("loading enabled repositories")
	out, err := p.bin.Run(ctx, p.dnf, "-q", "repoquery", "--available", "--qf", repoFormat)
	if err != nil {
		return nil, errors.WithMessage(err, "list available packages")
	}
	pkgs, err := parsePackages(out, "")
	if err != nil {
		return nil, err
	}
	p.log.WithField("packages", len(pkgs)).Debug("loaded enabled repositories")
	return pkgs, nil
}

func (p *Platform) Resolve(ctx context.Context, goal []*sack.Package, installed sack.Query) ([]*sack.Package, error) {
	if len(goal) == 0 {
		return nil, errors.New("nothing staged for install")
	}
	args := append([]string{"-q", "repoquery", "--requires", "--resolve", "--recursive", "--qf", resolveFormat}, nevras(goal)...)
	out, err := p.bin.Run(ctx, p.dnf, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "resolve dependencies")
	}
	closure, err := parsePackages(out, "")
	if err != nil {
		return nil, err
	}
	return installSet(goal, closure, installed, p.arch), nil
}

func (p *Platform) Download(ctx context.Context, pkgs []*sack.Package) (*platform.Download, error) {
	if err := os.MkdirAll(p.downloadDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create download directory")
	}
	dir, err := ioutil.TempDir(p.downloadDir, "transaction-")
	if err != nil {
		return nil, errors.Wrap(err, "create transaction directory")
	}

	args := append([]string{"-q", "download", "--destdir", dir}, nevras(pkgs)...)
	if _, err := p.bin.Run(ctx, p.dnf, args...); err != nil {
		os.RemoveAll(dir)
		return nil, errors.WithMessage(err, "download packages")
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rpm"))
	if err != nil || len(files) == 0 {
		os.RemoveAll(dir)
		return nil, errors.Errorf("no packages downloaded into %s", dir)
	}
	return &platform.Download{Dir: dir, Files: files, Packages: pkgs}, nil
}

func (p *Platform) Apply(ctx context.Context, d *platform.Download) error {
	defer os.RemoveAll(d.Dir)

	args := append([]string{"-y", "-q", "--cacheonly", "install"}, d.Files...)
	if _, err := p.bin.Run(ctx, p.dnf, args...); err != nil {
		return errors.WithMessage(err, "apply transaction")
	}
	return nil
}

func nevras(pkgs []*sack.Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, pkg.NEVRA())
	}
	return out
}

// installSet narrows a dependency closure to what a transaction installs: the
// goal, plus the newest candidate of each required name.arch that is
// installable on arch and newer than what is installed as that name.arch.
func installSet(goal, closure []*sack.Package, installed sack.Query, arch string) []*sack.Package {
	goals := map[string]bool{}
	arches := map[string]bool{sack.NoArch: true, arch: true}
	for _, pkg := range goal {
		goals[pkg.Name] = true
		arches[pkg.Arch] = true
	}
	have := map[string]*sack.Package{}
	for _, pkg := range installed.Packages() {
		key := pkg.Name + "." + pkg.Arch
		if cur, ok := have[key]; !ok || sack.Compare(pkg, cur) > 0 {
			have[key] = pkg
		}
	}

	var (
		order []string
		best  = map[string]*sack.Package{}
	)
	for _, pkg := range closure {
		if pkg.Installed() || goals[pkg.Name] || !arches[pkg.Arch] {
			continue
		}
		key := pkg.Name + "." + pkg.Arch
		if cur, ok := have[key]; ok && sack.Compare(cur, pkg) >= 0 {
			continue
		}
		cur, ok := best[key]
		if !ok {
			order = append(order, key)
		}
		if !ok || sack.Compare(pkg, cur) > 0 {
			best[key] = pkg
		}
	}

	out := append([]*sack.Package(nil), goal...)
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

package dnf

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bottlerocket-os/dnf-helper/pkg/config"
	"github.com/bottlerocket-os/dnf-helper/pkg/internal/testoutput"
	"github.com/bottlerocket-os/dnf-helper/pkg/platform"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/pkg/errors"
	"gotest.tools/assert"
)

type call struct {
	bin  string
	args []string
}

// fakeRunner answers commands by their first argument that is neither a flag
// nor a flag value.
type fakeRunner struct {
	calls   []call
	outputs map[string]string
	fail    map[string]error
	onRun   func(args []string)
}

func (f *fakeRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{bin: bin, args: args})
	verb := ""
	for i := 0; i < len(args); i++ {
		if args[i] == "--qf" || args[i] == "--destdir" {
			i++
			continue
		}
		if !strings.HasPrefix(args[i], "-") {
			verb = args[i]
			break
		}
	}
	if err := f.fail[verb]; err != nil {
		return nil, err
	}
	if f.onRun != nil {
		f.onRun(args)
	}
	return []byte(f.outputs[verb]), nil
}

func testPlatform(t *testing.T, r *fakeRunner) *Platform {
	testoutput.Capture(t)
	cfg := config.Default()
	cfg.DownloadDir = t.TempDir()
	p := New(cfg, "x86_64", nil)
	p.bin = r
	return p
}

const rpmOutput = recordMark + "\tbash\t0\t5.2.15\t1.fc38\tx86_64\n" +
	"/bin/sh\n" +
	"bash = 5.2.15-1.fc38\n" +
	"bash(x86-64) = 5.2.15-1.fc38\n" +
	recordMark + "\tgpg-pubkey\t0\t18b8e74c\t62f2920f\t(none)\n" +
	"gpg(Fedora (38) <fedora-38-primary@fedoraproject.org>) = 18b8e74c-62f2920f\n"

const repoOutput = "Last metadata expiration check: 0:01:02 ago\n" +
	recordMark + "\tbash\t0\t5.2.26\t3.fc40\tx86_64\tupdates\n" +
	"bash = 5.2.26-3.fc40\n" +
	"\n" +
	recordMark + "\tkernel\t1\t6.8.5\t301.fc40\tx86_64\tupdates\n" +
	"kernel = 1:6.8.5-301.fc40\n" +
	"kernel-uname-r = 6.8.5-301.fc40.x86_64\n"

func TestLoadSystem(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"": rpmOutput}}
	p := testPlatform(t, r)

	pkgs, err := p.LoadSystem(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, 2, len(pkgs))
	assert.Equal(t, "bash-0:5.2.15-1.fc38.x86_64", pkgs[0].NEVRA())
	assert.Equal(t, sack.SystemRepo, pkgs[0].Repo)
	assert.Equal(t, 3, len(pkgs[0].Provides))
	assert.Equal(t, "(none)", pkgs[1].Arch)

	assert.Equal(t, config.DefaultRPM, r.calls[0].bin)
	assert.DeepEqual(t, []string{"-qa", "--qf", rpmFormat}, r.calls[0].args)
}

func TestLoadAvailable(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"repoquery": repoOutput}}
	p := testPlatform(t, r)

	pkgs, err := p.LoadAvailable(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, 2, len(pkgs))
	assert.Equal(t, "updates", pkgs[0].Repo)
	assert.Equal(t, 1, pkgs[1].Epoch)
	assert.Equal(t, "kernel-uname-r", pkgs[1].Provides[1].Name)
	assert.Equal(t, config.DefaultDNF, r.calls[0].bin)
}

func TestLoadFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]error{"repoquery": errors.New("exit status 1")}}
	p := testPlatform(t, r)

	_, err := p.LoadAvailable(context.Background())
	assert.ErrorContains(t, err, "list available packages")
}

func TestParseBadRecord(t *testing.T) {
	_, err := parsePackages([]byte(recordMark+"\tbash\tzero\t1\t1\tx86_64\n"), sack.SystemRepo)
	assert.ErrorContains(t, err, "bad epoch")

	_, err = parsePackages([]byte(recordMark+"\tbash\t0\n"), sack.SystemRepo)
	assert.ErrorContains(t, err, "unexpected package record")
}

func mk(name, ver, arch, repo string) *sack.Package {
	return &sack.Package{Name: name, Version: ver, Release: "1", Arch: arch, Repo: repo}
}

func TestInstallSet(t *testing.T) {
	goal := []*sack.Package{mk("foo", "1.0", "x86_64", "fedora")}
	installed := sack.NewQuery([]*sack.Package{
		mk("glibc", "2.39", "x86_64", sack.SystemRepo),
		mk("zlib", "1.3", "x86_64", sack.SystemRepo),
		mk("tzdata", "2024b", "noarch", sack.SystemRepo),
	})
	closure := []*sack.Package{
		mk("glibc", "2.39", "x86_64", sack.SystemRepo),
		mk("glibc", "2.39", "x86_64", "fedora"),
		mk("glibc", "2.40", "x86_64", "updates"),
		mk("zlib", "1.3", "x86_64", "fedora"),
		mk("tzdata", "2024a", "noarch", "fedora"),
		mk("libbar", "1.0", "x86_64", "fedora"),
		mk("libbar", "1.1", "x86_64", "updates"),
		mk("libbar", "1.2", "i686", "updates"),
		mk("data", "3", "noarch", "fedora"),
		mk("foo", "1.0", "x86_64", "fedora"),
	}

	set := installSet(goal, closure, installed, "x86_64")
	// glibc is an upgrade the goal needs; zlib and tzdata are already
	// installed at the same or a newer version.
	assert.DeepEqual(t, []string{
		"foo-0:1.0-1.x86_64",
		"glibc-0:2.40-1.x86_64",
		"libbar-0:1.1-1.x86_64",
		"data-0:3-1.noarch",
	}, nevras(set))
}

func TestResolve(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"repoquery": recordMark + "\tlibbar\t0\t1.1\t1\tx86_64\tupdates\n",
	}}
	p := testPlatform(t, r)
	goal := []*sack.Package{mk("foo", "1.0", "x86_64", "fedora")}

	set, err := p.Resolve(context.Background(), goal, sack.NewQuery(nil))
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"foo-0:1.0-1.x86_64", "libbar-0:1.1-1.x86_64"}, nevras(set))
	assert.Equal(t, "foo-0:1.0-1.x86_64", r.calls[0].args[len(r.calls[0].args)-1])

	_, err = p.Resolve(context.Background(), nil, sack.NewQuery(nil))
	assert.ErrorContains(t, err, "nothing staged")
}

func TestDownloadApply(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{}}
	r.onRun = func(args []string) {
		for i, a := range args {
			if a == "--destdir" {
				assert.NilError(t, ioutil.WriteFile(filepath.Join(args[i+1], "foo-1.0-1.x86_64.rpm"), nil, 0o644))
			}
		}
	}
	p := testPlatform(t, r)
	pkgs := []*sack.Package{mk("foo", "1.0", "x86_64", "fedora")}

	d, err := p.Download(context.Background(), pkgs)
	assert.NilError(t, err)
	assert.Equal(t, 1, len(d.Files))
	assert.Equal(t, p.downloadDir, filepath.Dir(d.Dir))

	assert.NilError(t, p.Apply(context.Background(), d))
	last := r.calls[len(r.calls)-1]
	assert.DeepEqual(t, []string{"-y", "-q", "--cacheonly", "install", d.Files[0]}, last.args)

	_, err = os.Stat(d.Dir)
	assert.Assert(t, os.IsNotExist(err), "apply removes the transaction directory")
}

func TestDownloadNothing(t *testing.T) {
	p := testPlatform(t, &fakeRunner{})
	_, err := p.Download(context.Background(), []*sack.Package{mk("foo", "1.0", "x86_64", "fedora")})
	assert.ErrorContains(t, err, "no packages downloaded")

	entries, err := ioutil.ReadDir(p.downloadDir)
	assert.NilError(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestApplyFailureCleansUp(t *testing.T) {
	r := &fakeRunner{fail: map[string]error{"install": errors.New("exit status 1")}}
	p := testPlatform(t, r)
	dir, err := ioutil.TempDir(p.downloadDir, "transaction-")
	assert.NilError(t, err)

	err = p.Apply(context.Background(), &platform.Download{Dir: dir, Files: []string{filepath.Join(dir, "x.rpm")}})
	assert.ErrorContains(t, err, "apply transaction")
	_, err = os.Stat(dir)
	assert.Assert(t, os.IsNotExist(err))
}

func TestStatus(t *testing.T) {
	p := testPlatform(t, &fakeRunner{})
	p.rpm = filepath.Join(t.TempDir(), "missing-rpm")
	status, err := p.Status()
	assert.Assert(t, err != nil)
	assert.Assert(t, !status.OK())
	assert.Assert(t, platform.Ping(p) != nil)
}

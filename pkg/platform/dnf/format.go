package dnf

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/pkg/errors"
)

// recordMark starts every package record in query output. Lines following a
// record header up to the next one are the package's provides.
const recordMark = "@@PKG"

const (
	// rpmFormat lists installed packages with their provides.
	rpmFormat = recordMark + "\t%{NAME}\t%{EPOCHNUM}\t%{VERSION}\t%{RELEASE}\t%{ARCH}\n[%{PROVIDENEVRS}\n]"
	// repoFormat lists repository packages with their provides.
	repoFormat = recordMark + "\t%{name}\t%{epoch}\t%{version}\t%{release}\t%{arch}\t%{repoid}\n%{provides}"
	// resolveFormat lists packages without provides.
	resolveFormat = recordMark + "\t%{name}\t%{epoch}\t%{version}\t%{release}\t%{arch}\t%{repoid}"
)

// parsePackages reads query output in one of the formats above. Records
// without a repository column are assigned repo. Provides that cannot be
// represented in the index are skipped.
func parsePackages(out []byte, repo string) ([]*sack.Package, error) {
	var (
		pkgs []*sack.Package
		cur  *sack.Package
	)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, recordMark+"\t") {
			p, err := parseHeader(line, repo)
			if err != nil {
				return nil, err
			}
			pkgs = append(pkgs, p)
			cur = p
			continue
		}
		if cur == nil || strings.TrimSpace(line) == "" {
			continue
		}
		d, err := sack.ParseReldep(line)
		if err != nil {
			continue
		}
		cur.Provides = append(cur.Provides, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read package list")
	}
	return pkgs, nil
}

func parseHeader(line, repo string) (*sack.Package, error) {
	fields := strings.Split(line, "\t")[1:]
	if len(fields) != 5 && len(fields) != 6 {
		return nil, errors.Errorf("unexpected package record %q", line)
	}
	epoch, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.Errorf("bad epoch in package record %q", line)
	}
	p := &sack.Package{
		Name:    fields[0],
		Epoch:   epoch,
		Version: fields[2],
		Release: fields[3],
		Arch:    fields[4],
		Repo:    repo,
	}
	if len(fields) == 6 && fields[5] != "" {
		p.Repo = fields[5]
	}
	return p, nil
}

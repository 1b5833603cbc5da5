// Package helper runs the command loop: it reads one JSON command per line,
// answers it from the session's package index and writes one result line.
//
// The loop is deliberately brittle. Any malformed line, unknown action,
// missing install candidate or package manager failure ends Run with an
// error; retrying is left to the parent process.
package helper

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/bottlerocket-os/dnf-helper/pkg/command"
	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/pkg/errors"
)

// ErrNoAvailablePackage is the cause of an install error when nothing
// installable matches the command.
var ErrNoAvailablePackage = errors.New("no available package")

// Loop reads commands from in and writes results to out.
type Loop struct {
	log      logging.Logger
	in       *bufio.Reader
	out      *bufio.Writer
	session  *Session
	orphaned func() bool
}

// NewLoop creates a loop serving session. orphaned, when set, is consulted
// before every command and stops the loop once it reports true.
func NewLoop(in io.Reader, out io.Writer, session *Session, orphaned func() bool) *Loop {
	return &Loop{
		log:      logging.New("loop"),
		in:       bufio.NewReader(in),
		out:      bufio.NewWriter(out),
		session:  session,
		orphaned: orphaned,
	}
}

// Run processes commands until the input ends, the parent goes away or the
// reader of the results hangs up, all of which return nil. Any other outcome
// is an error the process should exit on. ctx is passed to the package
// manager commands.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if l.orphaned != nil && l.orphaned() {
			l.log.Info("parent process is gone, exiting")
			return nil
		}

		line, err := l.in.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "read command")
		}
		if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
			l.log.Debug("end of input")
			return nil
		}

		cmd, derr := command.Decode(line)
		if derr != nil {
			return derr
		}
		if derr := l.Dispatch(ctx, cmd); derr != nil {
			if errors.Is(derr, syscall.EPIPE) {
				l.log.Info("result reader is gone, exiting")
				return nil
			}
			return derr
		}
		if err == io.EOF {
			return nil
		}
	}
}

// Dispatch executes a single command.
func (l *Loop) Dispatch(ctx context.Context, cmd command.Command) error {
	l.log.WithField("action", cmd.Action()).Debug("dispatching")
	switch c := cmd.(type) {
	case *command.Query:
		return l.query(ctx, c)
	case *command.Install:
		return l.install(ctx, c)
	case *command.FlushCache:
		return l.session.FlushCache(ctx)
	default:
		return errors.Wrapf(command.ErrBadCommand, "action %q", cmd.Action())
	}
}

func (l *Loop) query(ctx context.Context, c *command.Query) error {
	sk, err := l.session.Sack(ctx)
	if err != nil {
		return err
	}
	return l.emit(c.Spec, selectPackage(sk, c.Spec, c.Installed))
}

func (l *Loop) install(ctx context.Context, c *command.Install) error {
	sk, err := l.session.Sack(ctx)
	if err != nil {
		return err
	}
	pkg := selectPackage(sk, c.Spec, false)
	if pkg == nil {
		return errors.Wrapf(ErrNoAvailablePackage, "%q", c.Spec.Provides)
	}

	txn, err := l.session.Transaction(ctx)
	if err != nil {
		return err
	}
	txn.Install(pkg)
	if err := txn.Resolve(ctx); err != nil {
		return errors.WithMessagef(err, "install %s", pkg)
	}
	if err := txn.Download(ctx); err != nil {
		return errors.WithMessagef(err, "install %s", pkg)
	}
	if err := txn.Do(ctx); err != nil {
		return errors.WithMessagef(err, "install %s", pkg)
	}
	return l.emit(c.Spec, pkg)
}

// emit writes the result line for spec. A nil pkg reports a miss.
func (l *Loop) emit(spec command.Spec, pkg *sack.Package) error {
	if pkg == nil {
		fmt.Fprintf(l.out, "%s nil nil\n", spec.BaseName())
	} else {
		fmt.Fprintf(l.out, "%s %d:%s-%s %s\n", pkg.Name, pkg.Epoch, pkg.Version, pkg.Release, pkg.Arch)
	}
	return errors.Wrap(l.out.Flush(), "write result")
}

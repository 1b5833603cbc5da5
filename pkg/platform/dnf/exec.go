package dnf

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/bottlerocket-os/dnf-helper/pkg/supervise"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// runner executes package manager commands and returns their standard output.
type runner interface {
	Run(ctx context.Context, bin string, args ...string) ([]byte, error)
}

type executable struct {
	log   logging.Logger
	guard *supervise.ChildGuard
}

func (e *executable) Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := e.log.WithFields(logrus.Fields{"cmd": cmd.String()})
	log.Debug("executing")

	if e.guard != nil {
		release := e.guard.Hold()
		defer release()
	}

	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("failed to start command")
		return nil, errors.Wrapf(err, "start %s", bin)
	}
	if err := cmd.Wait(); err != nil {
		log.WithError(err).WithField("stderr", stderr.String()).Error("command errored during run")
		return nil, errors.Wrapf(err, "%s: %s", bin, bytes.TrimSpace(stderr.Bytes()))
	}
	log.WithFields(logrus.Fields{
		"stdout": stdout.String(),
		"stderr": stderr.String(),
	}).Trace("command completed successfully")
	return stdout.Bytes(), nil
}

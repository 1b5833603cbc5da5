package main

import (
	"context"
	"io"
	"os"

	"github.com/bottlerocket-os/dnf-helper/pkg/config"
	"github.com/bottlerocket-os/dnf-helper/pkg/helper"
	"github.com/bottlerocket-os/dnf-helper/pkg/logging"
	"github.com/bottlerocket-os/dnf-helper/pkg/platform/dnf"
	"github.com/bottlerocket-os/dnf-helper/pkg/sack"
	"github.com/bottlerocket-os/dnf-helper/pkg/sigcontext"
	"github.com/bottlerocket-os/dnf-helper/pkg/supervise"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	os.Exit(_main(os.Args, os.Stdin, os.Stdout))
}

func _main(args []string, stdin io.Reader, stdout io.Writer) int {
	log := logging.New("main")
	if err := newApp(stdin, stdout).Run(args); err != nil {
		log.WithError(err).Error("helper stopped")
		return 1
	}
	return 0
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:  "dnf-helper",
		Usage: "answer package queries for a configuration management agent, one JSON command per line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "path to the helper configuration"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "arch", Usage: "native architecture, detected from the kernel when unset"},
			&cli.StringFlag{Name: "rpm", Usage: "rpm executable"},
			&cli.StringFlag{Name: "dnf", Usage: "dnf executable"},
			&cli.BoolFlag{Name: "journal", Usage: "mirror logs to the systemd journal"},
		},
		Writer:    os.Stderr,
		ErrWriter: os.Stderr,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return serve(cfg, stdin, stdout)
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("arch") {
		cfg.Arch = c.String("arch")
	}
	if c.IsSet("rpm") {
		cfg.RPM = c.String("rpm")
	}
	if c.IsSet("dnf") {
		cfg.DNF = c.String("dnf")
	}
	if c.IsSet("journal") {
		cfg.Journal = c.Bool("journal")
	}
	if c.Bool("debug") {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// serve runs the command loop until the input ends, the parent goes away or
// a shutdown signal arrives. Commands in flight when a signal arrives are
// abandoned, not cancelled: a running package manager child keeps going.
func serve(cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	log := logging.New("main")
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.Journal {
		if err := logging.Set(logging.Journal()); err != nil {
			log.WithError(err).Warn("not logging to the journal")
		}
	}

	arch := cfg.Arch
	if arch == "" {
		detected, err := sack.DetectArch()
		if err != nil {
			return errors.WithMessage(err, "detect architecture")
		}
		arch = detected
	}

	guard := supervise.NewChildGuard(supervise.DefaultSettle)
	ctx, cancel := sigcontext.WithFilteredSignalCancel(context.Background(), guard.Filter, supervise.ShutdownSignals...)
	defer cancel()

	ppid := os.Getppid()
	session := helper.NewSession(dnf.New(cfg, arch, guard), arch, cfg.SystemCache)
	loop := helper.NewLoop(stdin, stdout, session, func() bool { return supervise.Orphaned(ppid) })

	log.WithField("arch", arch).Debug("serving commands")
	done := make(chan error, 1)
	go func() {
		// Children are not tied to ctx: a signal abandons the command but
		// never kills a package manager halfway through a transaction.
		done <- loop.Run(context.Background())
	}()

	select {
	case <-ctx.Done():
		log.Debug("shutdown signal received")
		return nil
	case err := <-done:
		return err
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/pact-foundation/pact-install/internal/installer"
	"github.com/pact-foundation/pact-install/internal/logging"
)

// runInstall handles the `pact-install install` subcommand
func runInstall(args []string, stdout io.Writer) error {
	var common commonFlags
	var inst installFlags

	fs := pflag.NewFlagSet("install", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	common.register(fs)
	inst.register(fs)

	if err := parseFlags(fs, args, "pact-install install --dest DIR [flags]"); err != nil {
		return err
	}

	dest := inst.dest
	if dest == "" && fs.NArg() == 1 {
		dest = fs.Arg(0)
	}
	if dest == "" {
		return fmt.Errorf("destination directory is required (--dest DIR)")
	}
	if fs.NArg() > 1 || (inst.dest != "" && fs.NArg() > 0) {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	detector, err := newDetector(ctx, fs, &common)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, &common, detector)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, fs, &common, &inst); err != nil {
		return err
	}

	if err := logging.InitLog(cfg.Log.Level, cfg.Log.File); err != nil {
		return err
	}

	opts, err := cfg.InstallerOptions()
	if err != nil {
		return err
	}

	mgr, err := installer.NewManager(installer.Config{
		Detector: detector,
		Options:  opts,
		Logger:   logging.NewLogger(nil).With("dest", dest),
	})
	if err != nil {
		return err
	}

	res, err := mgr.Install(ctx, dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Installed %s into %s\n", res.Artifact.FileName(), dest)
	fmt.Fprintf(stdout, "Tools: %s\n", installer.BinDir(dest))
	return nil
}

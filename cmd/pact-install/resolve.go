package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/pact-foundation/pact-install/internal/installer"
)

// runResolve handles the `pact-install resolve` subcommand. It prints the
// artifact an install would fetch without touching the network.
func runResolve(args []string, stdout io.Writer) error {
	var common commonFlags

	fs := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	common.register(fs)

	if err := parseFlags(fs, args, "pact-install resolve [flags]"); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	ctx := context.Background()

	detector, err := newDetector(ctx, fs, &common)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, &common, detector)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, fs, &common, nil); err != nil {
		return err
	}

	opts, err := cfg.InstallerOptions()
	if err != nil {
		return err
	}

	mgr, err := installer.NewManager(installer.Config{Detector: detector, Options: opts})
	if err != nil {
		return err
	}

	res, err := mgr.Resolve(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "platform: %s\n", res.Description)
	fmt.Fprintf(stdout, "target:   %s\n", res.Target)
	fmt.Fprintf(stdout, "version:  %s\n", res.Artifact.Version)
	fmt.Fprintf(stdout, "suffix:   %s\n", res.Artifact.Suffix)
	fmt.Fprintf(stdout, "format:   %s\n", res.Target.Format())
	fmt.Fprintf(stdout, "uri:      %s\n", res.Artifact.URI)
	return nil
}

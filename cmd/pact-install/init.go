package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/pact-foundation/pact-install/internal/config"
)

// runInit handles the `pact-install init` subcommand: it writes a config
// file holding the defaults plus any flags given.
func runInit(args []string, stdout io.Writer) error {
	var common commonFlags
	var inst installFlags
	var output string
	var force bool

	fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	common.register(fs)
	inst.register(fs)
	fs.StringVarP(&output, "output", "o", config.DefaultFileName, "file to write")
	fs.BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	for _, name := range []string{"config", "dest", "platform", "32bit"} {
		_ = fs.MarkHidden(name)
	}

	if err := parseFlags(fs, args, "pact-install init [--output FILE] [flags]"); err != nil {
		return err
	}

	cfg := config.Default()
	if err := applyFlags(cfg, fs, &common, &inst); err != nil {
		return err
	}

	content, err := config.NewGenerator().Generate(cfg)
	if err != nil {
		return fmt.Errorf("generate config: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(output, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", output)
		}
		return fmt.Errorf("create %s: %w", output, err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", output, err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", output)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/pact-foundation/pact-install/internal/config"
	"github.com/pact-foundation/pact-install/internal/platform"
)

const configFileHint = config.DefaultFileName

// commonFlags are shared by every command that builds a configuration.
type commonFlags struct {
	configPath  string
	pactVersion string
	baseURL     string
	platform    string
	is32Bit     bool
	timeout     time.Duration
	logLevel    string
	logFile     string
}

func (f *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Lua config file (default: ./"+config.DefaultFileName+" if present)")
	fs.StringVar(&f.pactVersion, "pact-version", "", "standalone release to install (e.g. 1.54.4)")
	fs.StringVar(&f.baseURL, "base-url", "", "release host, e.g. a mirror of https://github.com")
	fs.StringVar(&f.platform, "platform", "", "platform description to resolve instead of the host (e.g. Linux-4.15.0-x86_64)")
	fs.BoolVar(&f.is32Bit, "32bit", false, "treat the host as 32-bit")
	fs.DurationVar(&f.timeout, "timeout", 0, "timeout for each HTTP request (e.g. 90s)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	fs.BoolP("help", "h", false, "show help")
}

// installFlags only apply to commands that install.
type installFlags struct {
	dest         string
	pristine     bool
	keepArchive  bool
	tempDir      string
	verify       string
	keyring      string
	noReceipt    bool
	maxEntrySize int64
}

func (f *installFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.dest, "dest", "d", "", "destination directory (required)")
	fs.BoolVar(&f.pristine, "pristine", false, "fail if the destination already exists")
	fs.BoolVar(&f.keepArchive, "keep-archive", false, "keep the downloaded archive in the temp directory")
	fs.StringVar(&f.tempDir, "temp-dir", "", "directory for the downloaded archive")
	fs.StringVar(&f.verify, "verify", "", "archive verification: none, checksum, gpg")
	fs.StringVar(&f.keyring, "keyring", "", "OpenPGP public keyring for --verify=gpg")
	fs.BoolVar(&f.noReceipt, "no-receipt", false, "do not write the install receipt")
	fs.Int64Var(&f.maxEntrySize, "max-entry-size", 0, "largest archive member in bytes")
}

// parseFlags parses args. It returns pflag.ErrHelp after printing usage
// when --help is given.
func parseFlags(fs *pflag.FlagSet, args []string, usage string) error {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if help, _ := fs.GetBool("help"); help {
		fs.Usage()
		return pflag.ErrHelp
	}
	return nil
}

// newDetector returns the host detector, or a fixed description when
// --platform or --32bit is given.
func newDetector(ctx context.Context, fs *pflag.FlagSet, f *commonFlags) (platform.Detector, error) {
	detector := platform.NewDetector()
	if !fs.Changed("platform") && !fs.Changed("32bit") {
		return detector, nil
	}

	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	if fs.Changed("platform") {
		info.Override = f.platform
	}
	if fs.Changed("32bit") {
		info.Is64Bit = !f.is32Bit
	}
	return platform.StaticDetector{Info: info}, nil
}

// loadConfig reads the config file, if any, over the defaults.
func loadConfig(ctx context.Context, f *commonFlags, detector platform.Detector) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return config.Default(), nil
			}
			return nil, fmt.Errorf("check %s: %w", config.DefaultFileName, err)
		}
		path = config.DefaultFileName
	}

	cfg, err := config.NewParser(detector).ParseFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %s", path, config.FormatError(err, false))
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, common *commonFlags, inst *installFlags) error {
	if fs.Changed("pact-version") {
		cfg.Release.Version = common.pactVersion
	}
	if fs.Changed("base-url") {
		cfg.Release.BaseURL = common.baseURL
	}
	if fs.Changed("timeout") {
		cfg.Install.Timeout = common.timeout
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = common.logLevel
	}
	if fs.Changed("log-file") {
		cfg.Log.File = common.logFile
	}

	if inst != nil {
		if fs.Changed("pristine") {
			cfg.Install.Pristine = inst.pristine
		}
		if fs.Changed("keep-archive") {
			cfg.Install.KeepArchive = inst.keepArchive
		}
		if fs.Changed("temp-dir") {
			cfg.Install.TempDir = inst.tempDir
		}
		if fs.Changed("verify") {
			cfg.Verify.Method = inst.verify
		}
		if fs.Changed("keyring") {
			cfg.Verify.Keyring = inst.keyring
		}
		if fs.Changed("no-receipt") {
			cfg.Install.Receipt = !inst.noReceipt
		}
		if fs.Changed("max-entry-size") {
			cfg.Install.MaxEntrySize = inst.maxEntrySize
		}
	}

	return cfg.Validate()
}

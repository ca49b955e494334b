package config

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/pact-foundation/pact-install/internal/installer"
)

// Config is the pact-install configuration. Zero-value sections are filled
// from Default before a file is applied, so every field is meaningful.
type Config struct {
	Release Release
	Install InstallOptions
	Verify  Verify
	Log     Log
}

// Release identifies the standalone bundle and where it is published.
type Release struct {
	Version string
	BaseURL string
	Owner   string
	Repo    string
	Name    string
}

// InstallOptions controls a single install run.
type InstallOptions struct {
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// KeepArchive leaves the downloaded archive in TempDir
	KeepArchive bool
	// Pristine refuses to install into an existing destination
	Pristine bool
	// TempDir receives the download (empty: OS default)
	TempDir string
	// MaxEntrySize caps each archive member in bytes
	MaxEntrySize int64
	// Receipt writes .pact-install.yaml into the destination
	Receipt bool
}

// Verify selects how the downloaded archive is checked.
type Verify struct {
	// Method is "none", "checksum" or "gpg"
	Method string
	// Keyring is the OpenPGP public keyring used for "gpg"
	Keyring string
}

// Log configures CLI logging.
type Log struct {
	Level string
	// File is a log file path; empty or "console" logs to stderr
	File string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Release: Release{
			Version: installer.DefaultVersion,
			BaseURL: installer.DefaultTemplate.BaseURL,
			Owner:   installer.DefaultTemplate.Owner,
			Repo:    installer.DefaultTemplate.Repo,
			Name:    installer.DefaultTemplate.Name,
		},
		Install: InstallOptions{
			Timeout:      installer.DefaultTimeout,
			MaxEntrySize: installer.DefaultMaxEntrySize,
			Receipt:      true,
		},
		Verify: Verify{Method: "none"},
		Log:    Log{Level: "info"},
	}
}

var (
	versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+([-+.][0-9A-Za-z.-]+)?$`)
	segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Validate performs validation on a Config.
func (c *Config) Validate() error {
	if !versionPattern.MatchString(c.Release.Version) {
		return &ValidationError{Field: "release.version", Message: fmt.Sprintf("invalid version %q (expected: 1.54.4)", c.Release.Version)}
	}

	if err := validateBaseURL(c.Release.BaseURL); err != nil {
		return &ValidationError{Field: "release.base_url", Message: err.Error()}
	}

	for field, value := range map[string]string{
		"release.owner": c.Release.Owner,
		"release.repo":  c.Release.Repo,
		"release.name":  c.Release.Name,
	} {
		if !segmentPattern.MatchString(value) || value == "." || value == ".." {
			return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URI segment %q", value)}
		}
	}

	if c.Install.Timeout < 0 {
		return &ValidationError{Field: "install.timeout", Message: "must not be negative"}
	}
	if c.Install.MaxEntrySize < 0 {
		return &ValidationError{Field: "install.max_entry_size", Message: "must not be negative"}
	}

	method, err := installer.ParseVerificationMethod(c.Verify.Method)
	if err != nil {
		return &ValidationError{Field: "verify.method", Message: err.Error()}
	}
	if method == installer.VerificationGPG && c.Verify.Keyring == "" {
		return &ValidationError{Field: "verify.keyring", Message: "required when method is \"gpg\""}
	}

	return nil
}

// InstallerOptions converts the configuration into installer options.
func (c *Config) InstallerOptions() (installer.Options, error) {
	if err := c.Validate(); err != nil {
		return installer.Options{}, err
	}

	method, _ := installer.ParseVerificationMethod(c.Verify.Method)
	policy := installer.DestinationReuse
	if c.Install.Pristine {
		policy = installer.DestinationPristine
	}

	return installer.Options{
		Version: c.Release.Version,
		Template: installer.ArtifactTemplate{
			BaseURL: c.Release.BaseURL,
			Owner:   c.Release.Owner,
			Repo:    c.Release.Repo,
			Name:    c.Release.Name,
		},
		Timeout:      c.Install.Timeout,
		TempDir:      c.Install.TempDir,
		KeepArchive:  c.Install.KeepArchive,
		Policy:       policy,
		Verification: method,
		KeyringPath:  c.Verify.Keyring,
		MaxEntrySize: c.Install.MaxEntrySize,
		WriteReceipt: c.Install.Receipt,
	}, nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// validateBaseURL accepts absolute http and https URLs.
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("URL must not carry a query or fragment: %q", raw)
	}
	return nil
}

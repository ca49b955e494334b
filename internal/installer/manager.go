package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pact-foundation/pact-install/internal/platform"
	"github.com/pact-foundation/pact-install/internal/transaction"
)

// Options holds everything that would otherwise be package-level state:
// the release to install, where it comes from, and the install policy.
type Options struct {
	// Version of the standalone release (default: DefaultVersion)
	Version string
	// Template builds the download URI (default: DefaultTemplate)
	Template ArtifactTemplate
	// Timeout bounds each HTTP request (default: DefaultTimeout)
	Timeout time.Duration
	// TempDir receives the downloaded archive (default: os.TempDir())
	TempDir string
	// KeepArchive leaves the downloaded archive in TempDir after install
	KeepArchive bool
	// Policy decides how an existing destination is treated
	Policy DestinationPolicy
	// Verification selects checksum or signature verification
	Verification VerificationMethod
	// KeyringPath is the OpenPGP keyring used by VerificationGPG
	KeyringPath string
	// MaxEntrySize caps each archive member (default: DefaultMaxEntrySize)
	MaxEntrySize int64
	// WriteReceipt records the install in the destination directory
	WriteReceipt bool
}

// Config holds configuration for the install manager
type Config struct {
	// Detector supplies the host platform (default: platform.NewDetector())
	Detector platform.Detector
	Options  Options
	// Logger receives progress events (default: no-op)
	Logger Logger
}

// Manager orchestrates platform resolution, download, verification and
// extraction. Installs into the same destination must not run concurrently;
// a lock file next to the destination enforces this.
type Manager struct {
	detector   platform.Detector
	opts       Options
	logger     Logger
	downloader *Downloader
	verifier   *Verifier
	extractor  *Extractor
	now        func() time.Time
}

// Resolution is the outcome of the network-free part of an install.
type Resolution struct {
	Platform    *platform.Info
	Description string
	Target      TargetPlatform
	Artifact    *ArtifactDescriptor
}

// NewManager creates a new install manager
func NewManager(config Config) (*Manager, error) {
	opts := config.Options
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Template == (ArtifactTemplate{}) {
		opts.Template = DefaultTemplate
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: %s", opts.Timeout)
	}
	if opts.Verification == VerificationGPG && opts.KeyringPath == "" {
		return nil, fmt.Errorf("GPG verification requires a keyring path")
	}

	detector := config.Detector
	if detector == nil {
		detector = platform.NewDetector()
	}

	logger := config.Logger
	if logger == nil {
		logger = &noopLogger{}
	}

	downloader := NewDownloader(opts.Timeout)

	return &Manager{
		detector:   detector,
		opts:       opts,
		logger:     logger,
		downloader: downloader,
		verifier:   NewVerifier(downloader, opts.KeyringPath),
		extractor:  NewExtractor(opts.MaxEntrySize),
		now:        time.Now,
	}, nil
}

// Resolve detects the platform and builds the artifact descriptor without
// touching the network or the filesystem.
func (m *Manager) Resolve(ctx context.Context) (*Resolution, error) {
	info, err := m.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	description := info.Description()
	target, suffix, err := Resolve(description, info.Is64Bit)
	if err != nil {
		return nil, err
	}

	artifact, err := NewArtifactDescriptor(m.opts.Template, m.opts.Version, suffix)
	if err != nil {
		return nil, fmt.Errorf("construct artifact descriptor: %w", err)
	}

	return &Resolution{
		Platform:    info,
		Description: description,
		Target:      target,
		Artifact:    artifact,
	}, nil
}

// Install resolves, downloads, verifies and extracts the standalone bundle
// into destDir and returns what it resolved. Every failure is returned as
// *InstallError naming the phase; nothing is retried.
func (m *Manager) Install(ctx context.Context, destDir string) (*Resolution, error) {
	if destDir == "" {
		return nil, &InstallError{Phase: PhasePrepare, Err: fmt.Errorf("destination directory is required")}
	}

	res, err := m.Resolve(ctx)
	if err != nil {
		return nil, &InstallError{Phase: PhaseResolve, Err: err}
	}
	m.logger.Info("resolved artifact",
		"platform", res.Description,
		"target", res.Target.String(),
		"uri", res.Artifact.URI)

	dest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, &InstallError{Phase: PhasePrepare, Err: fmt.Errorf("resolve destination: %w", err)}
	}

	lock, err := transaction.AcquireLock(ctx, dest)
	if err != nil {
		return nil, &InstallError{Phase: PhasePrepare, Err: err}
	}
	defer lock.Release()

	created, err := m.prepareDestination(dest)
	if err != nil {
		return nil, &InstallError{Phase: PhasePrepare, Err: err}
	}

	if err := m.install(ctx, res, dest); err != nil {
		if created {
			os.RemoveAll(dest)
		}
		return nil, err
	}

	return res, nil
}

// install runs the download, verify, extract and finalize phases.
func (m *Manager) install(ctx context.Context, res *Resolution, dest string) error {
	workDir, err := os.MkdirTemp(m.opts.TempDir, "pact-install-")
	if err != nil {
		return &InstallError{Phase: PhaseDownload, Err: fmt.Errorf("create temp dir: %w", err)}
	}
	if m.opts.KeepArchive {
		m.logger.Info("keeping downloaded archive", "dir", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	archivePath := filepath.Join(workDir, res.Artifact.FileName())
	m.logger.Debug("downloading", "uri", res.Artifact.URI, "path", archivePath)

	download, err := m.downloader.Download(ctx, res.Artifact, archivePath)
	if err != nil {
		return &InstallError{Phase: PhaseDownload, Err: err}
	}
	m.logger.Info("downloaded archive", "bytes", download.Size)

	if err := m.verifier.Verify(ctx, m.opts.Verification, res.Artifact, download.BodyPath); err != nil {
		return &InstallError{Phase: PhaseVerify, Err: err}
	}
	if m.opts.Verification != VerificationNone {
		m.logger.Info("verified archive", "method", m.opts.Verification.String())
	}

	plan, err := m.extractor.Plan(download.BodyPath, res.Target.Format(), dest)
	if err != nil {
		return &InstallError{Phase: PhaseExtract, Err: err}
	}
	if skipped := countSkipped(plan); skipped > 0 {
		m.logger.Warn("skipping unsupported archive members", "count", skipped)
	}
	if err := m.extractor.Apply(download.BodyPath, plan); err != nil {
		return &InstallError{Phase: PhaseExtract, Err: err}
	}
	m.logger.Info("extracted archive", "members", len(plan.Members), "dest", dest)

	if m.opts.WriteReceipt {
		if err := m.writeReceipt(res, plan, dest); err != nil {
			return &InstallError{Phase: PhaseFinalize, Err: err}
		}
	}

	return nil
}

// countSkipped returns the number of members Apply will not write, such as
// devices and fifos.
func countSkipped(plan *ExtractionPlan) int {
	skipped := 0
	for _, member := range plan.Members {
		if member.Kind == MemberSkip {
			skipped++
		}
	}
	return skipped
}

// prepareDestination applies the destination policy. It reports whether
// the directory was created by this call.
func (m *Manager) prepareDestination(dest string) (bool, error) {
	info, err := os.Stat(dest)
	switch {
	case err == nil:
		if m.opts.Policy == DestinationPristine {
			return false, &DestinationExistsError{Path: dest}
		}
		if !info.IsDir() {
			return false, fmt.Errorf("destination %s is not a directory", dest)
		}
		return false, nil

	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dest, 0755); err != nil {
			return false, fmt.Errorf("create destination: %w", err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("stat destination: %w", err)
	}
}

func (m *Manager) writeReceipt(res *Resolution, plan *ExtractionPlan, dest string) error {
	receipt := transaction.NewReceipt(m.now())
	receipt.Version = res.Artifact.Version
	receipt.Suffix = res.Artifact.Suffix
	receipt.URI = res.Artifact.URI
	receipt.Platform = res.Description
	receipt.Target = res.Target.String()
	receipt.Verification = m.opts.Verification.String()
	for _, member := range plan.Members {
		if member.Kind == MemberFile || member.Kind == MemberSymlink || member.Kind == MemberHardlink {
			receipt.Files = append(receipt.Files, filepath.ToSlash(member.Name))
		}
	}
	return receipt.Save(dest)
}

// BinDir returns the directory the bundle's executables unpack to.
func BinDir(destDir string) string {
	return filepath.Join(destDir, "pact", "bin")
}

// ToolPath returns where an installed tool lives under destDir. Windows
// ships .bat wrappers.
func ToolPath(destDir string, target TargetPlatform, tool string) string {
	if target == TargetWindows {
		tool += ".bat"
	}
	return filepath.Join(BinDir(destDir), tool)
}

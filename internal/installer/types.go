package installer

import (
	"fmt"
)

// TargetPlatform identifies the artifact flavour selected for a host.
type TargetPlatform int

const (
	// TargetUnsupported means no artifact exists for the host
	TargetUnsupported TargetPlatform = iota
	// TargetMacOS selects the osx archive
	TargetMacOS
	// TargetLinux32 selects the 32-bit Linux archive
	TargetLinux32
	// TargetLinux64 selects the 64-bit Linux archive
	TargetLinux64
	// TargetWindows selects the win32 zip
	TargetWindows
)

// String returns the string representation of the target
func (t TargetPlatform) String() string {
	switch t {
	case TargetMacOS:
		return "macOS"
	case TargetLinux32:
		return "Linux-32"
	case TargetLinux64:
		return "Linux-64"
	case TargetWindows:
		return "Windows"
	default:
		return "Unsupported"
	}
}

// Format returns the archive encoding published for the target.
func (t TargetPlatform) Format() ArchiveFormat {
	if t == TargetWindows {
		return FormatZip
	}
	return FormatTarGz
}

// ArchiveFormat is one of the two supported archive encodings.
type ArchiveFormat int

const (
	// FormatTarGz is a gzip-compressed tar stream
	FormatTarGz ArchiveFormat = iota
	// FormatZip is a zip file
	FormatZip
)

// String returns the string representation of the format
func (f ArchiveFormat) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatZip:
		return "zip"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// DefaultVersion is the Pact Ruby standalone release installed by default.
const DefaultVersion = "1.54.4"

// ArtifactTemplate holds the fixed parts of the release download URI:
// <BaseURL>/<Owner>/<Repo>/releases/download/v<version>/<Name>-<version>-<suffix>
type ArtifactTemplate struct {
	BaseURL string
	Owner   string
	Repo    string
	Name    string
}

// DefaultTemplate points at the pact-ruby-standalone GitHub releases.
var DefaultTemplate = ArtifactTemplate{
	BaseURL: "https://github.com",
	Owner:   "pact-foundation",
	Repo:    "pact-ruby-standalone",
	Name:    "pact",
}

// ArtifactDescriptor is the resolved identity of the archive to download.
// URI is derived from Version and Suffix at construction and never changes.
type ArtifactDescriptor struct {
	Version string
	Suffix  string
	URI     string
}

// DownloadResult describes a completed download. BodyPath is transient and
// is removed after extraction unless the archive is kept.
type DownloadResult struct {
	StatusCode int
	BodyPath   string
	Size       int64
}

// DestinationPolicy decides what happens when the destination directory
// already exists.
type DestinationPolicy int

const (
	// DestinationReuse creates the destination if absent and installs into
	// it if present.
	DestinationReuse DestinationPolicy = iota
	// DestinationPristine fails with DestinationExistsError if the
	// destination already exists.
	DestinationPristine
)

// String returns the string representation of the policy
func (p DestinationPolicy) String() string {
	switch p {
	case DestinationReuse:
		return "reuse"
	case DestinationPristine:
		return "pristine"
	default:
		return "unknown"
	}
}

// VerificationMethod indicates how a downloaded archive is verified
type VerificationMethod int

const (
	// VerificationNone skips verification
	VerificationNone VerificationMethod = iota
	// VerificationSHA256 checks the archive against its published .checksum file
	VerificationSHA256
	// VerificationGPG checks a detached OpenPGP signature (.asc)
	VerificationGPG
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// ParseVerificationMethod parses the config/flag spelling of a method.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	switch s {
	case "", "none":
		return VerificationNone, nil
	case "checksum", "sha256":
		return VerificationSHA256, nil
	case "gpg":
		return VerificationGPG, nil
	default:
		return VerificationNone, fmt.Errorf("unknown verification method: %q", s)
	}
}

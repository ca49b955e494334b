package installer

import (
	"fmt"
	"strings"
)

// Archive suffixes published for each target.
const (
	SuffixMacOS   = "osx.tar.gz"
	SuffixLinux64 = "linux-x86_64.tar.gz"
	SuffixLinux32 = "linux-x86.tar.gz"
	SuffixWindows = "win32.zip"
)

// Resolve maps a free-form platform description and the 64-bit flag to a
// target and its archive suffix. Matching is a case-insensitive substring
// test, checked in order: darwin/macos, linux, windows.
func Resolve(description string, is64Bit bool) (TargetPlatform, string, error) {
	desc := strings.ToLower(description)

	switch {
	case strings.Contains(desc, "darwin"), strings.Contains(desc, "macos"):
		return TargetMacOS, SuffixMacOS, nil
	case strings.Contains(desc, "linux") && is64Bit:
		return TargetLinux64, SuffixLinux64, nil
	case strings.Contains(desc, "linux"):
		return TargetLinux32, SuffixLinux32, nil
	case strings.Contains(desc, "windows"):
		return TargetWindows, SuffixWindows, nil
	default:
		return TargetUnsupported, "", &UnsupportedPlatformError{Description: description}
	}
}

// NewArtifactDescriptor builds the descriptor for version and suffix.
// Pattern: <base>/<owner>/<repo>/releases/download/v{version}/<name>-{version}-{suffix}
func NewArtifactDescriptor(tmpl ArtifactTemplate, version, suffix string) (*ArtifactDescriptor, error) {
	if version == "" {
		return nil, fmt.Errorf("version is required")
	}
	if suffix == "" {
		return nil, fmt.Errorf("suffix is required")
	}
	if tmpl.BaseURL == "" || tmpl.Owner == "" || tmpl.Repo == "" || tmpl.Name == "" {
		return nil, fmt.Errorf("incomplete artifact template: %+v", tmpl)
	}

	baseURL := fmt.Sprintf("%s/%s/%s/releases/download/v%s",
		strings.TrimRight(tmpl.BaseURL, "/"), tmpl.Owner, tmpl.Repo, version)
	fileName := fmt.Sprintf("%s-%s-%s", tmpl.Name, version, suffix)

	return &ArtifactDescriptor{
		Version: version,
		Suffix:  suffix,
		URI:     fmt.Sprintf("%s/%s", baseURL, fileName),
	}, nil
}

// FileName returns the archive's file name, the last URI segment.
func (a *ArtifactDescriptor) FileName() string {
	return a.URI[strings.LastIndex(a.URI, "/")+1:]
}

// ChecksumURI returns the URI of the published sha256sum file.
func (a *ArtifactDescriptor) ChecksumURI() string {
	return a.URI + ".checksum"
}

// SignatureURI returns the URI of the detached OpenPGP signature.
func (a *ArtifactDescriptor) SignatureURI() string {
	return a.URI + ".asc"
}

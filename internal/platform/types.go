// Package platform detects the host operating system and architecture and
// renders them as the free-form platform description the installer resolves
// artifacts from.
//
// Detection uses gopsutil for the kernel release and machine architecture and
// falls back to runtime.GOOS/GOARCH when the host cannot be queried.
package platform

import (
	"context"
	"strings"
)

// Info contains platform detection information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // normalized: "amd64", "386", "arm64", "arm"
	ArchRaw string // machine architecture as reported by the host (e.g. "x86_64")
	Release string // kernel release on Linux, product version on macOS/Windows
	Is64Bit bool   // pointer width of the running process

	// Override replaces the generated description when set.
	Override string
}

// Description renders the platform in the "<System>-<release>-<machine>"
// shape, e.g. "Linux-5.15.0-91-generic-x86_64" or "macOS-13.4-arm64".
func (i *Info) Description() string {
	if i.Override != "" {
		return i.Override
	}

	var system string
	switch i.OS {
	case "linux":
		system = "Linux"
	case "darwin":
		system = "macOS"
	case "windows":
		system = "Windows"
	default:
		system = titleCase(i.OS)
	}

	parts := []string{system}
	for _, part := range []string{i.Release, i.ArchRaw} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "-")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It backs the --platform override and
// lets tests pin the platform.
type StaticDetector struct {
	Info *Info
}

// Detect returns a copy of the fixed Info.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := *s.Info
	return &info, nil
}

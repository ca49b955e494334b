package platform

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect performs platform detection and returns platform information.
// OS comes from runtime.GOOS and the 64-bit flag from the pointer width of
// the running binary. gopsutil supplies the release and the machine
// architecture.
//
// If gopsutil fails, Release is left empty and ArchRaw falls back to
// runtime.GOARCH (graceful fallback). The OS name alone is enough for the
// installer to pick an artifact.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
		Is64Bit: strconv.IntSize == 64,
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		// Check if context was cancelled - this is a hard failure
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		info.Arch = normalizeArch(info.ArchRaw)
		return info, nil
	}

	if hostInfo.KernelArch != "" {
		info.ArchRaw = hostInfo.KernelArch
	}
	info.Arch = normalizeArch(info.ArchRaw)

	switch runtime.GOOS {
	case "linux":
		info.Release = normalizeRelease(hostInfo.KernelVersion)
	default:
		info.Release = normalizeRelease(hostInfo.PlatformVersion)
	}

	return info, nil
}

package platform

import (
	"strings"
)

// archMap maps kernel and Go architecture names to normalized names.
var archMap = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"x64":     "amd64",
	"386":     "386",
	"i386":    "386",
	"i686":    "386",
	"x86":     "386",
	"arm64":   "arm64",
	"aarch64": "arm64",
	"arm":     "arm",
	"armv7l":  "arm",
	"armv6l":  "arm",
}

// normalizeArch converts architecture names to normalized names.
// Unknown architectures are returned lowercased; support is decided by the
// installer, not here.
func normalizeArch(arch string) string {
	normalized := strings.ToLower(strings.TrimSpace(arch))
	if canonical, ok := archMap[normalized]; ok {
		return canonical
	}
	return normalized
}

// normalizeRelease trims whitespace and collapses inner spaces to dashes so
// the release fits in a dash-separated description.
func normalizeRelease(release string) string {
	return strings.Join(strings.Fields(release), "-")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Package testutil provides fixtures for testing pact-install in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv isolates a test from the host. The working directory moves to
// a fresh temp dir so no stray pact-install.lua is picked up, and TMPDIR
// points at a private directory for downloads.
//
// Cleanup is handled by t.TempDir and t.Chdir. Tests using it must not run
// in parallel.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	work := filepath.Join(root, "work")
	tmp := filepath.Join(root, "tmp")
	for _, dir := range []string{work, tmp} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("TMPDIR", tmp)
	t.Chdir(work)

	return work
}

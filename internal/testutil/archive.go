package testutil

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// Entry is one member of a fixture archive. Regular files are written when
// Link is empty; otherwise the entry is a symlink to Link.
type Entry struct {
	Name    string
	Content string
	Mode    int64
	Link    string
}

// StandaloneEntries returns the layout of a minimal pact standalone release.
func StandaloneEntries() []Entry {
	return []Entry{
		{Name: "pact/bin/pact-mock-service", Content: "#!/bin/sh\n", Mode: 0o755},
		{Name: "pact/bin/pact-provider-verifier", Content: "#!/bin/sh\n", Mode: 0o755},
		{Name: "pact/lib/app/pact.rb", Content: "# pact\n", Mode: 0o644},
	}
}

// TarGz builds a gzip-compressed tar archive.
func TarGz(t *testing.T, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, entry := range entries {
		header := &tar.Header{Name: entry.Name, Mode: entry.Mode, Typeflag: tar.TypeReg}
		if header.Mode == 0 {
			header.Mode = 0o644
		}
		if entry.Link != "" {
			header.Typeflag = tar.TypeSymlink
			header.Linkname = entry.Link
		} else {
			header.Size = int64(len(entry.Content))
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write tar header %s: %v", entry.Name, err)
		}
		if entry.Link == "" {
			if _, err := tarWriter.Write([]byte(entry.Content)); err != nil {
				t.Fatalf("failed to write tar content %s: %v", entry.Name, err)
			}
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// Zip builds a zip archive. Symlink entries are not supported.
func Zip(t *testing.T, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	for _, entry := range entries {
		if entry.Link != "" {
			t.Fatalf("zip fixture does not support symlink %s", entry.Name)
		}
		w, err := zipWriter.Create(entry.Name)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", entry.Name, err)
		}
		if _, err := w.Write([]byte(entry.Content)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", entry.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

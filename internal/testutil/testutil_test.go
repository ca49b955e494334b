package testutil_test

import (
	"archive/tar"
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/pact-foundation/pact-install/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	work := testutil.SetupTestEnv(t)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if resolved, _ := filepath.EvalSymlinks(work); wd != work && wd != resolved {
		t.Errorf("working directory = %s, want %s", wd, work)
	}

	tmp := os.Getenv("TMPDIR")
	if info, err := os.Stat(tmp); err != nil || !info.IsDir() {
		t.Errorf("TMPDIR %q is not a directory: %v", tmp, err)
	}
}

func TestTarGz(t *testing.T) {
	data := testutil.TarGz(t, []testutil.Entry{
		{Name: "pact/bin/pact", Content: "run", Mode: 0o755},
		{Name: "pact/bin/latest", Link: "pact"},
	})

	gzipReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	tarReader := tar.NewReader(gzipReader)

	first, err := tarReader.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if first.Name != "pact/bin/pact" || first.Mode != 0o755 {
		t.Errorf("first header = %s %o", first.Name, first.Mode)
	}
	body, _ := io.ReadAll(tarReader)
	if string(body) != "run" {
		t.Errorf("content = %q", body)
	}

	second, err := tarReader.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if second.Typeflag != tar.TypeSymlink || second.Linkname != "pact" {
		t.Errorf("second header = %+v", second)
	}
}

func TestZip(t *testing.T) {
	data := testutil.Zip(t, testutil.StandaloneEntries())

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	if len(reader.File) != len(testutil.StandaloneEntries()) {
		t.Errorf("zip has %d entries", len(reader.File))
	}
}

func TestReleaseServer(t *testing.T) {
	server := testutil.NewReleaseServer(t)
	server.Publish("/asset.tar.gz", []byte("payload"))

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/asset.tar.gz", http.StatusOK},
		{"/missing.tar.gz", http.StatusNotFound},
	}

	for _, tt := range tests {
		resp, err := http.Get(server.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s error = %v", tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
		}
	}

	if server.Hits() != 2 {
		t.Errorf("Hits() = %d, want 2", server.Hits())
	}
}

package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fileExists checks if a file exists and is not empty
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func TestDownloaderDownloadToFile(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
	}{
		{
			name:       "successful_download",
			statusCode: http.StatusOK,
			body:       "test archive content",
			wantErr:    false,
		},
		{
			name:       "404_not_found",
			statusCode: http.StatusNotFound,
			body:       "not found",
			wantErr:    true,
		},
		{
			name:       "500_server_error",
			statusCode: http.StatusInternalServerError,
			body:       "server error",
			wantErr:    true,
		},
		{
			name:       "204_no_content",
			statusCode: http.StatusNoContent,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != DefaultUserAgent {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.body)); err != nil && tt.statusCode != http.StatusNoContent {
					t.Errorf("failed to write response: %v", err)
				}
			}))
			defer server.Close()

			tmpDir := t.TempDir()
			downloader := NewDownloader(0)

			destPath := filepath.Join(tmpDir, "archive.tar.gz")
			result, err := downloader.DownloadToFile(context.Background(), server.URL, destPath)

			if tt.wantErr {
				var downloadErr *DownloadError
				if !errors.As(err, &downloadErr) {
					t.Fatalf("expected *DownloadError, got %v", err)
				}
				if downloadErr.StatusCode != tt.statusCode {
					t.Errorf("StatusCode = %d, want %d", downloadErr.StatusCode, tt.statusCode)
				}
				if downloadErr.URI != server.URL {
					t.Errorf("URI = %s, want %s", downloadErr.URI, server.URL)
				}

				// Nothing may be left behind
				entries, _ := os.ReadDir(tmpDir)
				if len(entries) != 0 {
					t.Errorf("expected no files after failed download, found %d", len(entries))
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %d, want 200", result.StatusCode)
			}
			if result.BodyPath != destPath {
				t.Errorf("BodyPath = %s, want %s", result.BodyPath, destPath)
			}
			if result.Size != int64(len(tt.body)) {
				t.Errorf("Size = %d, want %d", result.Size, len(tt.body))
			}

			content, err := os.ReadFile(destPath)
			if err != nil {
				t.Fatalf("failed to read downloaded file: %v", err)
			}
			if string(content) != tt.body {
				t.Errorf("content mismatch:\ngot:  %q\nwant: %q", string(content), tt.body)
			}

			if _, err := os.Stat(destPath + ".tmp"); !os.IsNotExist(err) {
				t.Error("temp file should be renamed away")
			}
		})
	}
}

func TestDownloader_NoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	downloader := NewDownloader(0)
	destPath := filepath.Join(t.TempDir(), "archive")
	if _, err := downloader.DownloadToFile(context.Background(), server.URL, destPath); err == nil {
		t.Fatal("expected error")
	}

	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestDownloader_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	uri := server.URL
	server.Close() // Nothing is listening any more

	downloader := NewDownloader(0)
	destPath := filepath.Join(t.TempDir(), "archive")
	_, err := downloader.DownloadToFile(context.Background(), uri, destPath)

	var networkErr *NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if networkErr.URI != uri {
		t.Errorf("URI = %s, want %s", networkErr.URI, uri)
	}
	if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
		t.Error("no file should exist after network error")
	}
}

func TestDownloader_TruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more than is sent, then drop the connection
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
			}
		}
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	destPath := filepath.Join(tmpDir, "archive")
	_, err := NewDownloader(0).DownloadToFile(context.Background(), server.URL, destPath)

	var networkErr *NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}

	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 0 {
		t.Errorf("partial download left %d files behind", len(entries))
	}
}

func TestDownloader_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	downloader := NewDownloader(100 * time.Millisecond)
	_, err := downloader.DownloadToFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "archive"))

	var networkErr *NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("expected *NetworkError on timeout, got %v", err)
	}
}

func TestDownloader_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDownloader(0).DownloadToFile(ctx, server.URL, filepath.Join(t.TempDir(), "archive"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestDownloader_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/objects/archive", http.StatusFound)
	})
	mux.HandleFunc("/objects/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirected content"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "archive")
	if _, err := NewDownloader(0).DownloadToFile(context.Background(), server.URL+"/release", destPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, _ := os.ReadFile(destPath)
	if string(content) != "redirected content" {
		t.Errorf("content = %q", content)
	}
}

func TestDownloader_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/pact-1.54.4-linux-x86_64.tar.gz") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("archive"))
	}))
	defer server.Close()

	tmpl := ArtifactTemplate{BaseURL: server.URL, Owner: "pact-foundation", Repo: "pact-ruby-standalone", Name: "pact"}
	artifact, err := NewArtifactDescriptor(tmpl, "1.54.4", SuffixLinux64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), artifact.FileName())
	result, err := NewDownloader(0).Download(context.Background(), artifact, destPath)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !fileExists(result.BodyPath) {
		t.Error("downloaded file missing")
	}

	if _, err := NewDownloader(0).Download(context.Background(), nil, destPath); err == nil {
		t.Error("expected error for nil descriptor")
	}
}

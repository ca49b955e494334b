package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "pact-install/1.0"
	// maxRedirects bounds the release host's redirect chain
	maxRedirects = 10
)

// Downloader fetches artifacts over HTTP. It makes exactly one attempt per
// call; a failure is returned to the caller unchanged.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a downloader whose requests are bounded by timeout.
// A zero or negative timeout selects DefaultTimeout.
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
	}
}

// Download fetches the artifact to destPath.
func (d *Downloader) Download(ctx context.Context, artifact *ArtifactDescriptor, destPath string) (*DownloadResult, error) {
	if artifact == nil {
		return nil, fmt.Errorf("artifact descriptor is nil")
	}
	return d.DownloadToFile(ctx, artifact.URI, destPath)
}

// DownloadToFile performs a GET of uri and streams the body to destPath.
//
// A status other than 200 returns *DownloadError and leaves nothing at
// destPath. Transport failures, including a body cut short, return
// *NetworkError. The body is written to a sibling temp file that is renamed
// into place on success and removed on every failure.
func (d *Downloader) DownloadToFile(ctx context.Context, uri, destPath string) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URI: uri, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{StatusCode: resp.StatusCode, URI: uri}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	out := &recordingWriter{w: tmpFile}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		if out.err != nil {
			return nil, fmt.Errorf("write %s: %w", tmpPath, out.err)
		}
		return nil, &NetworkError{URI: uri, Err: err}
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return nil, fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return &DownloadResult{
		StatusCode: resp.StatusCode,
		BodyPath:   destPath,
		Size:       written,
	}, nil
}

// recordingWriter remembers the first write error so a failed copy can be
// attributed to the local disk rather than the network.
type recordingWriter struct {
	w   io.Writer
	err error
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	if err != nil && r.err == nil {
		r.err = err
	}
	return n, err
}

package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// ReleaseServer serves release assets at fixed paths and counts every
// request it receives. Unknown paths return 404.
type ReleaseServer struct {
	*httptest.Server

	mu     sync.RWMutex
	assets map[string][]byte
	hits   atomic.Int64
}

// NewReleaseServer starts a server that is closed when the test ends.
func NewReleaseServer(t *testing.T) *ReleaseServer {
	t.Helper()

	rs := &ReleaseServer{assets: make(map[string][]byte)}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

// Publish makes body available at path, e.g.
// "/pact-foundation/pact-ruby-standalone/releases/download/v1.54.4/pact-1.54.4-osx.tar.gz".
func (rs *ReleaseServer) Publish(path string, body []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.assets[path] = body
}

// Hits returns the number of requests served so far.
func (rs *ReleaseServer) Hits() int64 {
	return rs.hits.Load()
}

func (rs *ReleaseServer) serve(w http.ResponseWriter, r *http.Request) {
	rs.hits.Add(1)

	rs.mu.RLock()
	body, ok := rs.assets[r.URL.Path]
	rs.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(body)
}

package installer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

const testArchiveContent = "pretend this is a tarball"

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// releaseServer serves files keyed by the last path element.
func releaseServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := files[filepath.Base(r.URL.Path)]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(content))
	}))
	t.Cleanup(server.Close)
	return server
}

func testArtifact(t *testing.T, baseURL string) *ArtifactDescriptor {
	t.Helper()

	tmpl := ArtifactTemplate{BaseURL: baseURL, Owner: "pact-foundation", Repo: "pact-ruby-standalone", Name: "pact"}
	artifact, err := NewArtifactDescriptor(tmpl, "1.54.4", SuffixLinux64)
	if err != nil {
		t.Fatalf("failed to build descriptor: %v", err)
	}
	return artifact
}

func writeArchive(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "pact-1.54.4-linux-x86_64.tar.gz")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

func TestVerifier_SHA256(t *testing.T) {
	const fileName = "pact-1.54.4-linux-x86_64.tar.gz"

	tests := []struct {
		name         string
		checksumFile string
		wantErr      bool
		wantMismatch bool
	}{
		{
			name:         "sha256sum_format",
			checksumFile: sha256Hex(testArchiveContent) + "  " + fileName + "\n",
		},
		{
			name:         "binary_marker",
			checksumFile: sha256Hex(testArchiveContent) + " *" + fileName + "\n",
		},
		{
			name:         "bare_digest",
			checksumFile: sha256Hex(testArchiveContent) + "\n",
		},
		{
			name:         "upper_case_digest",
			checksumFile: strings.ToUpper(sha256Hex(testArchiveContent)) + "  " + fileName + "\n",
		},
		{
			name: "multiple_entries",
			checksumFile: sha256Hex("other") + "  pact-1.54.4-osx.tar.gz\n" +
				sha256Hex(testArchiveContent) + "  " + fileName + "\n",
		},
		{
			name:         "mismatch",
			checksumFile: sha256Hex("tampered") + "  " + fileName + "\n",
			wantErr:      true,
			wantMismatch: true,
		},
		{
			name:         "missing_entry",
			checksumFile: sha256Hex("other") + "  pact-1.54.4-osx.tar.gz\n",
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := releaseServer(t, map[string]string{fileName + ".checksum": tt.checksumFile})
			artifact := testArtifact(t, server.URL)
			archivePath := writeArchive(t, t.TempDir(), testArchiveContent)

			verifier := NewVerifier(NewDownloader(0), "")
			err := verifier.Verify(context.Background(), VerificationSHA256, artifact, archivePath)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
			} else if err == nil {
				t.Fatal("expected error but got none")
			}

			var mismatch *ChecksumMismatchError
			if errors.As(err, &mismatch) != tt.wantMismatch {
				t.Errorf("ChecksumMismatchError = %v, want %v (err: %v)", !tt.wantMismatch, tt.wantMismatch, err)
			}

			if _, err := os.Stat(archivePath + ".checksum"); !os.IsNotExist(err) {
				t.Error("checksum file should be removed after verification")
			}
		})
	}
}

func TestVerifier_SHA256_ChecksumNotPublished(t *testing.T) {
	server := releaseServer(t, map[string]string{})
	artifact := testArtifact(t, server.URL)
	archivePath := writeArchive(t, t.TempDir(), testArchiveContent)

	err := NewVerifier(NewDownloader(0), "").Verify(context.Background(), VerificationSHA256, artifact, archivePath)

	var downloadErr *DownloadError
	if !errors.As(err, &downloadErr) {
		t.Fatalf("expected *DownloadError, got %v", err)
	}
	if downloadErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", downloadErr.StatusCode)
	}
}

func TestVerifier_None(t *testing.T) {
	// No server: verification must not touch the network
	artifact := testArtifact(t, "http://127.0.0.1:1")
	archivePath := writeArchive(t, t.TempDir(), testArchiveContent)

	if err := NewVerifier(NewDownloader(0), "").Verify(context.Background(), VerificationNone, artifact, archivePath); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

// newSigningKey creates a key pair and writes the armored public key to a
// keyring file.
func newSigningKey(t *testing.T, dir string) (*openpgp.Entity, string) {
	t.Helper()

	entity, err := openpgp.NewEntity("Pact Release", "test", "release@example.com", nil)
	if err != nil {
		t.Fatalf("failed to create entity: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("failed to create armor encoder: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("failed to serialize public key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close armor encoder: %v", err)
	}

	keyringPath := filepath.Join(dir, "keyring.asc")
	if err := os.WriteFile(keyringPath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write keyring: %v", err)
	}
	return entity, keyringPath
}

func signDetached(t *testing.T, entity *openpgp.Entity, content string) string {
	t.Helper()

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, entity, strings.NewReader(content), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return sig.String()
}

func TestVerifier_GPG(t *testing.T) {
	const fileName = "pact-1.54.4-linux-x86_64.tar.gz"

	keyDir := t.TempDir()
	signer, keyringPath := newSigningKey(t, keyDir)
	other, _ := newSigningKey(t, t.TempDir())

	tests := []struct {
		name      string
		signature string
		wantErr   bool
	}{
		{
			name:      "valid_signature",
			signature: signDetached(t, signer, testArchiveContent),
		},
		{
			name:      "signature_over_other_content",
			signature: signDetached(t, signer, "tampered"),
			wantErr:   true,
		},
		{
			name:      "unknown_signer",
			signature: signDetached(t, other, testArchiveContent),
			wantErr:   true,
		},
		{
			name:      "garbage_signature",
			signature: "not a signature",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := releaseServer(t, map[string]string{fileName + ".asc": tt.signature})
			artifact := testArtifact(t, server.URL)
			archivePath := writeArchive(t, t.TempDir(), testArchiveContent)

			err := NewVerifier(NewDownloader(0), keyringPath).Verify(context.Background(), VerificationGPG, artifact, archivePath)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}

			if _, err := os.Stat(archivePath + ".asc"); !os.IsNotExist(err) {
				t.Error("signature file should be removed after verification")
			}
		})
	}
}

func TestVerifier_GPG_RequiresKeyring(t *testing.T) {
	artifact := testArtifact(t, "http://127.0.0.1:1")
	archivePath := writeArchive(t, t.TempDir(), testArchiveContent)

	err := NewVerifier(NewDownloader(0), "").Verify(context.Background(), VerificationGPG, artifact, archivePath)
	if err == nil {
		t.Fatal("expected error without keyring")
	}
}

func TestLoadKeyring(t *testing.T) {
	dir := t.TempDir()
	_, keyringPath := newSigningKey(t, dir)

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		t.Fatalf("loadKeyring() error = %v", err)
	}
	if len(keyring) != 1 {
		t.Errorf("expected 1 entity, got %d", len(keyring))
	}

	emptyPath := filepath.Join(dir, "empty.asc")
	if err := os.WriteFile(emptyPath, nil, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := loadKeyring(emptyPath); err == nil {
		t.Error("expected error for empty keyring")
	}

	if _, err := loadKeyring(filepath.Join(dir, "missing.asc")); err == nil {
		t.Error("expected error for missing keyring")
	}
}

func TestFindChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SHA256SUMS")
	content := fmt.Sprintf("%s  dist/pact-1.54.4-win32.zip\n\n%s  pact-1.54.4-osx.tar.gz\n",
		sha256Hex("win"), sha256Hex("osx"))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got, err := findChecksum(path, "pact-1.54.4-win32.zip")
	if err != nil {
		t.Fatalf("findChecksum() error = %v", err)
	}
	if got != sha256Hex("win") {
		t.Errorf("checksum = %s, want %s", got, sha256Hex("win"))
	}

	if _, err := findChecksum(path, "pact-1.54.4-linux-x86.tar.gz"); err == nil {
		t.Error("expected error for missing file name")
	}
}

package installer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verifier checks a downloaded archive against material published next to
// it on the release host.
type Verifier struct {
	downloader  *Downloader
	keyringPath string
}

// NewVerifier creates a verifier. keyringPath is only needed for GPG.
func NewVerifier(downloader *Downloader, keyringPath string) *Verifier {
	return &Verifier{
		downloader:  downloader,
		keyringPath: keyringPath,
	}
}

// Verify checks archivePath with the given method. The checksum or
// signature file is fetched next to the archive and removed afterwards.
func (v *Verifier) Verify(ctx context.Context, method VerificationMethod, artifact *ArtifactDescriptor, archivePath string) error {
	switch method {
	case VerificationNone:
		return nil

	case VerificationSHA256:
		checksumPath := archivePath + ".checksum"
		if _, err := v.downloader.DownloadToFile(ctx, artifact.ChecksumURI(), checksumPath); err != nil {
			return fmt.Errorf("download checksum: %w", err)
		}
		defer os.Remove(checksumPath)
		return verifySHA256(archivePath, checksumPath, artifact.FileName())

	case VerificationGPG:
		if v.keyringPath == "" {
			return fmt.Errorf("GPG verification requires a keyring")
		}
		signaturePath := archivePath + ".asc"
		if _, err := v.downloader.DownloadToFile(ctx, artifact.SignatureURI(), signaturePath); err != nil {
			return fmt.Errorf("download signature: %w", err)
		}
		defer os.Remove(signaturePath)
		return verifyGPG(archivePath, signaturePath, v.keyringPath)

	default:
		return fmt.Errorf("unknown verification method: %s", method)
	}
}

// verifyGPG verifies a file using a detached signature, armored or binary.
func verifyGPG(archivePath, signaturePath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, archiveFile, sigFile, nil)
	if err != nil {
		// Try non-armored signature
		if _, seekErr := archiveFile.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind archive: %w", seekErr)
		}
		if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind signature: %w", seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, archiveFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// verifySHA256 verifies a file using a sha256sum-format checksum file
func verifySHA256(archivePath, checksumPath, fileName string) error {
	actualChecksum, err := calculateSHA256(archivePath)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	expectedChecksum, err := findChecksum(checksumPath, fileName)
	if err != nil {
		return fmt.Errorf("find checksum: %w", err)
	}

	if !strings.EqualFold(actualChecksum, expectedChecksum) {
		return &ChecksumMismatchError{Expected: expectedChecksum, Actual: actualChecksum}
	}

	return nil
}

// loadKeyring loads an OpenPGP keyring, armored or binary
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		if _, seekErr := keyringFile.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for fileName in a checksum file.
// Format: "abc123def456  filename.tar.gz". A file holding a single bare
// digest is accepted as the checksum of fileName.
func findChecksum(checksumPath, fileName string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	var bare []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		switch len(parts) {
		case 0:
			continue
		case 1:
			bare = append(bare, parts[0])
			continue
		}

		// sha256sum marks binary mode with a leading '*'
		checksumFileName := strings.TrimPrefix(parts[1], "*")
		if checksumFileName == fileName || filepath.Base(checksumFileName) == fileName {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	if len(bare) == 1 {
		return bare[0], nil
	}

	return "", fmt.Errorf("checksum not found for %s", fileName)
}

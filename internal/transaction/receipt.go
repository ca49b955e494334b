// Package transaction guards and records install runs: an exclusive lock
// per destination while an install is in progress, and a receipt written
// into the destination once it succeeds.
package transaction

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ReceiptFileName is the receipt's name inside the destination directory.
const ReceiptFileName = ".pact-install.yaml"

// receiptSchemaVersion is bumped when the receipt layout changes.
const receiptSchemaVersion = 1

// Receipt describes a completed install.
type Receipt struct {
	Schema       int       `yaml:"schema"`
	ID           string    `yaml:"id"`
	InstalledAt  time.Time `yaml:"installed_at"`
	Version      string    `yaml:"version"`
	Suffix       string    `yaml:"suffix"`
	URI          string    `yaml:"uri"`
	Platform     string    `yaml:"platform"`
	Target       string    `yaml:"target"`
	Verification string    `yaml:"verification"`
	Files        []string  `yaml:"files,omitempty"`
}

// NewReceipt creates a receipt with a fresh ID stamped at now.
func NewReceipt(now time.Time) *Receipt {
	return &Receipt{
		Schema:      receiptSchemaVersion,
		ID:          uuid.New().String(),
		InstalledAt: now.UTC(),
	}
}

// Save writes the receipt into dir atomically.
// Uses write-then-rename pattern for atomicity.
func (r *Receipt) Save(dir string) error {
	finalPath := filepath.Join(dir, ReceiptFileName)
	tmpPath := finalPath + ".tmp"

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary receipt file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename receipt file: %w", err)
	}

	return nil
}

// LoadReceipt reads the receipt from dir.
func LoadReceipt(dir string) (*Receipt, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReceiptFileName))
	if err != nil {
		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}

	if r.Schema > receiptSchemaVersion {
		return nil, fmt.Errorf("receipt schema %d is newer than supported %d", r.Schema, receiptSchemaVersion)
	}

	return &r, nil
}

package transaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
)

var (
	ErrLockExists = errors.New("install lock exists: another install into this destination may be in progress")
)

// Lock is an exclusive lock on one install destination.
type Lock struct {
	path string
	file *os.File
}

// LockPath returns the lock file guarding dest: a sibling named "<dest>.lock",
// so the lock never appears inside the installed tree.
func LockPath(dest string) string {
	clean := filepath.Clean(dest)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+".lock")
}

// AcquireLock takes the lock for dest.
// Uses O_CREATE|O_EXCL for atomic lock creation; a lock older than
// StaleLockThreshold is broken once.
func AcquireLock(ctx context.Context, dest string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lockPath := LockPath(dest)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if isStale, _ := isLockStale(lockPath); !isStale {
			return nil, ErrLockExists
		}
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleLockThreshold, nil
}

package installer

import (
	"fmt"
)

// UnsupportedPlatformError reports a platform description that matched no
// known artifact.
type UnsupportedPlatformError struct {
	Description string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q: only Linux, Windows, and macOS are supported", e.Description)
}

// DownloadError reports a response with a status other than 200.
type DownloadError struct {
	StatusCode int
	URI        string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("received HTTP %d when downloading %s", e.StatusCode, e.URI)
}

// NetworkError reports a connection-level failure during the transfer.
type NetworkError struct {
	URI string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error downloading %s: %v", e.URI, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// PathTraversalError reports an archive member that resolves outside the
// destination directory. Nothing has been written when it is returned.
type PathTraversalError struct {
	MemberPath string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("archive member %q resolves outside the destination directory", e.MemberPath)
}

// MemberConflictError reports an archive member that clashes with another
// member, or with the destination contents, over whether Path is a
// directory. Nothing has been written when it is returned.
type MemberConflictError struct {
	MemberPath string
	Path       string
}

func (e *MemberConflictError) Error() string {
	return fmt.Sprintf("archive member %q conflicts with %q", e.MemberPath, e.Path)
}

// DestinationExistsError reports a destination that already exists under
// DestinationPristine.
type DestinationExistsError struct {
	Path string
}

func (e *DestinationExistsError) Error() string {
	return fmt.Sprintf("destination %s already exists", e.Path)
}

// EntryTooLargeError reports an archive member above the size cap.
type EntryTooLargeError struct {
	MemberPath string
	Size       int64
	Limit      int64
}

func (e *EntryTooLargeError) Error() string {
	return fmt.Sprintf("archive member %q is %d bytes, limit is %d", e.MemberPath, e.Size, e.Limit)
}

// ChecksumMismatchError reports a downloaded archive whose digest differs
// from the published one.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch:\nactual:   %s\nexpected: %s", e.Actual, e.Expected)
}

// Phase names the install step that failed.
type Phase string

const (
	PhaseResolve  Phase = "resolve"
	PhasePrepare  Phase = "prepare"
	PhaseDownload Phase = "download"
	PhaseVerify   Phase = "verify"
	PhaseExtract  Phase = "extract"
	PhaseFinalize Phase = "finalize"
)

// InstallError is the single terminal error returned by Manager.Install.
// It names the failed phase and wraps the cause unchanged.
type InstallError struct {
	Phase Phase
	Err   error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install failed during %s: %v", e.Phase, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

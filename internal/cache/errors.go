package cache

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"syscall"
)

// Reasons attached to an AccessError.
const (
	ReasonPermissionDenied = "permission denied"
	ReasonFileLocked       = "file locked"
	ReasonNotFound         = "not found"
	ReasonNotEmpty         = "directory not empty"
	ReasonUnknown          = "access error"
)

// Windows reports open shader blobs with these codes instead of EBUSY.
const (
	winSharingViolation syscall.Errno = 32
	winLockViolation    syscall.Errno = 33
)

var errnoReasons = map[syscall.Errno]string{
	syscall.ENOTEMPTY: ReasonNotEmpty,
	syscall.EEXIST:    ReasonNotEmpty,
	syscall.EBUSY:     ReasonFileLocked,
	syscall.ETXTBSY:   ReasonFileLocked,
}

// AccessError is a failed read or delete of one cache entry.
type AccessError struct {
	Err    error
	Path   string
	Reason string
}

func (e AccessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e AccessError) Unwrap() error {
	return e.Err
}

// Transient reports whether the entry is held by another process, so a
// later attempt may succeed.
func (e AccessError) Transient() bool {
	return e.Reason == ReasonFileLocked
}

// ClassifyError wraps err with a reason for path.
func ClassifyError(path string, err error) AccessError {
	return AccessError{Path: path, Reason: reasonFor(err), Err: err}
}

func reasonFor(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, os.ErrPermission):
		return ReasonPermissionDenied
	case errors.Is(err, os.ErrNotExist):
		return ReasonNotFound
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ReasonUnknown
	}
	if runtime.GOOS == "windows" && (errno == winSharingViolation || errno == winLockViolation) {
		return ReasonFileLocked
	}
	if reason, ok := errnoReasons[errno]; ok {
		return reason
	}
	return ReasonUnknown
}

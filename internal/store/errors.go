package store

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable marks a failed remote backend call that was
	// answered from local data instead.
	ErrRemoteUnavailable = errors.New("remote backend unavailable")

	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
)

// RemoteError reports a remote failure the store recovered from. The value
// returned alongside it is usable.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrRemoteUnavailable, e.Err)
}

// Unwrap exposes both ErrRemoteUnavailable and the backend's own error.
func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteUnavailable, e.Err}
}

// IsRemoteFallback reports whether err only signals a recovered remote
// failure.
func IsRemoteFallback(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Refresh path errors. These never reach readers; the refresher logs them
	// and keeps the previously published snapshot.
	ErrFetch          = errors.New("catalog fetch failed")
	ErrBuildInvariant = errors.New("catalog violates build invariant")
	ErrValidation     = errors.New("catalog validation failed")

	// Read path errors.
	ErrNotLoaded          = errors.New("platform catalog not loaded")
	ErrUnknownStream      = errors.New("unknown stream key")
	ErrInvalidExtension   = errors.New("invalid extension")
	ErrInvalidJavaVersion = errors.New("invalid java version")
	ErrInvalidBuildTool   = errors.New("invalid build tool")
	ErrInvalidProject     = errors.New("invalid project definition")
	ErrInvalidFilter      = errors.New("invalid extension filter")

	// Refresh trigger errors
	ErrRefreshThrottled = errors.New("refresh throttled")
)

// UnknownStreamError is returned when a stream key is not part of the
// published snapshot.
type UnknownStreamError struct {
	Key string
}

func (e *UnknownStreamError) Error() string {
	return fmt.Sprintf("invalid stream key: %s", e.Key)
}

func (e *UnknownStreamError) Unwrap() error {
	return ErrUnknownStream
}

// InvalidExtensionError names an identifier that could not be resolved to
// exactly one extension of a stream.
type InvalidExtensionError struct {
	ID string

	// Candidates holds the ids that matched the identifier's shortcut when the
	// identifier was ambiguous. Empty when nothing matched.
	Candidates []string
}

func (e *InvalidExtensionError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("invalid extension: %s (ambiguous, matches %v)", e.ID, e.Candidates)
	}
	return fmt.Sprintf("invalid extension: %s", e.ID)
}

func (e *InvalidExtensionError) Unwrap() error {
	return ErrInvalidExtension
}

// IsCallerError reports whether err is caused by bad caller input rather than
// by the state of the service.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrUnknownStream) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidJavaVersion) ||
		errors.Is(err, ErrInvalidBuildTool) ||
		errors.Is(err, ErrInvalidProject) ||
		errors.Is(err, ErrInvalidFilter)
}

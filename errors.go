package treefs

import (
	"errors"
	"fmt"
)

// Error kinds surfaced outside the callback boundary. Inside callbacks
// failures are reported as POSIX errnos (ENOENT, EISDIR, ENOTDIR, EROFS)
// and never cross into Go error values.
var (
	// ErrInvalidDocument reports a tree document that is malformed or
	// semantically invalid (missing fields, bad types, duplicate names).
	ErrInvalidDocument = errors.New("invalid tree document")

	// ErrInvalidConfig reports an option value rejected by validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidSize reports a byte-size string that could not be parsed.
	ErrInvalidSize = errors.New("invalid size")

	// ErrMount reports that the FUSE bridge refused to attach.
	ErrMount = errors.New("mount failed")
)

// invalidDocumentf wraps ErrInvalidDocument with the offending document
// path so validation failures identify the exact node.
func invalidDocumentf(path, format string, args ...interface{}) error {
	return fmt.Errorf("%w: node %s: %s", ErrInvalidDocument, path, fmt.Sprintf(format, args...))
}

// invalidConfigf wraps ErrInvalidConfig with a description of the
// rejected value.
func invalidConfigf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

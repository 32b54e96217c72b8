package gitview

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNilStorage indicates the output storage is missing.
	ErrNilStorage = errors.New("nil storage")
	// ErrEmptyFilter indicates a nil [Filter] where one is required.
	ErrEmptyFilter = errors.New("empty filter")
	// ErrRefNotFound indicates a source or target name failed to resolve.
	ErrRefNotFound = errors.New("reference not found")
	// ErrNoKnownOrigin indicates the backward map holds no original commit
	// for the filtered commit an unapply starts from.
	ErrNoKnownOrigin = errors.New("no known origin for filtered commit")
	// ErrUnroutableEdit indicates an edit in filtered coordinates touches a
	// path the active filter cannot translate back to original coordinates.
	ErrUnroutableEdit = errors.New("edit cannot be routed back through filter")
)

// errorf wraps err in the formatted error unless it is a context error, which
// is passed through so cancellation stays recognizable to callers.
func errorf(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf(format, args...)
}

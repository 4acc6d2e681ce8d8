package topic

import (
	"errors"
	"fmt"
)

// Error kinds shared by the stores and the engine. Callers match them with
// errors.Is; messages carry the wrapped context.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidParent = errors.New("invalid parent")
	ErrCyclicMove    = errors.New("cyclic move")
	ErrInvalidRange  = errors.New("invalid range")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrDuplicate     = errors.New("already exists")
	ErrIO            = errors.New("i/o failure")
	ErrMigration     = errors.New("migration failure")
)

// Errorf formats a message and wraps kind so errors.Is(err, kind) holds.
func Errorf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// Kind returns the taxonomy sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound, ErrInvalidParent, ErrCyclicMove, ErrInvalidRange,
		ErrInvalidTitle, ErrDuplicate, ErrIO, ErrMigration,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

package main

import (
	"errors"

	"github.com/iromo/iromo/internal/clipboard"
	"github.com/iromo/iromo/internal/collection"
	"github.com/iromo/iromo/internal/topic"
	"github.com/iromo/iromo/internal/undo"
)

// Exit codes, one per error kind
const (
	ExitSuccess        = 0 // Success
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Configuration error (no collection, bad manifest, bad config)
	ExitDataError      = 3 // Rejected input (invalid range, title or parent, cyclic move, duplicate id)
	ExitNotFound       = 4 // Topic or extraction does not exist
	ExitIOError        = 5 // Content store read/write failure
	ExitMigrationError = 6 // Schema migration failed
	ExitInconsistency  = 7 // Undo or redo failed; collection needs a check
)

// exitCodeFor maps an error to its exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, undo.ErrFatalInconsistency) {
		return ExitInconsistency
	}
	if errors.Is(err, collection.ErrNotCollection) || errors.Is(err, collection.ErrExists) {
		return ExitConfigError
	}
	if errors.Is(err, clipboard.ErrClipboardUnavailable) {
		return ExitConfigError
	}

	switch topic.Kind(err) {
	case topic.ErrNotFound:
		return ExitNotFound
	case topic.ErrInvalidParent, topic.ErrCyclicMove, topic.ErrInvalidRange, topic.ErrInvalidTitle, topic.ErrDuplicate:
		return ExitDataError
	case topic.ErrIO:
		return ExitIOError
	case topic.ErrMigration:
		return ExitMigrationError
	}
	return ExitError
}

// Package undo runs reversible commands and keeps the undo and redo stacks.
package undo

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Command is a reversible mutation. Execute captures whatever prior state
// Undo needs.
type Command interface {
	Execute() error
	Undo() error
	Description() string
}

// Redoer is implemented by commands whose redo differs from Execute.
type Redoer interface {
	Redo() error
}

// ErrFatalInconsistency marks a failed undo or redo. The stores may no
// longer match the history; nothing is repaired automatically.
var ErrFatalInconsistency = errors.New("fatal inconsistency")

// InconsistencyError reports which command failed to undo or redo.
type InconsistencyError struct {
	Op          string // "undo" or "redo"
	Description string
	Err         error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Description, e.Err)
}

func (e *InconsistencyError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFatalInconsistency) hold.
func (e *InconsistencyError) Is(target error) bool {
	return target == ErrFatalInconsistency
}

// History holds the undo and redo stacks. The last element of each slice is
// the top of the stack.
type History struct {
	undo []Command
	redo []Command

	log       *zap.Logger
	observers map[int]func(Event)
	nextObs   int
}

// NewHistory returns an empty history. A nil logger disables logging.
func NewHistory(log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{log: log, observers: make(map[int]func(Event))}
}

// Run executes cmd. A failed command is not recorded and the stacks are
// left as they were. A successful one is pushed for undo and discards any
// redo history.
func (h *History) Run(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		h.log.Info("command failed", zap.String("command", cmd.Description()), zap.Error(err))
		return err
	}

	h.undo = append(h.undo, cmd)
	h.redo = nil
	h.log.Debug("executed", zap.String("command", cmd.Description()))
	h.notify(Executed, cmd.Description())
	return nil
}

// Undo reverses the most recent command. It is a no-op when there is
// nothing to undo. If the command's undo fails, the command is dropped,
// the redo stack is cleared and an *InconsistencyError is returned.
func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return nil
	}

	cmd := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	if err := cmd.Undo(); err != nil {
		h.redo = nil
		return h.diverged("undo", cmd, err)
	}

	h.redo = append(h.redo, cmd)
	h.log.Debug("undone", zap.String("command", cmd.Description()))
	h.notify(Undone, cmd.Description())
	return nil
}

// Redo reapplies the most recently undone command. It is a no-op when
// there is nothing to redo. If it fails, the command and the rest of the
// redo stack are dropped and an *InconsistencyError is returned.
func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return nil
	}

	cmd := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	var err error
	if r, ok := cmd.(Redoer); ok {
		err = r.Redo()
	} else {
		err = cmd.Execute()
	}
	if err != nil {
		h.redo = nil
		return h.diverged("redo", cmd, err)
	}

	h.undo = append(h.undo, cmd)
	h.log.Debug("redone", zap.String("command", cmd.Description()))
	h.notify(Redone, cmd.Description())
	return nil
}

func (h *History) diverged(op string, cmd Command, err error) error {
	h.log.Error("history diverged from stored state",
		zap.String("op", op),
		zap.String("command", cmd.Description()),
		zap.Error(err))
	h.notify(Diverged, cmd.Description())
	return &InconsistencyError{Op: op, Description: cmd.Description(), Err: err}
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
	h.notify(Cleared, "")
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoText describes the command Undo would reverse, or "".
func (h *History) UndoText() string {
	if len(h.undo) == 0 {
		return ""
	}
	return h.undo[len(h.undo)-1].Description()
}

// RedoText describes the command Redo would reapply, or "".
func (h *History) RedoText() string {
	if len(h.redo) == 0 {
		return ""
	}
	return h.redo[len(h.redo)-1].Description()
}

// UndoStack lists undo descriptions, most recent first.
func (h *History) UndoStack() []string { return describe(h.undo) }

// RedoStack lists redo descriptions, most recent first.
func (h *History) RedoStack() []string { return describe(h.redo) }

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

func describe(stack []Command) []string {
	out := make([]string, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i].Description())
	}
	return out
}

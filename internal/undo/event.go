package undo

// EventKind says what changed the history.
type EventKind string

const (
	Executed EventKind = "executed"
	Undone   EventKind = "undone"
	Redone   EventKind = "redone"
	Cleared  EventKind = "cleared"
	Diverged EventKind = "diverged"
)

// Event is sent to subscribers after every change to the stacks.
type Event struct {
	Kind        EventKind
	Description string
	CanUndo     bool
	CanRedo     bool
}

// Subscribe registers fn for history events. The returned func removes it.
func (h *History) Subscribe(fn func(Event)) (cancel func()) {
	id := h.nextObs
	h.nextObs++
	h.observers[id] = fn
	return func() { delete(h.observers, id) }
}

func (h *History) notify(kind EventKind, description string) {
	if len(h.observers) == 0 {
		return
	}
	ev := Event{
		Kind:        kind,
		Description: description,
		CanUndo:     h.CanUndo(),
		CanRedo:     h.CanRedo(),
	}
	for id := 0; id < h.nextObs; id++ {
		if fn, ok := h.observers[id]; ok {
			fn(ev)
		}
	}
}

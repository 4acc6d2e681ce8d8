package storage

import (
	"errors"

	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/index"
	"github.com/iromo/iromo/internal/topic"
)

// MoveTopic re-links id under newParentID (empty for root) at position in
// the new sibling list. A negative or out-of-range position appends. Old
// and new sibling sets are renumbered 0..n-1.
//
// When the topic was produced by an extraction from its old parent, the
// extraction no longer describes its place in the tree; it is removed in
// the same transaction and returned so the caller can restore it.
func (e *Engine) MoveTopic(id, newParentID string, position int) (*topic.Extraction, error) {
	t, err := e.idx.GetTopic(id)
	if err != nil {
		return nil, err
	}

	if newParentID != "" {
		if newParentID == id {
			return nil, topic.Errorf(topic.ErrCyclicMove, "cannot move %s under itself", id)
		}
		entries, err := e.idx.Subtree(id)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries[1:] {
			if entry.Topic.ID == newParentID {
				return nil, topic.Errorf(topic.ErrCyclicMove, "cannot move %s under its descendant %s", id, newParentID)
			}
		}
		if _, err := e.idx.GetTopic(newParentID); errors.Is(err, topic.ErrNotFound) {
			return nil, topic.Errorf(topic.ErrInvalidParent, "parent %s does not exist", newParentID)
		} else if err != nil {
			return nil, err
		}
	}

	oldParentID := t.ParentID
	var detached *topic.Extraction

	err = e.idx.Update(func(tx *index.Tx) error {
		if oldParentID != newParentID {
			ext, err := tx.ExtractionByChild(id)
			if err != nil && !errors.Is(err, topic.ErrNotFound) {
				return err
			}
			if ext != nil {
				if err := tx.DeleteExtraction(ext.ID); err != nil {
					return err
				}
				detached = ext
			}

			if err := tx.SetParent(id, newParentID); err != nil {
				return err
			}
			oldSiblings, err := tx.Children(oldParentID)
			if err != nil {
				return err
			}
			if err := renumber(tx, topicIDs(oldSiblings)); err != nil {
				return err
			}
		}

		siblings, err := tx.Children(newParentID)
		if err != nil {
			return err
		}
		var order []string
		for _, s := range siblings {
			if s.ID != id {
				order = append(order, s.ID)
			}
		}
		if position < 0 || position > len(order) {
			position = len(order)
		}
		order = append(order[:position], append([]string{id}, order[position:]...)...)
		return renumber(tx, order)
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("moved topic",
		zap.String("id", id),
		zap.String("from", oldParentID),
		zap.String("to", newParentID),
		zap.Int("position", position))
	return detached, nil
}

// Placement returns a topic's parent and its index among its siblings.
func (e *Engine) Placement(id string) (string, int, error) {
	t, err := e.idx.GetTopic(id)
	if err != nil {
		return "", 0, err
	}
	siblings, err := e.idx.Children(t.ParentID)
	if err != nil {
		return "", 0, err
	}
	for i, s := range siblings {
		if s.ID == id {
			return t.ParentID, i, nil
		}
	}
	return t.ParentID, len(siblings), nil
}

func renumber(tx *index.Tx, order []string) error {
	for i, id := range order {
		n := i
		if err := tx.SetDisplayOrder(id, &n); err != nil {
			return err
		}
	}
	return nil
}

func topicIDs(topics []topic.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.ID
	}
	return out
}

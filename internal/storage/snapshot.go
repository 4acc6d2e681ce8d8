package storage

import (
	"errors"

	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/index"
	"github.com/iromo/iromo/internal/topic"
)

// Subtree is a captured copy of a topic, its descendants, their content and
// every extraction touching them. Restoring it recreates the same ids.
type Subtree struct {
	Topics      []topic.Topic      `json:"topics"` // pre-order, root first
	Contents    map[string]string  `json:"contents"`
	Extractions []topic.Extraction `json:"extractions"`
}

// RootID returns the id of the captured subtree's root.
func (s *Subtree) RootID() string {
	if len(s.Topics) == 0 {
		return ""
	}
	return s.Topics[0].ID
}

// Snapshot captures the subtree rooted at id.
func (e *Engine) Snapshot(id string) (*Subtree, error) {
	entries, err := e.idx.Subtree(id)
	if err != nil {
		return nil, err
	}

	s := &Subtree{Contents: make(map[string]string, len(entries))}
	ids := make([]string, len(entries))
	for i, entry := range entries {
		text, err := e.blobs.Get(entry.Topic.ContentRef)
		if err != nil {
			return nil, err
		}
		s.Topics = append(s.Topics, entry.Topic)
		s.Contents[entry.Topic.ContentRef] = text
		ids[i] = entry.Topic.ID
	}

	if s.Extractions, err = e.idx.ExtractionsTouching(ids); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore recreates a captured subtree with its original ids, timestamps and
// display order. Blobs are written first; rows commit in one transaction.
// Extractions whose other end no longer exists, or which are already
// present, are skipped. Restoring over an existing topic fails before
// anything is written.
func (e *Engine) Restore(s *Subtree) error {
	if len(s.Topics) == 0 {
		return nil
	}

	root := s.Topics[0]
	if root.ParentID != "" {
		if _, err := e.idx.GetTopic(root.ParentID); errors.Is(err, topic.ErrNotFound) {
			return topic.Errorf(topic.ErrInvalidParent, "parent %s of %s no longer exists", root.ParentID, root.ID)
		} else if err != nil {
			return err
		}
	}

	for _, t := range s.Topics {
		if _, err := e.idx.GetTopic(t.ID); err == nil {
			return topic.Errorf(topic.ErrDuplicate, "topic %s", t.ID)
		}
	}

	// Blobs left behind by a failed delete are overwritten but never
	// discarded here.
	var written []string
	for _, t := range s.Topics {
		existed := e.blobs.Exists(t.ContentRef)
		if err := e.blobs.Put(t.ContentRef, s.Contents[t.ContentRef]); err != nil {
			e.discardBlobs(written)
			return err
		}
		if !existed {
			written = append(written, t.ContentRef)
		}
	}

	err := e.idx.Update(func(tx *index.Tx) error {
		for i := range s.Topics {
			if err := tx.InsertTopic(&s.Topics[i]); err != nil {
				return err
			}
		}
		for i := range s.Extractions {
			ext := s.Extractions[i]
			if _, err := tx.GetExtraction(ext.ID); err == nil {
				continue
			}
			if !topicExists(tx, ext.ParentTopicID) || !topicExists(tx, ext.ChildTopicID) {
				e.log.Debug("skipping extraction with missing endpoint", zap.String("id", ext.ID))
				continue
			}
			if err := tx.InsertExtraction(&ext); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.discardBlobs(written)
		return err
	}

	e.log.Debug("restored subtree", zap.String("root", root.ID), zap.Int("topics", len(s.Topics)))
	return nil
}

func topicExists(tx *index.Tx, id string) bool {
	_, err := tx.GetTopic(id)
	return err == nil
}

func (e *Engine) discardBlobs(refs []string) {
	for _, ref := range refs {
		e.discardBlob(ref)
	}
}

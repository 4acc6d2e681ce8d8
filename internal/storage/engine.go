// Package storage composes the index and the content store and keeps them
// consistent: every topic row has its blob and a failed write leaves neither.
package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/content"
	"github.com/iromo/iromo/internal/index"
	"github.com/iromo/iromo/internal/topic"
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Logger *zap.Logger

	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time

	// NewID generates topic, extraction and content ids; defaults to UUIDv7.
	NewID func() string

	// TitleLength bounds derived titles; defaults to topic.DefaultTitleLength.
	TitleLength int
}

// Engine keeps the index and the content blobs consistent. Every mutation of
// a collection goes through it.
type Engine struct {
	idx      *index.DB
	blobs    *content.Store
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	titleLen int
}

// New returns an engine over an opened index and content store.
func New(idx *index.DB, blobs *content.Store, opts Options) *Engine {
	e := &Engine{
		idx:      idx,
		blobs:    blobs,
		log:      opts.Logger,
		now:      opts.Clock,
		newID:    opts.NewID,
		titleLen: opts.TitleLength,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = newUUID
	}
	if e.titleLen <= 0 {
		e.titleLen = topic.DefaultTitleLength
	}
	return e
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Index returns the underlying index store.
func (e *Engine) Index() *index.DB {
	return e.idx
}

// Blobs returns the underlying content store.
func (e *Engine) Blobs() *content.Store {
	return e.blobs
}

// CreateParams describes a new topic.
type CreateParams struct {
	ParentID string // empty creates a root topic
	Content  string
	Title    string // derived from Content when blank
}

// CreateTopic writes the content blob, then inserts the row. If the row
// cannot be inserted the blob is removed before returning.
func (e *Engine) CreateTopic(p CreateParams) (*topic.Topic, error) {
	if p.ParentID != "" {
		if _, err := e.idx.GetTopic(p.ParentID); errors.Is(err, topic.ErrNotFound) {
			return nil, topic.Errorf(topic.ErrInvalidParent, "parent %s does not exist", p.ParentID)
		} else if err != nil {
			return nil, err
		}
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = topic.DeriveTitle(p.Content, e.titleLen)
	}

	now := e.now().UTC()
	t := &topic.Topic{
		ID:         e.newID(),
		ParentID:   p.ParentID,
		Title:      title,
		ContentRef: e.newID(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := e.blobs.Put(t.ContentRef, p.Content); err != nil {
		return nil, err
	}

	err := e.idx.Update(func(tx *index.Tx) error {
		order, err := tx.NextDisplayOrder(t.ParentID)
		if err != nil {
			return err
		}
		t.DisplayOrder = &order
		return tx.InsertTopic(t)
	})
	if err != nil {
		e.discardBlob(t.ContentRef)
		return nil, err
	}

	e.log.Debug("created topic", zap.String("id", t.ID), zap.String("parent", t.ParentID))
	return t, nil
}

// GetTopic returns a topic's metadata.
func (e *Engine) GetTopic(id string) (*topic.Topic, error) {
	return e.idx.GetTopic(id)
}

// GetContent returns a topic's text. It fails with ErrNotFound when either
// the topic or its blob is missing.
func (e *Engine) GetContent(id string) (string, error) {
	t, err := e.idx.GetTopic(id)
	if err != nil {
		return "", err
	}
	return e.blobs.Get(t.ContentRef)
}

// SaveContent overwrites a topic's text and bumps updated_at. Extraction
// offsets recorded against the old text are left as they are. If the row
// cannot be updated the previous text is put back.
func (e *Engine) SaveContent(id, text string) error {
	t, err := e.idx.GetTopic(id)
	if err != nil {
		return err
	}
	prev, prevErr := e.blobs.Get(t.ContentRef)
	if prevErr != nil && !errors.Is(prevErr, topic.ErrNotFound) {
		return prevErr
	}

	if err := e.blobs.Put(t.ContentRef, text); err != nil {
		return err
	}
	err = e.idx.Update(func(tx *index.Tx) error {
		return tx.Touch(id, e.now())
	})
	if err != nil {
		if prevErr != nil {
			e.discardBlob(t.ContentRef)
		} else if rerr := e.blobs.Put(t.ContentRef, prev); rerr != nil {
			e.log.Warn("failed to restore previous content", zap.String("id", id), zap.Error(rerr))
		}
		return err
	}
	return nil
}

// RenameTopic sets a topic's title and bumps updated_at.
func (e *Engine) RenameTopic(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return topic.Errorf(topic.ErrInvalidTitle, "title must not be blank")
	}
	return e.idx.Update(func(tx *index.Tx) error {
		return tx.UpdateTitle(id, title, e.now())
	})
}

// RecordExtraction creates a child topic holding text under parentID and
// links it with an extraction record for [start, end). The child row and
// the extraction row commit together; on failure neither exists and the
// child blob is removed.
func (e *Engine) RecordExtraction(parentID string, start, end int, text string) (*topic.Extraction, *topic.Topic, error) {
	if err := topic.ValidateRange(start, end); err != nil {
		return nil, nil, err
	}
	if _, err := e.idx.GetTopic(parentID); errors.Is(err, topic.ErrNotFound) {
		return nil, nil, topic.Errorf(topic.ErrInvalidParent, "parent %s does not exist", parentID)
	} else if err != nil {
		return nil, nil, err
	}

	now := e.now().UTC()
	child := &topic.Topic{
		ID:         e.newID(),
		ParentID:   parentID,
		Title:      topic.DeriveTitle(text, e.titleLen),
		ContentRef: e.newID(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ext := &topic.Extraction{
		ID:            e.newID(),
		ParentTopicID: parentID,
		ChildTopicID:  child.ID,
		StartChar:     start,
		EndChar:       end,
	}

	if err := e.blobs.Put(child.ContentRef, text); err != nil {
		return nil, nil, err
	}

	err := e.idx.Update(func(tx *index.Tx) error {
		order, err := tx.NextDisplayOrder(parentID)
		if err != nil {
			return err
		}
		child.DisplayOrder = &order
		if err := tx.InsertTopic(child); err != nil {
			return err
		}
		return tx.InsertExtraction(ext)
	})
	if err != nil {
		e.discardBlob(child.ContentRef)
		return nil, nil, err
	}

	e.log.Debug("recorded extraction",
		zap.String("id", ext.ID),
		zap.String("parent", parentID),
		zap.String("child", child.ID),
		zap.Int("start", start),
		zap.Int("end", end))
	return ext, child, nil
}

// DeleteTopic removes a topic, its whole subtree and every extraction that
// touches any of them in one transaction. Blobs are removed after commit;
// a blob that cannot be removed is logged and left behind.
func (e *Engine) DeleteTopic(id string) error {
	entries, err := e.idx.Subtree(id)
	if err != nil {
		return err
	}

	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.Topic.ID
	}

	err = e.idx.Update(func(tx *index.Tx) error {
		if _, err := tx.DeleteExtractionsTouching(ids); err != nil {
			return err
		}
		// Pre-order reversed deletes leaves before their parents.
		for i := len(entries) - 1; i >= 0; i-- {
			if err := tx.DeleteTopic(entries[i].Topic.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := e.blobs.Delete(entry.Topic.ContentRef); err != nil {
			e.log.Warn("leaving orphaned blob",
				zap.String("topic", entry.Topic.ID),
				zap.String("content_ref", entry.Topic.ContentRef),
				zap.Error(err))
		}
	}

	e.log.Debug("deleted topic", zap.String("id", id), zap.Int("subtree", len(entries)))
	return nil
}

// DeleteExtraction removes only the extraction row. The child stays as an
// ordinary topic.
func (e *Engine) DeleteExtraction(id string) error {
	return e.idx.Update(func(tx *index.Tx) error {
		return tx.DeleteExtraction(id)
	})
}

// RestoreExtraction reinserts a previously deleted extraction row with its
// original id and offsets.
func (e *Engine) RestoreExtraction(ext topic.Extraction) error {
	return e.idx.Update(func(tx *index.Tx) error {
		return tx.InsertExtraction(&ext)
	})
}

// GetExtraction returns an extraction by id.
func (e *Engine) GetExtraction(id string) (*topic.Extraction, error) {
	return e.idx.GetExtraction(id)
}

// Hierarchy returns the whole forest in pre-order.
func (e *Engine) Hierarchy() ([]topic.Entry, error) {
	return e.idx.Hierarchy()
}

// Subtree returns a topic and its descendants in pre-order.
func (e *Engine) Subtree(id string) ([]topic.Entry, error) {
	return e.idx.Subtree(id)
}

// ExtractionsFor returns the extractions taken from parentID.
func (e *Engine) ExtractionsFor(parentID string) ([]topic.Extraction, error) {
	return e.idx.ExtractionsFor(parentID)
}

// Highlights returns the extractions of parentID checked against its current
// content. Spans that no longer fit are marked Stale; they are never moved.
func (e *Engine) Highlights(parentID string) ([]topic.Highlight, error) {
	text, err := e.GetContent(parentID)
	if err != nil {
		return nil, err
	}
	exts, err := e.idx.ExtractionsFor(parentID)
	if err != nil {
		return nil, err
	}

	n := topic.RuneLen(text)
	highlights := make([]topic.Highlight, len(exts))
	for i, ext := range exts {
		highlights[i] = topic.Highlight{Extraction: ext, Stale: !ext.Fits(n)}
	}
	return highlights, nil
}

func (e *Engine) discardBlob(ref string) {
	if err := e.blobs.Delete(ref); err != nil {
		e.log.Warn("failed to remove blob", zap.String("content_ref", ref), zap.Error(err))
	}
}

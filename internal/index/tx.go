package index

import (
	"database/sql"
	"time"

	"github.com/iromo/iromo/internal/topic"
)

// Tx is a write transaction on the index. All changes made through a Tx
// commit together or not at all.
type Tx struct {
	tx *sql.Tx
}

// Update runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (d *DB) Update(fn func(*Tx) error) error {
	sqlTx, err := d.db.Begin()
	if err != nil {
		return topic.Errorf(topic.ErrIO, "begin transaction: %v", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return topic.Errorf(topic.ErrIO, "commit: %v", err)
	}
	committed = true
	return nil
}

// InsertTopic adds a topic row. The parent, when set, must exist.
func (t *Tx) InsertTopic(tp *topic.Topic) error {
	if tp.ParentID != "" {
		if _, err := getTopic(t.tx, tp.ParentID); err != nil {
			return topic.Errorf(topic.ErrInvalidParent, "parent %s does not exist", tp.ParentID)
		}
	}

	_, err := t.tx.Exec(`
		INSERT INTO topics (id, parent_id, title, content_ref, created_at, updated_at, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tp.ID, nullableStringValue(tp.ParentID), tp.Title, tp.ContentRef,
		formatTime(tp.CreatedAt), formatTime(tp.UpdatedAt), nullableOrder(tp.DisplayOrder))
	if err != nil {
		return topic.Errorf(topic.ErrIO, "inserting topic %s: %v", tp.ID, err)
	}
	return nil
}

// GetTopic reads a topic inside the transaction.
func (t *Tx) GetTopic(id string) (*topic.Topic, error) {
	return getTopic(t.tx, id)
}

// Children lists parentID's children inside the transaction.
func (t *Tx) Children(parentID string) ([]topic.Topic, error) {
	return children(t.tx, parentID)
}

// NextDisplayOrder returns one past the largest display order among
// parentID's children, or 0 when there are none.
func (t *Tx) NextDisplayOrder(parentID string) (int, error) {
	return nextDisplayOrder(t.tx, parentID)
}

// UpdateTitle sets a topic's title and updated_at.
func (t *Tx) UpdateTitle(id, title string, at time.Time) error {
	res, err := t.tx.Exec(`UPDATE topics SET title = ?, updated_at = ? WHERE id = ?`,
		title, formatTime(at), id)
	return expectOne(res, err, "topic", id)
}

// Touch sets a topic's updated_at.
func (t *Tx) Touch(id string, at time.Time) error {
	res, err := t.tx.Exec(`UPDATE topics SET updated_at = ? WHERE id = ?`, formatTime(at), id)
	return expectOne(res, err, "topic", id)
}

// SetParent re-links a topic without touching updated_at. An empty parentID
// makes it a root.
func (t *Tx) SetParent(id, parentID string) error {
	res, err := t.tx.Exec(`UPDATE topics SET parent_id = ? WHERE id = ?`,
		nullableStringValue(parentID), id)
	return expectOne(res, err, "topic", id)
}

// SetDisplayOrder sets a topic's sibling position without touching updated_at.
func (t *Tx) SetDisplayOrder(id string, order *int) error {
	res, err := t.tx.Exec(`UPDATE topics SET display_order = ? WHERE id = ?`, nullableOrder(order), id)
	return expectOne(res, err, "topic", id)
}

// DeleteTopic removes a single topic row. Children and extractions must
// already be gone.
func (t *Tx) DeleteTopic(id string) error {
	res, err := t.tx.Exec(`DELETE FROM topics WHERE id = ?`, id)
	return expectOne(res, err, "topic", id)
}

// InsertExtraction adds an extraction row. Both topics must exist and the
// child must sit directly under the parent.
func (t *Tx) InsertExtraction(e *topic.Extraction) error {
	if err := topic.ValidateRange(e.StartChar, e.EndChar); err != nil {
		return err
	}
	if _, err := getTopic(t.tx, e.ParentTopicID); err != nil {
		return err
	}
	child, err := getTopic(t.tx, e.ChildTopicID)
	if err != nil {
		return err
	}
	if child.ParentID != e.ParentTopicID {
		return topic.Errorf(topic.ErrInvalidParent, "topic %s is not a child of %s", e.ChildTopicID, e.ParentTopicID)
	}

	_, err = t.tx.Exec(`
		INSERT INTO extractions (id, parent_topic_id, child_topic_id, start_char, end_char)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ParentTopicID, e.ChildTopicID, e.StartChar, e.EndChar)
	if err != nil {
		return topic.Errorf(topic.ErrIO, "inserting extraction %s: %v", e.ID, err)
	}
	return nil
}

// ExtractionByChild returns the extraction that produced childID.
func (t *Tx) ExtractionByChild(childID string) (*topic.Extraction, error) {
	return extractionByChild(t.tx, childID)
}

// GetExtraction reads an extraction inside the transaction.
func (t *Tx) GetExtraction(id string) (*topic.Extraction, error) {
	return getExtraction(t.tx, id)
}

// DeleteExtraction removes an extraction row, leaving both topics in place.
func (t *Tx) DeleteExtraction(id string) error {
	res, err := t.tx.Exec(`DELETE FROM extractions WHERE id = ?`, id)
	return expectOne(res, err, "extraction", id)
}

// DeleteExtractionsTouching removes every extraction whose parent or child
// is in ids and returns how many were removed.
func (t *Tx) DeleteExtractionsTouching(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders, args := inClause(ids)
	args = append(args, args...)

	res, err := t.tx.Exec(`DELETE FROM extractions
		WHERE parent_topic_id IN (`+placeholders+`) OR child_topic_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, topic.Errorf(topic.ErrIO, "deleting extractions: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, topic.Errorf(topic.ErrIO, "deleting extractions: %v", err)
	}
	return int(n), nil
}

func expectOne(res sql.Result, err error, what, id string) error {
	if err != nil {
		return topic.Errorf(topic.ErrIO, "updating %s %s: %v", what, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return topic.Errorf(topic.ErrIO, "updating %s %s: %v", what, id, err)
	}
	if n == 0 {
		return topic.Errorf(topic.ErrNotFound, "%s %s", what, id)
	}
	return nil
}

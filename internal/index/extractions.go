package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iromo/iromo/internal/topic"
)

// ExtractionsFor returns the extractions whose parent is parentID, ordered
// by start offset, then end offset, then ID.
func (d *DB) ExtractionsFor(parentID string) ([]topic.Extraction, error) {
	return extractionsFor(d.db, parentID)
}

// GetExtraction retrieves an extraction by ID.
func (d *DB) GetExtraction(id string) (*topic.Extraction, error) {
	return getExtraction(d.db, id)
}

// ExtractionByChild returns the extraction that produced childID, if any.
func (d *DB) ExtractionByChild(childID string) (*topic.Extraction, error) {
	return extractionByChild(d.db, childID)
}

func extractionByChild(q querier, childID string) (*topic.Extraction, error) {
	row := q.QueryRow(`SELECT `+selectExtractionFields+` FROM extractions WHERE child_topic_id = ?`, childID)
	e, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, topic.Errorf(topic.ErrNotFound, "extraction for child %s", childID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting extraction for child %s: %w", childID, err)
	}
	return e, nil
}

// AllExtractions returns every extraction record.
func (d *DB) AllExtractions() ([]topic.Extraction, error) {
	rows, err := d.db.Query(`SELECT ` + selectExtractionFields + ` FROM extractions ORDER BY parent_topic_id, start_char, end_char, id`)
	if err != nil {
		return nil, fmt.Errorf("querying extractions: %w", err)
	}
	defer rows.Close()
	return scanExtractions(rows)
}

func extractionsFor(q querier, parentID string) ([]topic.Extraction, error) {
	rows, err := q.Query(`SELECT `+selectExtractionFields+` FROM extractions
		WHERE parent_topic_id = ? ORDER BY start_char, end_char, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying extractions of %s: %w", parentID, err)
	}
	defer rows.Close()
	return scanExtractions(rows)
}

func getExtraction(q querier, id string) (*topic.Extraction, error) {
	row := q.QueryRow(`SELECT `+selectExtractionFields+` FROM extractions WHERE id = ?`, id)
	e, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, topic.Errorf(topic.ErrNotFound, "extraction %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting extraction %s: %w", id, err)
	}
	return e, nil
}

// extractionsTouching returns extractions whose parent or child is in ids.
func extractionsTouching(q querier, ids []string) ([]topic.Extraction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	args = append(args, args...)

	rows, err := q.Query(`SELECT `+selectExtractionFields+` FROM extractions
		WHERE parent_topic_id IN (`+placeholders+`) OR child_topic_id IN (`+placeholders+`)
		ORDER BY parent_topic_id, start_char, end_char, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying extractions: %w", err)
	}
	defer rows.Close()
	return scanExtractions(rows)
}

func inClause(ids []string) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// ExtractionsTouching returns extractions whose parent or child is one of ids.
func (d *DB) ExtractionsTouching(ids []string) ([]topic.Extraction, error) {
	return extractionsTouching(d.db, ids)
}

package index

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/iromo/iromo/internal/topic"
)

// GetTopic retrieves a topic by ID.
func (d *DB) GetTopic(id string) (*topic.Topic, error) {
	return getTopic(d.db, id)
}

// Children returns the direct children of parentID in sibling order.
// An empty parentID lists root topics.
func (d *DB) Children(parentID string) ([]topic.Topic, error) {
	return children(d.db, parentID)
}

// Subtree returns the topic and all its descendants in pre-order.
func (d *DB) Subtree(id string) ([]topic.Entry, error) {
	return subtree(d.db, id)
}

// Hierarchy returns every topic as a pre-order walk from the roots.
// Siblings are ordered by display order (unset last), then creation time, then ID.
func (d *DB) Hierarchy() ([]topic.Entry, error) {
	all, err := allTopics(d.db)
	if err != nil {
		return nil, err
	}
	return flatten(all, ""), nil
}

// ContentRefs returns every content_ref referenced by a topic.
func (d *DB) ContentRefs() (map[string]string, error) {
	rows, err := d.db.Query(`SELECT id, content_ref FROM topics`)
	if err != nil {
		return nil, fmt.Errorf("querying content refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]string)
	for rows.Next() {
		var id, ref string
		if err := rows.Scan(&id, &ref); err != nil {
			return nil, err
		}
		refs[ref] = id
	}
	return refs, rows.Err()
}

func getTopic(q querier, id string) (*topic.Topic, error) {
	row := q.QueryRow(`SELECT `+selectTopicFields+` FROM topics WHERE id = ?`, id)
	t, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, topic.Errorf(topic.ErrNotFound, "topic %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting topic %s: %w", id, err)
	}
	return t, nil
}

func children(q querier, parentID string) ([]topic.Topic, error) {
	var rows *sql.Rows
	var err error
	if parentID == "" {
		rows, err = q.Query(`SELECT ` + selectTopicFields + ` FROM topics WHERE parent_id IS NULL`)
	} else {
		rows, err = q.Query(`SELECT `+selectTopicFields+` FROM topics WHERE parent_id = ?`, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying children of %q: %w", parentID, err)
	}
	defer rows.Close()

	topics, err := scanTopics(rows)
	if err != nil {
		return nil, err
	}
	sortSiblings(topics)
	return topics, nil
}

func allTopics(q querier) ([]topic.Topic, error) {
	rows, err := q.Query(`SELECT ` + selectTopicFields + ` FROM topics`)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()
	return scanTopics(rows)
}

func subtree(q querier, id string) ([]topic.Entry, error) {
	root, err := getTopic(q, id)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(`
		WITH RECURSIVE sub(id) AS (
			SELECT id FROM topics WHERE parent_id = ?
			UNION
			SELECT t.id FROM topics t JOIN sub ON t.parent_id = sub.id
		)
		SELECT `+selectTopicFields+` FROM topics WHERE id IN (SELECT id FROM sub)`, id)
	if err != nil {
		return nil, fmt.Errorf("querying subtree of %s: %w", id, err)
	}
	defer rows.Close()

	descendants, err := scanTopics(rows)
	if err != nil {
		return nil, err
	}

	entries := []topic.Entry{{Topic: *root, Depth: 0}}
	for _, e := range flatten(descendants, id) {
		e.Depth++
		entries = append(entries, e)
	}
	return entries, nil
}

// flatten walks topics depth-first starting from the children of rootParent.
// Topics whose parent is not reachable are not returned.
func flatten(topics []topic.Topic, rootParent string) []topic.Entry {
	byParent := make(map[string][]topic.Topic)
	for _, t := range topics {
		byParent[t.ParentID] = append(byParent[t.ParentID], t)
	}
	for _, kids := range byParent {
		sortSiblings(kids)
	}

	var out []topic.Entry
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, t := range byParent[parent] {
			out = append(out, topic.Entry{Topic: t, Depth: depth})
			walk(t.ID, depth+1)
		}
	}
	walk(rootParent, 0)
	return out
}

func sortSiblings(topics []topic.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		if (a.DisplayOrder == nil) != (b.DisplayOrder == nil) {
			return a.DisplayOrder != nil
		}
		if a.DisplayOrder != nil && *a.DisplayOrder != *b.DisplayOrder {
			return *a.DisplayOrder < *b.DisplayOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func nextDisplayOrder(q querier, parentID string) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == "" {
		err = q.QueryRow(`SELECT MAX(display_order) FROM topics WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = q.QueryRow(`SELECT MAX(display_order) FROM topics WHERE parent_id = ?`, parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("reading display order: %w", err)
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}

// Stats summarizes the index contents.
type Stats struct {
	Topics      int `json:"topics"`
	Roots       int `json:"roots"`
	Extractions int `json:"extractions"`
}

// Stats counts topics, roots and extractions.
func (d *DB) Stats() (*Stats, error) {
	var s Stats
	err := d.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM topics),
		(SELECT COUNT(*) FROM topics WHERE parent_id IS NULL),
		(SELECT COUNT(*) FROM extractions)`).Scan(&s.Topics, &s.Roots, &s.Extractions)
	if err != nil {
		return nil, fmt.Errorf("counting: %w", err)
	}
	return &s, nil
}

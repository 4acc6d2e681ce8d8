// Package index is the relational index of a collection: topic metadata,
// parent links and extraction records in SQLite.
package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/iromo/iromo/internal/topic"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// dsnPragmas are applied by the driver to every new connection.
const dsnPragmas = "?_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(FULL)"

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// selectTopicFields contains the standard field list for topic SELECT queries.
const selectTopicFields = `id, parent_id, title, content_ref, created_at, updated_at, display_order`

// selectExtractionFields contains the standard field list for extraction SELECT queries.
const selectExtractionFields = `id, parent_topic_id, child_topic_id, start_char, end_char`

// Open opens or creates the index database at path. The schema is not
// created here; callers apply migrations with ApplyMigrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	return &DB{db: db, path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTopic(s scanner) (*topic.Topic, error) {
	var t topic.Topic
	var parentID sql.NullString
	var createdAt, updatedAt string
	var order sql.NullInt64

	if err := s.Scan(&t.ID, &parentID, &t.Title, &t.ContentRef, &createdAt, &updatedAt, &order); err != nil {
		return nil, err
	}

	t.ParentID = parentID.String
	if order.Valid {
		n := int(order.Int64)
		t.DisplayOrder = &n
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", t.ID, err)
	}

	return &t, nil
}

func scanTopics(rows *sql.Rows) ([]topic.Topic, error) {
	var topics []topic.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

func scanExtraction(s scanner) (*topic.Extraction, error) {
	var e topic.Extraction
	if err := s.Scan(&e.ID, &e.ParentTopicID, &e.ChildTopicID, &e.StartChar, &e.EndChar); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanExtractions(rows *sql.Rows) ([]topic.Extraction, error) {
	var out []topic.Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// formatTime renders t in the stored timestamp format.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the stored format plus the layouts the driver may
// hand back for TIMESTAMP columns.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableOrder(order *int) sql.NullInt64 {
	if order == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*order), Valid: true}
}

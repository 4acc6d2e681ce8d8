package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/iromo/iromo/internal/topic"
)

// MaxArchiveLineCapacity is the maximum buffer size for reading archive
// lines. A topic line carries the topic's whole text.
const MaxArchiveLineCapacity = 64 * 1024 * 1024

// Archive record types.
const (
	RecordTopic      = "topic"
	RecordExtraction = "extraction"
)

// Record is one line of a JSONL archive.
type Record struct {
	Type       string            `json:"type"`
	Topic      *topic.Topic      `json:"topic,omitempty"`
	Content    string            `json:"content,omitempty"`
	Extraction *topic.Extraction `json:"extraction,omitempty"`
}

// Export writes every topic with its text in hierarchy pre-order, then every
// extraction, one JSON record per line.
func (e *Engine) Export(w io.Writer) error {
	entries, err := e.idx.Hierarchy()
	if err != nil {
		return err
	}
	exts, err := e.idx.AllExtractions()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for i := range entries {
		t := entries[i].Topic
		text, err := e.blobs.Get(t.ContentRef)
		if err != nil {
			return err
		}
		if err := enc.Encode(Record{Type: RecordTopic, Topic: &t, Content: text}); err != nil {
			return fmt.Errorf("writing topic %s: %w", t.ID, err)
		}
	}
	for i := range exts {
		if err := enc.Encode(Record{Type: RecordExtraction, Extraction: &exts[i]}); err != nil {
			return fmt.Errorf("writing extraction %s: %w", exts[i].ID, err)
		}
	}
	return nil
}

// ReadArchive parses an archive into one Subtree per root topic, ready for
// Restore. Topics must appear after their parent. Each extraction goes with
// the subtree holding its child.
func ReadArchive(r io.Reader) ([]*Subtree, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, MaxArchiveLineCapacity)

	var subtrees []*Subtree
	owner := make(map[string]*Subtree) // topic id -> subtree

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}

		switch rec.Type {
		case RecordTopic:
			if rec.Topic == nil {
				return nil, fmt.Errorf("line %d: topic record without topic", lineNum)
			}
			t := *rec.Topic
			var s *Subtree
			if t.ParentID == "" {
				s = &Subtree{Contents: make(map[string]string)}
				subtrees = append(subtrees, s)
			} else if s = owner[t.ParentID]; s == nil {
				return nil, fmt.Errorf("line %d: topic %s appears before its parent %s", lineNum, t.ID, t.ParentID)
			}
			s.Topics = append(s.Topics, t)
			s.Contents[t.ContentRef] = rec.Content
			owner[t.ID] = s

		case RecordExtraction:
			if rec.Extraction == nil {
				return nil, fmt.Errorf("line %d: extraction record without extraction", lineNum)
			}
			s := owner[rec.Extraction.ChildTopicID]
			if s == nil {
				return nil, fmt.Errorf("line %d: extraction %s refers to unknown topic %s",
					lineNum, rec.Extraction.ID, rec.Extraction.ChildTopicID)
			}
			s.Extractions = append(s.Extractions, *rec.Extraction)

		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", lineNum, rec.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return subtrees, nil
}

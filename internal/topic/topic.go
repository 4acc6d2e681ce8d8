// Package topic defines the core domain types for the topic hierarchy.
package topic

import (
	"time"
	"unicode/utf8"
)

// Topic is a node of text content in the knowledge tree.
type Topic struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id,omitempty"` // empty for root topics
	Title      string    `json:"title"`
	ContentRef string    `json:"content_ref"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// DisplayOrder orders siblings; nil sorts after numbered siblings.
	DisplayOrder *int `json:"display_order,omitempty"`
}

// IsRoot reports whether the topic has no parent.
func (t *Topic) IsRoot() bool {
	return t.ParentID == ""
}

// Order returns the display order, or -1 when unset.
func (t *Topic) Order() int {
	if t.DisplayOrder == nil {
		return -1
	}
	return *t.DisplayOrder
}

// Extraction records that a span of a parent's content became a child topic.
// Offsets are half-open rune indices [StartChar, EndChar) into the parent's
// content as it was when the extraction was recorded.
type Extraction struct {
	ID            string `json:"id"`
	ParentTopicID string `json:"parent_topic_id"`
	ChildTopicID  string `json:"child_topic_id"`
	StartChar     int    `json:"start_char"`
	EndChar       int    `json:"end_char"`
}

// ValidateRange checks the offset invariant 0 <= start < end.
func ValidateRange(start, end int) error {
	if start < 0 || end < 0 {
		return Errorf(ErrInvalidRange, "offsets must be non-negative (start=%d, end=%d)", start, end)
	}
	if start >= end {
		return Errorf(ErrInvalidRange, "start %d must be before end %d", start, end)
	}
	return nil
}

// Fits reports whether the span lies inside content of the given rune length.
func (e *Extraction) Fits(contentLen int) bool {
	return e.StartChar >= 0 && e.StartChar < e.EndChar && e.EndChar <= contentLen
}

// Span returns the extracted substring of content, or false when the span no
// longer fits.
func (e *Extraction) Span(content string) (string, bool) {
	runes := []rune(content)
	if !e.Fits(len(runes)) {
		return "", false
	}
	return string(runes[e.StartChar:e.EndChar]), true
}

// Entry is one row of the flattened hierarchy, in pre-order.
type Entry struct {
	Topic Topic `json:"topic"`
	Depth int   `json:"depth"`
}

// Highlight is an extraction as seen by a reader re-highlighting its parent.
// Stale is set when the recorded span no longer fits the parent's content.
type Highlight struct {
	Extraction
	Stale bool `json:"stale"`
}

// RuneLen returns the number of characters in s as offsets count them.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

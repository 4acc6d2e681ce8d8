package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/iromo/iromo/internal/topic"
)

// Title truncation lengths by context
const (
	ListTitleMaxLen   = 50 // Used in extraction listings
	DetailTitleMaxLen = 70 // Used in show detail view
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg, Code: code})
	}
	os.Exit(code)
}

// exitWithErr reports err with context and exits with the code for its kind.
func exitWithErr(err error, format string, args ...interface{}) {
	logger.Sugar().Debugw("command failed", "error", err)
	exitWithError(exitCodeFor(err), "%s: %v", fmt.Sprintf(format, args...), err)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// TopicResponse is a topic with its text.
type TopicResponse struct {
	topic.Topic
	Content string `json:"content"`
}

// ShowResponse is the response for show.
type ShowResponse struct {
	TopicResponse
	Highlights []HighlightResult `json:"highlights"`
}

// HighlightResult is an extraction with the text it covers, when it still fits.
type HighlightResult struct {
	topic.Highlight
	Text string `json:"text,omitempty"`
}

// ExtractResponse is the response for extract.
type ExtractResponse struct {
	Extraction topic.Extraction `json:"extraction"`
	Child      topic.Topic      `json:"child"`
}

// MoveResponse is the response for move.
type MoveResponse struct {
	ID       string            `json:"id"`
	ParentID string            `json:"parent_id,omitempty"`
	Position int               `json:"position"`
	Detached *topic.Extraction `json:"detached,omitempty"`
}

// DeleteResponse is the response for delete.
type DeleteResponse struct {
	Deleted     []string `json:"deleted"`
	Description string   `json:"description"`
}

// UpdateResponse is the response for commands that change one field.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatPlacement formats a parent id for human output.
func formatPlacement(parentID string) string {
	if parentID == "" {
		return "(root)"
	}
	return parentID
}

// indentLines prefixes every line of text with indent.
func indentLines(text, indent string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iromo/iromo/internal/collection"
	"github.com/iromo/iromo/internal/command"
	"github.com/iromo/iromo/internal/storage"
	"github.com/iromo/iromo/internal/topic"
)

// The functions below run one undoable change through the collection's
// history. Cobra commands and the shell share them.

func createTopic(c *collection.Collection, parentID, title, text string) (*topic.Topic, error) {
	cmd := command.NewCreateTopic(c.Engine, storage.CreateParams{ParentID: parentID, Title: title, Content: text})
	if err := c.Run(cmd); err != nil {
		return nil, err
	}
	return cmd.Created(), nil
}

func renameTopic(c *collection.Collection, id, title string) error {
	return c.Run(command.NewChangeTitle(c.Engine, id, title))
}

func saveContent(c *collection.Collection, id, text string) error {
	return c.Run(command.NewSaveContent(c.Engine, id, text))
}

// extractSpan extracts the runes [start, end) of the parent's current text.
func extractSpan(c *collection.Collection, parentID string, start, end int) (*topic.Extraction, *topic.Topic, error) {
	text, err := c.Engine.GetContent(parentID)
	if err != nil {
		return nil, nil, err
	}
	span, err := spanOf(text, start, end)
	if err != nil {
		return nil, nil, err
	}

	cmd := command.NewExtractText(c.Engine, parentID, start, end, span)
	if err := c.Run(cmd); err != nil {
		return nil, nil, err
	}
	ext, child := cmd.Extraction()
	return ext, child, nil
}

func moveTopic(c *collection.Collection, id, parentID string, position int) (*MoveResponse, error) {
	cmd := command.NewMoveTopic(c.Engine, id, parentID, position)
	if err := c.Run(cmd); err != nil {
		return nil, err
	}
	newParent, pos, err := c.Engine.Placement(id)
	if err != nil {
		return nil, err
	}
	return &MoveResponse{ID: id, ParentID: newParent, Position: pos, Detached: cmd.Detached()}, nil
}

func deleteTopics(c *collection.Collection, ids ...string) (*DeleteResponse, error) {
	cmd := command.NewDeleteTopics(c.Engine, ids...)
	if err := c.Run(cmd); err != nil {
		return nil, err
	}
	return &DeleteResponse{Deleted: cmd.Deleted(), Description: cmd.Description()}, nil
}

func unlinkExtraction(c *collection.Collection, id string) error {
	return c.Run(command.NewDeleteExtraction(c.Engine, id))
}

// spanOf returns the runes [start, end) of text.
func spanOf(text string, start, end int) (string, error) {
	if err := topic.ValidateRange(start, end); err != nil {
		return "", err
	}
	runes := []rune(text)
	if end > len(runes) {
		return "", topic.Errorf(topic.ErrInvalidRange, "end %d is past the end of the text (%d characters)", end, len(runes))
	}
	return string(runes[start:end]), nil
}

// showTopic gathers a topic, its text and its highlights.
func showTopic(c *collection.Collection, id string) (*ShowResponse, error) {
	t, err := c.Engine.GetTopic(id)
	if err != nil {
		return nil, err
	}
	text, err := c.Engine.GetContent(id)
	if err != nil {
		return nil, err
	}
	highlights, err := c.Engine.Highlights(id)
	if err != nil {
		return nil, err
	}

	resp := &ShowResponse{
		TopicResponse: TopicResponse{Topic: *t, Content: text},
		Highlights:    make([]HighlightResult, 0, len(highlights)),
	}
	for _, h := range highlights {
		r := HighlightResult{Highlight: h}
		if span, ok := h.Span(text); ok {
			r.Text = span
		}
		resp.Highlights = append(resp.Highlights, r)
	}
	return resp, nil
}

// printShowHuman prints a topic with its live and stale extractions.
func printShowHuman(w io.Writer, r *ShowResponse) {
	fmt.Fprintf(w, "%s\n", truncateString(r.Title, DetailTitleMaxLen))
	fmt.Fprintf(w, "  ID:      %s\n", r.ID)
	fmt.Fprintf(w, "  Parent:  %s\n", formatPlacement(r.ParentID))
	fmt.Fprintf(w, "  Updated: %s\n", r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(w)
	if r.Content != "" {
		fmt.Fprintln(w, indentLines(r.Content, "  "))
		fmt.Fprintln(w)
	}

	var stale []HighlightResult
	live := 0
	for _, h := range r.Highlights {
		if h.Stale {
			stale = append(stale, h)
			continue
		}
		if live == 0 {
			fmt.Fprintln(w, "Extractions:")
		}
		live++
		fmt.Fprintf(w, "  [%d:%d] %s -> %s\n", h.StartChar, h.EndChar,
			truncateString(strings.ReplaceAll(h.Text, "\n", " "), ListTitleMaxLen), h.ChildTopicID)
	}
	if len(stale) > 0 {
		fmt.Fprintln(w, "Stale extractions (text changed since extraction):")
		for _, h := range stale {
			fmt.Fprintf(w, "  [%d:%d] -> %s\n", h.StartChar, h.EndChar, h.ChildTopicID)
		}
	}
}

// parseOffset parses a start or end offset argument.
func parseOffset(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, topic.Errorf(topic.ErrInvalidRange, "%s must be an integer, got %q", name, value)
	}
	return n, nil
}

// parseParent maps "-" and "root" to the root level.
func parseParent(value string) string {
	if value == "-" || value == "root" {
		return ""
	}
	return value
}

// readText reads text from path, or from stdin when path is "-" or empty.
func readText(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

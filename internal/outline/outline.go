// Package outline renders the topic hierarchy as an indented text tree or
// a standalone HTML page with extraction highlights.
package outline

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/iromo/iromo/internal/topic"
)

// Node is a topic with its children, built from a pre-order listing.
type Node struct {
	Topic    topic.Topic
	Depth    int
	Children []*Node
}

// Build turns pre-order hierarchy entries into a forest.
func Build(entries []topic.Entry) []*Node {
	var roots []*Node
	var stack []*Node

	for _, e := range entries {
		n := &Node{Topic: e.Topic, Depth: e.Depth}
		for len(stack) > 0 && stack[len(stack)-1].Depth >= e.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, n)
	}
	return roots
}

// TextOptions controls WriteText.
type TextOptions struct {
	ShowIDs bool
	Since   *time.Time // marks topics created after it with "*"
}

// WriteText writes one line per topic, indented two spaces per level.
func WriteText(w io.Writer, entries []topic.Entry, opts TextOptions) error {
	for _, e := range entries {
		var sb strings.Builder
		sb.WriteString(strings.Repeat("  ", e.Depth))
		if IsNew(&e.Topic, opts.Since) {
			sb.WriteString("* ")
		} else {
			sb.WriteString("- ")
		}
		sb.WriteString(e.Topic.Title)
		if opts.ShowIDs {
			fmt.Fprintf(&sb, "  [%s]", e.Topic.ID)
		}
		sb.WriteString("\n")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// IsNew checks if a topic was created after the given time.
func IsNew(t *topic.Topic, since *time.Time) bool {
	if since == nil || t == nil {
		return false
	}
	return t.CreatedAt.After(*since)
}

// ParseSince parses a --since value into a time. It accepts RFC3339, a
// YYYY-MM-DD date, or an age such as "12h", "7d" or "2w" before now.
func ParseSince(value string) (*time.Time, error) {
	return parseSinceAt(value, time.Now())
}

func parseSinceAt(value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return &t, nil
	}

	t, err = time.ParseInLocation("2006-01-02", value, time.Local)
	if err == nil {
		return &t, nil
	}

	if age, err := ParseAge(value); err == nil {
		t = now.Add(-age)
		return &t, nil
	}

	return nil, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD, ISO format or an age like 7d)", value)
}

// Age parsing errors.
var (
	ErrInvalidAge  = errors.New("invalid age format")
	ErrUnknownUnit = errors.New("unknown age unit")
)

// ParseAge parses an age like "2d", "12h", "1w".
// Supported units: h (hours), d (days), w (weeks).
func ParseAge(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, ErrInvalidAge
	}

	unit := s[len(s)-1]
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value < 0 {
		return 0, ErrInvalidAge
	}

	switch unit {
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %c", ErrUnknownUnit, unit)
	}
}

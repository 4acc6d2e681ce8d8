package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/iromo/iromo/internal/collection"
	"github.com/iromo/iromo/internal/topic"
	"github.com/iromo/iromo/internal/undo"
)

func TestSpanOf(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		start    int
		end      int
		want     string
		wantKind error
	}{
		{name: "middle word", text: "Hello world", start: 6, end: 11, want: "world"},
		{name: "runes not bytes", text: "héllo wörld", start: 6, end: 11, want: "wörld"},
		{name: "whole text", text: "abc", start: 0, end: 3, want: "abc"},
		{name: "empty span", text: "abc", start: 1, end: 1, wantKind: topic.ErrInvalidRange},
		{name: "reversed", text: "abc", start: 2, end: 1, wantKind: topic.ErrInvalidRange},
		{name: "negative", text: "abc", start: -1, end: 2, wantKind: topic.ErrInvalidRange},
		{name: "past end", text: "abc", start: 1, end: 4, wantKind: topic.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := spanOf(tt.text, tt.start, tt.end)
			if tt.wantKind != nil {
				if !errors.Is(err, tt.wantKind) {
					t.Fatalf("spanOf() error = %v, want %v", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("spanOf() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("spanOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"not found", topic.Errorf(topic.ErrNotFound, "topic x"), ExitNotFound},
		{"invalid range", topic.Errorf(topic.ErrInvalidRange, "bad"), ExitDataError},
		{"cyclic move", fmt.Errorf("moving: %w", topic.ErrCyclicMove), ExitDataError},
		{"invalid parent", topic.ErrInvalidParent, ExitDataError},
		{"invalid title", topic.ErrInvalidTitle, ExitDataError},
		{"duplicate", topic.Errorf(topic.ErrDuplicate, "topic x"), ExitDataError},
		{"io", topic.Errorf(topic.ErrIO, "disk"), ExitIOError},
		{"migration", topic.ErrMigration, ExitMigrationError},
		{"inconsistency", &undo.InconsistencyError{Op: "undo", Err: topic.ErrNotFound}, ExitInconsistency},
		{"not a collection", fmt.Errorf("%w: nope", collection.ErrNotCollection), ExitConfigError},
		{"other", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseParent(t *testing.T) {
	for in, want := range map[string]string{"-": "", "root": "", "": "", "abc": "abc"} {
		if got := parseParent(in); got != want {
			t.Errorf("parseParent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q, want short", got)
	}
	if got := truncateString("ééééééééééé", 6); got != "ééé..." {
		t.Errorf("truncateString() = %q, want ééé...", got)
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "topic"); got != "1 topic" {
		t.Errorf("pluralize(1) = %q", got)
	}
	if got := pluralize(3, "topic"); got != "3 topics" {
		t.Errorf("pluralize(3) = %q", got)
	}
}

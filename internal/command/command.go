// Package command holds the reversible topic operations run through an
// undo.History. Each command captures the prior state it needs when it
// executes.
package command

import (
	"fmt"

	"github.com/iromo/iromo/internal/storage"
	"github.com/iromo/iromo/internal/topic"
	"github.com/iromo/iromo/internal/undo"
)

var (
	_ undo.Command = (*CreateTopic)(nil)
	_ undo.Redoer  = (*CreateTopic)(nil)
	_ undo.Command = (*ChangeTitle)(nil)
	_ undo.Command = (*SaveContent)(nil)
	_ undo.Command = (*ExtractText)(nil)
	_ undo.Redoer  = (*ExtractText)(nil)
	_ undo.Command = (*MoveTopic)(nil)
	_ undo.Command = (*DeleteTopics)(nil)
	_ undo.Command = (*DeleteExtraction)(nil)
	_ undo.Command = (*RestoreTopics)(nil)
)

// CreateTopic adds a topic. Redo recreates it with the same id.
type CreateTopic struct {
	engine *storage.Engine
	params storage.CreateParams

	created *topic.Topic
	snap    *storage.Subtree
}

// NewCreateTopic returns a command creating a topic from params.
func NewCreateTopic(engine *storage.Engine, params storage.CreateParams) *CreateTopic {
	return &CreateTopic{engine: engine, params: params}
}

func (c *CreateTopic) Execute() error {
	t, err := c.engine.CreateTopic(c.params)
	if err != nil {
		return err
	}
	c.created = t
	return nil
}

func (c *CreateTopic) Undo() error {
	snap, err := c.engine.Snapshot(c.created.ID)
	if err != nil {
		return err
	}
	if err := c.engine.DeleteTopic(c.created.ID); err != nil {
		return err
	}
	c.snap = snap
	return nil
}

func (c *CreateTopic) Redo() error {
	return c.engine.Restore(c.snap)
}

func (c *CreateTopic) Description() string {
	if c.created == nil {
		return "Create topic"
	}
	return fmt.Sprintf("Create topic '%s'", c.created.Title)
}

// Created returns the new topic once executed.
func (c *CreateTopic) Created() *topic.Topic {
	return c.created
}

// ChangeTitle renames a topic.
type ChangeTitle struct {
	engine   *storage.Engine
	id       string
	newTitle string
	oldTitle string
}

// NewChangeTitle returns a command renaming id to title.
func NewChangeTitle(engine *storage.Engine, id, title string) *ChangeTitle {
	return &ChangeTitle{engine: engine, id: id, newTitle: title}
}

func (c *ChangeTitle) Execute() error {
	t, err := c.engine.GetTopic(c.id)
	if err != nil {
		return err
	}
	if err := c.engine.RenameTopic(c.id, c.newTitle); err != nil {
		return err
	}
	c.oldTitle = t.Title
	return nil
}

func (c *ChangeTitle) Undo() error {
	return c.engine.RenameTopic(c.id, c.oldTitle)
}

func (c *ChangeTitle) Description() string {
	if c.oldTitle == "" {
		return fmt.Sprintf("Rename topic to '%s'", c.newTitle)
	}
	return fmt.Sprintf("Rename topic '%s' to '%s'", c.oldTitle, c.newTitle)
}

// SaveContent replaces a topic's text.
type SaveContent struct {
	engine  *storage.Engine
	id      string
	newText string
	oldText string
	title   string
}

// NewSaveContent returns a command replacing the text of id.
func NewSaveContent(engine *storage.Engine, id, text string) *SaveContent {
	return &SaveContent{engine: engine, id: id, newText: text}
}

func (c *SaveContent) Execute() error {
	t, err := c.engine.GetTopic(c.id)
	if err != nil {
		return err
	}
	old, err := c.engine.GetContent(c.id)
	if err != nil {
		return err
	}
	if err := c.engine.SaveContent(c.id, c.newText); err != nil {
		return err
	}
	c.oldText = old
	c.title = t.Title
	return nil
}

func (c *SaveContent) Undo() error {
	return c.engine.SaveContent(c.id, c.oldText)
}

func (c *SaveContent) Description() string {
	if c.title == "" {
		return "Save content"
	}
	return fmt.Sprintf("Save content of '%s'", c.title)
}

// ExtractText promotes a span of a topic into a new child topic.
type ExtractText struct {
	engine   *storage.Engine
	parentID string
	start    int
	end      int
	text     string

	ext   *topic.Extraction
	child *topic.Topic
	snap  *storage.Subtree
}

// NewExtractText returns a command extracting text found at [start, end) of
// parentID's content.
func NewExtractText(engine *storage.Engine, parentID string, start, end int, text string) *ExtractText {
	return &ExtractText{engine: engine, parentID: parentID, start: start, end: end, text: text}
}

func (c *ExtractText) Execute() error {
	ext, child, err := c.engine.RecordExtraction(c.parentID, c.start, c.end, c.text)
	if err != nil {
		return err
	}
	c.ext, c.child = ext, child
	return nil
}

// Undo removes the extraction record first, then the child subtree.
func (c *ExtractText) Undo() error {
	snap, err := c.engine.Snapshot(c.child.ID)
	if err != nil {
		return err
	}
	if err := c.engine.DeleteExtraction(c.ext.ID); err != nil {
		return err
	}
	if err := c.engine.DeleteTopic(c.child.ID); err != nil {
		return err
	}
	c.snap = snap
	return nil
}

// Redo restores the same child and extraction ids.
func (c *ExtractText) Redo() error {
	return c.engine.Restore(c.snap)
}

func (c *ExtractText) Description() string {
	if c.child == nil {
		return "Extract text"
	}
	return fmt.Sprintf("Extract text to '%s'", c.child.Title)
}

// Extraction returns the recorded extraction and child once executed.
func (c *ExtractText) Extraction() (*topic.Extraction, *topic.Topic) {
	return c.ext, c.child
}

// MoveTopic re-links a topic to a new parent and position.
type MoveTopic struct {
	engine      *storage.Engine
	id          string
	newParentID string
	position    int

	title       string
	oldParentID string
	oldPosition int
	detached    *topic.Extraction
}

// NewMoveTopic returns a command moving id under newParentID at position.
func NewMoveTopic(engine *storage.Engine, id, newParentID string, position int) *MoveTopic {
	return &MoveTopic{engine: engine, id: id, newParentID: newParentID, position: position}
}

func (c *MoveTopic) Execute() error {
	t, err := c.engine.GetTopic(c.id)
	if err != nil {
		return err
	}
	oldParent, oldPos, err := c.engine.Placement(c.id)
	if err != nil {
		return err
	}
	detached, err := c.engine.MoveTopic(c.id, c.newParentID, c.position)
	if err != nil {
		return err
	}
	c.title = t.Title
	c.oldParentID, c.oldPosition = oldParent, oldPos
	c.detached = detached
	return nil
}

func (c *MoveTopic) Undo() error {
	if _, err := c.engine.MoveTopic(c.id, c.oldParentID, c.oldPosition); err != nil {
		return err
	}
	if c.detached != nil {
		return c.engine.RestoreExtraction(*c.detached)
	}
	return nil
}

func (c *MoveTopic) Description() string {
	if c.title == "" {
		return "Move topic"
	}
	return fmt.Sprintf("Move topic '%s'", c.title)
}

// Detached returns the extraction the move removed, if any.
func (c *MoveTopic) Detached() *topic.Extraction {
	return c.detached
}

// DeleteTopics removes one or more topics with their subtrees. Selected
// topics nested under another selected topic go with their ancestor.
type DeleteTopics struct {
	engine *storage.Engine
	ids    []string

	snaps []*storage.Subtree
}

// NewDeleteTopics returns a command deleting ids.
func NewDeleteTopics(engine *storage.Engine, ids ...string) *DeleteTopics {
	return &DeleteTopics{engine: engine, ids: ids}
}

func (c *DeleteTopics) Execute() error {
	roots, err := c.topLevel()
	if err != nil {
		return err
	}

	snaps := make([]*storage.Subtree, 0, len(roots))
	for _, id := range roots {
		snap, err := c.engine.Snapshot(id)
		if err != nil {
			return err
		}
		snaps = append(snaps, snap)
	}

	for i, snap := range snaps {
		if err := c.engine.DeleteTopic(snap.RootID()); err != nil {
			c.rollback(snaps[:i])
			return err
		}
	}
	c.snaps = snaps
	return nil
}

// Undo restores the subtrees in reverse deletion order.
func (c *DeleteTopics) Undo() error {
	for i := len(c.snaps) - 1; i >= 0; i-- {
		if err := c.engine.Restore(c.snaps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *DeleteTopics) Description() string {
	n := len(c.snaps)
	if n == 0 {
		n = len(c.ids)
	}
	if n == 1 {
		if len(c.snaps) == 1 {
			return fmt.Sprintf("Delete topic '%s'", c.snaps[0].Topics[0].Title)
		}
		return "Delete topic"
	}
	return fmt.Sprintf("Delete %d topics", n)
}

// Deleted returns the ids of every topic the command removed, subtrees
// included.
func (c *DeleteTopics) Deleted() []string {
	var ids []string
	for _, snap := range c.snaps {
		for _, t := range snap.Topics {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// rollback restores subtrees already deleted by a failed Execute so the
// command leaves no trace.
func (c *DeleteTopics) rollback(deleted []*storage.Subtree) {
	for i := len(deleted) - 1; i >= 0; i-- {
		_ = c.engine.Restore(deleted[i])
	}
}

// topLevel drops duplicates and ids that have a selected ancestor, keeping
// the selection order.
func (c *DeleteTopics) topLevel() ([]string, error) {
	selected := make(map[string]bool, len(c.ids))
	for _, id := range c.ids {
		selected[id] = true
	}

	var roots []string
	seen := make(map[string]bool)
	for _, id := range c.ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		t, err := c.engine.GetTopic(id)
		if err != nil {
			return nil, err
		}
		nested := false
		for parent := t.ParentID; parent != ""; {
			if selected[parent] {
				nested = true
				break
			}
			p, err := c.engine.GetTopic(parent)
			if err != nil {
				return nil, err
			}
			parent = p.ParentID
		}
		if !nested {
			roots = append(roots, id)
		}
	}
	return roots, nil
}

// DeleteExtraction removes an extraction record, keeping the child topic.
type DeleteExtraction struct {
	engine *storage.Engine
	id     string

	ext *topic.Extraction
}

// NewDeleteExtraction returns a command removing extraction id.
func NewDeleteExtraction(engine *storage.Engine, id string) *DeleteExtraction {
	return &DeleteExtraction{engine: engine, id: id}
}

func (c *DeleteExtraction) Execute() error {
	ext, err := c.engine.GetExtraction(c.id)
	if err != nil {
		return err
	}
	if err := c.engine.DeleteExtraction(c.id); err != nil {
		return err
	}
	c.ext = ext
	return nil
}

func (c *DeleteExtraction) Undo() error {
	return c.engine.RestoreExtraction(*c.ext)
}

func (c *DeleteExtraction) Description() string {
	return "Unlink extraction"
}

// RestoreTopics recreates captured subtrees, such as those read from an
// archive, with their original ids.
type RestoreTopics struct {
	engine   *storage.Engine
	subtrees []*storage.Subtree
}

// NewRestoreTopics returns a command restoring subtrees in order.
func NewRestoreTopics(engine *storage.Engine, subtrees []*storage.Subtree) *RestoreTopics {
	return &RestoreTopics{engine: engine, subtrees: subtrees}
}

func (c *RestoreTopics) Execute() error {
	for i, s := range c.subtrees {
		if err := c.engine.Restore(s); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.engine.DeleteTopic(c.subtrees[j].RootID())
			}
			return err
		}
	}
	return nil
}

func (c *RestoreTopics) Undo() error {
	for i := len(c.subtrees) - 1; i >= 0; i-- {
		if err := c.engine.DeleteTopic(c.subtrees[i].RootID()); err != nil {
			return err
		}
	}
	return nil
}

func (c *RestoreTopics) Description() string {
	n := 0
	for _, s := range c.subtrees {
		n += len(s.Topics)
	}
	if n == 1 {
		return "Restore 1 topic"
	}
	return fmt.Sprintf("Restore %d topics", n)
}

package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/iromo/iromo/internal/content"
	"github.com/iromo/iromo/internal/index"
	"github.com/iromo/iromo/internal/topic"
)

type testEnv struct {
	engine *Engine
	idx    *index.DB
	blobs  *content.Store
	ids    []string // queued ids handed out before the counter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	idx, err := index.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("index.Open() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	migrations, err := index.Migrations()
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if _, err := idx.ApplyMigrations(migrations, nil); err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}

	blobs, err := content.Open(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("content.Open() error = %v", err)
	}

	env := &testEnv{idx: idx, blobs: blobs}

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	counter := 0
	env.engine = New(idx, blobs, Options{
		Clock: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			if len(env.ids) > 0 {
				id := env.ids[0]
				env.ids = env.ids[1:]
				return id
			}
			counter++
			return fmt.Sprintf("id-%03d", counter)
		},
	})
	return env
}

func (env *testEnv) create(t *testing.T, parent, text string) *topic.Topic {
	t.Helper()
	tp, err := env.engine.CreateTopic(CreateParams{ParentID: parent, Content: text})
	if err != nil {
		t.Fatalf("CreateTopic(%q) error = %v", text, err)
	}
	return tp
}

func (env *testEnv) blobList(t *testing.T) []string {
	t.Helper()
	refs, err := env.blobs.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return refs
}

func hierarchyIDs(t *testing.T, e *Engine) []string {
	t.Helper()
	entries, err := e.Hierarchy()
	if err != nil {
		t.Fatalf("Hierarchy() error = %v", err)
	}
	var ids []string
	for _, entry := range entries {
		ids = append(ids, fmt.Sprintf("%s@%d", entry.Topic.ID, entry.Depth))
	}
	return ids
}

func TestCreateTopic(t *testing.T) {
	env := newTestEnv(t)

	root := env.create(t, "", "First line\nsecond line")
	if root.Title != "First line" {
		t.Errorf("Title = %q, want %q", root.Title, "First line")
	}
	if root.Order() != 0 {
		t.Errorf("Order() = %d, want 0", root.Order())
	}

	second := env.create(t, "", "another")
	if second.Order() != 1 {
		t.Errorf("second Order() = %d, want 1", second.Order())
	}

	titled, err := env.engine.CreateTopic(CreateParams{ParentID: root.ID, Content: "body", Title: "Explicit"})
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	if titled.Title != "Explicit" || titled.ParentID != root.ID {
		t.Errorf("CreateTopic() = %+v, want explicit title under root", titled)
	}

	text, err := env.engine.GetContent(root.ID)
	if err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if text != "First line\nsecond line" {
		t.Errorf("GetContent() = %q", text)
	}
}

func TestCreateTopic_InvalidParent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CreateTopic(CreateParams{ParentID: "missing", Content: "x"})
	if !errors.Is(err, topic.ErrInvalidParent) {
		t.Fatalf("CreateTopic() error = %v, want ErrInvalidParent", err)
	}
	if refs := env.blobList(t); len(refs) != 0 {
		t.Errorf("blobs after failed create = %v, want none", refs)
	}
}

func TestCreateTopic_RowFailureRemovesBlob(t *testing.T) {
	env := newTestEnv(t)
	first := env.create(t, "", "first")

	// Reuse the first topic's id so the row insert fails after the blob
	// has been written.
	env.ids = []string{first.ID, "orphan-ref"}
	_, err := env.engine.CreateTopic(CreateParams{Content: "second"})
	if err == nil {
		t.Fatal("CreateTopic() with duplicate id succeeded")
	}

	if diff := cmp.Diff([]string{first.ContentRef}, env.blobList(t)); diff != "" {
		t.Errorf("blobs mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordExtraction_HelloWorld(t *testing.T) {
	env := newTestEnv(t)
	parent := env.create(t, "", "Hello world")

	ext, child, err := env.engine.RecordExtraction(parent.ID, 6, 11, "world")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}

	if ext.ParentTopicID != parent.ID || ext.ChildTopicID != child.ID {
		t.Errorf("extraction links %s -> %s, want %s -> %s", ext.ParentTopicID, ext.ChildTopicID, parent.ID, child.ID)
	}
	if ext.StartChar != 6 || ext.EndChar != 11 {
		t.Errorf("offsets = [%d,%d), want [6,11)", ext.StartChar, ext.EndChar)
	}
	if child.ParentID != parent.ID || child.Title != "world" {
		t.Errorf("child = %+v", child)
	}

	text, err := env.engine.GetContent(child.ID)
	if err != nil || text != "world" {
		t.Errorf("GetContent(child) = %q, %v; want world", text, err)
	}

	parentText, _ := env.engine.GetContent(parent.ID)
	span, ok := ext.Span(parentText)
	if !ok || span != "world" {
		t.Errorf("Span() = %q, %v; want world", span, ok)
	}

	after, err := env.engine.GetTopic(parent.ID)
	if err != nil {
		t.Fatalf("GetTopic() error = %v", err)
	}
	if !after.UpdatedAt.Equal(parent.UpdatedAt) {
		t.Errorf("parent updated_at changed from %v to %v", parent.UpdatedAt, after.UpdatedAt)
	}

	exts, err := env.engine.ExtractionsFor(parent.ID)
	if err != nil {
		t.Fatalf("ExtractionsFor() error = %v", err)
	}
	if diff := cmp.Diff([]topic.Extraction{*ext}, exts); diff != "" {
		t.Errorf("ExtractionsFor() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordExtraction_InvalidRange(t *testing.T) {
	env := newTestEnv(t)
	parent := env.create(t, "", "Hello world")

	tests := []struct{ start, end int }{
		{5, 5},
		{6, 2},
		{-1, 3},
		{0, -2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.start, tt.end), func(t *testing.T) {
			_, _, err := env.engine.RecordExtraction(parent.ID, tt.start, tt.end, "x")
			if !errors.Is(err, topic.ErrInvalidRange) {
				t.Errorf("RecordExtraction() error = %v, want ErrInvalidRange", err)
			}
		})
	}

	if diff := cmp.Diff([]string{parent.ID + "@0"}, hierarchyIDs(t, env.engine)); diff != "" {
		t.Errorf("hierarchy changed (-want +got):\n%s", diff)
	}
	if len(env.blobList(t)) != 1 {
		t.Errorf("blobs = %v, want only the parent's", env.blobList(t))
	}
}

func TestRecordExtraction_MissingParent(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.engine.RecordExtraction("missing", 0, 1, "x")
	if !errors.Is(err, topic.ErrInvalidParent) {
		t.Errorf("RecordExtraction() error = %v, want ErrInvalidParent", err)
	}
	if refs := env.blobList(t); len(refs) != 0 {
		t.Errorf("blobs = %v, want none", refs)
	}
}

func TestRecordExtraction_FailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	parent := env.create(t, "", "Hello world")

	// Child id collides with the parent, so the transaction fails.
	env.ids = []string{parent.ID, "child-ref", "ext-id"}
	_, _, err := env.engine.RecordExtraction(parent.ID, 0, 5, "Hello")
	if err == nil {
		t.Fatal("RecordExtraction() with colliding id succeeded")
	}

	if diff := cmp.Diff([]string{parent.ID + "@0"}, hierarchyIDs(t, env.engine)); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{parent.ContentRef}, env.blobList(t)); diff != "" {
		t.Errorf("blobs mismatch (-want +got):\n%s", diff)
	}
	exts, _ := env.engine.ExtractionsFor(parent.ID)
	if len(exts) != 0 {
		t.Errorf("ExtractionsFor() = %v, want none", exts)
	}
}

func TestSaveContent_FailedUpdateKeepsText(t *testing.T) {
	env := newTestEnv(t)
	tp := env.create(t, "", "before")

	block := []index.Migration{{
		Name: "900_block_updates.sql",
		SQL: `CREATE TRIGGER block_updates BEFORE UPDATE ON topics
			BEGIN SELECT RAISE(ABORT, 'updates blocked'); END;`,
	}}
	if _, err := env.idx.ApplyMigrations(block, nil); err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}

	if err := env.engine.SaveContent(tp.ID, "after"); err == nil {
		t.Fatal("SaveContent() with blocked update: expected error")
	}

	text, err := env.engine.GetContent(tp.ID)
	if err != nil || text != "before" {
		t.Errorf("GetContent() = %q, %v; want before", text, err)
	}
	got, _ := env.engine.GetTopic(tp.ID)
	if !got.UpdatedAt.Equal(tp.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, tp.UpdatedAt)
	}
}

func TestSaveContent_KeepsOffsets(t *testing.T) {
	env := newTestEnv(t)
	parent := env.create(t, "", "Hello world")
	ext, _, err := env.engine.RecordExtraction(parent.ID, 6, 11, "world")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}

	if err := env.engine.SaveContent(parent.ID, "Hi"); err != nil {
		t.Fatalf("SaveContent() error = %v", err)
	}

	got, err := env.engine.GetExtraction(ext.ID)
	if err != nil {
		t.Fatalf("GetExtraction() error = %v", err)
	}
	if diff := cmp.Diff(ext, got); diff != "" {
		t.Errorf("extraction changed (-want +got):\n%s", diff)
	}

	after, _ := env.engine.GetTopic(parent.ID)
	if !after.UpdatedAt.After(parent.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v -> %v", parent.UpdatedAt, after.UpdatedAt)
	}

	highlights, err := env.engine.Highlights(parent.ID)
	if err != nil {
		t.Fatalf("Highlights() error = %v", err)
	}
	want := []topic.Highlight{{Extraction: *ext, Stale: true}}
	if diff := cmp.Diff(want, highlights); diff != "" {
		t.Errorf("Highlights() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenameTopic(t *testing.T) {
	env := newTestEnv(t)
	tp := env.create(t, "", "text")

	if err := env.engine.RenameTopic(tp.ID, "  New name "); err != nil {
		t.Fatalf("RenameTopic() error = %v", err)
	}
	got, _ := env.engine.GetTopic(tp.ID)
	if got.Title != "New name" {
		t.Errorf("Title = %q, want %q", got.Title, "New name")
	}

	if err := env.engine.RenameTopic(tp.ID, "   "); !errors.Is(err, topic.ErrInvalidTitle) {
		t.Errorf("RenameTopic(blank) error = %v, want ErrInvalidTitle", err)
	}
	if err := env.engine.RenameTopic("missing", "x"); !errors.Is(err, topic.ErrNotFound) {
		t.Errorf("RenameTopic(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTopic_Cascade(t *testing.T) {
	env := newTestEnv(t)
	root := env.create(t, "", "Hello world")
	_, child, err := env.engine.RecordExtraction(root.ID, 6, 11, "world")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}
	_, grandchild, err := env.engine.RecordExtraction(child.ID, 0, 3, "wor")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}
	env.create(t, grandchild.ID, "note")

	if err := env.engine.DeleteTopic(child.ID); err != nil {
		t.Fatalf("DeleteTopic() error = %v", err)
	}

	if diff := cmp.Diff([]string{root.ID + "@0"}, hierarchyIDs(t, env.engine)); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
	exts, err := env.idx.AllExtractions()
	if err != nil {
		t.Fatalf("AllExtractions() error = %v", err)
	}
	if len(exts) != 0 {
		t.Errorf("extractions after delete = %v, want none", exts)
	}
	if diff := cmp.Diff([]string{root.ContentRef}, env.blobList(t)); diff != "" {
		t.Errorf("blobs mismatch (-want +got):\n%s", diff)
	}

	report, err := env.engine.Check()
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !report.OK() {
		t.Errorf("Check() = %+v, want OK", report)
	}
}

func TestDeleteTopic_NotFound(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.DeleteTopic("missing"); !errors.Is(err, topic.ErrNotFound) {
		t.Errorf("DeleteTopic() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteExtraction_KeepsChild(t *testing.T) {
	env := newTestEnv(t)
	parent := env.create(t, "", "Hello world")
	ext, child, err := env.engine.RecordExtraction(parent.ID, 6, 11, "world")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}

	if err := env.engine.DeleteExtraction(ext.ID); err != nil {
		t.Fatalf("DeleteExtraction() error = %v", err)
	}
	if _, err := env.engine.GetTopic(child.ID); err != nil {
		t.Errorf("child gone after DeleteExtraction: %v", err)
	}
	if _, err := env.engine.GetExtraction(ext.ID); !errors.Is(err, topic.ErrNotFound) {
		t.Errorf("GetExtraction() error = %v, want ErrNotFound", err)
	}

	if err := env.engine.RestoreExtraction(*ext); err != nil {
		t.Fatalf("RestoreExtraction() error = %v", err)
	}
	got, err := env.engine.GetExtraction(ext.ID)
	if err != nil {
		t.Fatalf("GetExtraction() after restore error = %v", err)
	}
	if diff := cmp.Diff(ext, got); diff != "" {
		t.Errorf("restored extraction mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveTopic_Cyclic(t *testing.T) {
	env := newTestEnv(t)
	a := env.create(t, "", "a")
	b := env.create(t, a.ID, "b")
	c := env.create(t, b.ID, "c")

	for _, target := range []string{a.ID, b.ID, c.ID} {
		if _, err := env.engine.MoveTopic(a.ID, target, 0); !errors.Is(err, topic.ErrCyclicMove) {
			t.Errorf("MoveTopic(a under %s) error = %v, want ErrCyclicMove", target, err)
		}
	}
	if _, err := env.engine.MoveTopic(b.ID, "missing", 0); !errors.Is(err, topic.ErrInvalidParent) {
		t.Errorf("MoveTopic(missing parent) error = %v, want ErrInvalidParent", err)
	}

	want := []string{a.ID + "@0", b.ID + "@1", c.ID + "@2"}
	if diff := cmp.Diff(want, hierarchyIDs(t, env.engine)); diff != "" {
		t.Errorf("hierarchy changed (-want +got):\n%s", diff)
	}
}

func TestMoveTopic_Renumbers(t *testing.T) {
	env := newTestEnv(t)
	a := env.create(t, "", "a")
	b := env.create(t, "", "b")
	a1 := env.create(t, a.ID, "a1")
	a2 := env.create(t, a.ID, "a2")
	a3 := env.create(t, a.ID, "a3")
	b1 := env.create(t, b.ID, "b1")

	if _, err := env.engine.MoveTopic(a2.ID, b.ID, 0); err != nil {
		t.Fatalf("MoveTopic() error = %v", err)
	}

	want := []string{
		a.ID + "@0", a1.ID + "@1", a3.ID + "@1",
		b.ID + "@0", a2.ID + "@1", b1.ID + "@1",
	}
	if diff := cmp.Diff(want, hierarchyIDs(t, env.engine)); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}

	for id, wantOrder := range map[string]int{a1.ID: 0, a3.ID: 1, a2.ID: 0, b1.ID: 1} {
		got, _ := env.engine.GetTopic(id)
		if got.Order() != wantOrder {
			t.Errorf("%s order = %d, want %d", id, got.Order(), wantOrder)
		}
	}

	parent, pos, err := env.engine.Placement(a2.ID)
	if err != nil {
		t.Fatalf("Placement() error = %v", err)
	}
	if parent != b.ID || pos != 0 {
		t.Errorf("Placement() = %s, %d; want %s, 0", parent, pos, b.ID)
	}

	// Out of range appends; same parent reorders.
	if _, err := env.engine.MoveTopic(a1.ID, a.ID, 99); err != nil {
		t.Fatalf("MoveTopic() error = %v", err)
	}
	if _, pos, _ := env.engine.Placement(a1.ID); pos != 1 {
		t.Errorf("Placement(a1) position = %d, want 1", pos)
	}

	// Moving to root.
	if _, err := env.engine.MoveTopic(b1.ID, "", -1); err != nil {
		t.Fatalf("MoveTopic(root) error = %v", err)
	}
	if parent, pos, _ := env.engine.Placement(b1.ID); parent != "" || pos != 2 {
		t.Errorf("Placement(b1) = %q, %d; want root, 2", parent, pos)
	}
}

func TestMoveTopic_DetachesExtraction(t *testing.T) {
	env := newTestEnv(t)
	parent := env.create(t, "", "Hello world")
	other := env.create(t, "", "other")
	ext, child, err := env.engine.RecordExtraction(parent.ID, 6, 11, "world")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}

	detached, err := env.engine.MoveTopic(child.ID, other.ID, 0)
	if err != nil {
		t.Fatalf("MoveTopic() error = %v", err)
	}
	if diff := cmp.Diff(ext, detached); diff != "" {
		t.Errorf("detached mismatch (-want +got):\n%s", diff)
	}
	if exts, _ := env.engine.ExtractionsFor(parent.ID); len(exts) != 0 {
		t.Errorf("ExtractionsFor(parent) = %v, want none", exts)
	}

	if _, err := env.engine.MoveTopic(child.ID, parent.ID, 0); err != nil {
		t.Fatalf("MoveTopic(back) error = %v", err)
	}
	if err := env.engine.RestoreExtraction(*detached); err != nil {
		t.Fatalf("RestoreExtraction() error = %v", err)
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	root := env.create(t, "", "Hello world")
	_, child, err := env.engine.RecordExtraction(root.ID, 6, 11, "world")
	if err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}
	if _, _, err := env.engine.RecordExtraction(child.ID, 0, 3, "wor"); err != nil {
		t.Fatalf("RecordExtraction() error = %v", err)
	}

	before, _ := env.engine.Hierarchy()
	beforeExts, _ := env.idx.AllExtractions()
	beforeBlobs := env.blobList(t)

	snap, err := env.engine.Snapshot(child.ID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.RootID() != child.ID {
		t.Errorf("RootID() = %s, want %s", snap.RootID(), child.ID)
	}
	if len(snap.Extractions) != 2 {
		t.Errorf("snapshot has %d extractions, want 2", len(snap.Extractions))
	}

	if err := env.engine.DeleteTopic(child.ID); err != nil {
		t.Fatalf("DeleteTopic() error = %v", err)
	}
	if err := env.engine.Restore(snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	after, _ := env.engine.Hierarchy()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("hierarchy mismatch (-before +after):\n%s", diff)
	}
	afterExts, _ := env.idx.AllExtractions()
	if diff := cmp.Diff(beforeExts, afterExts); diff != "" {
		t.Errorf("extractions mismatch (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(beforeBlobs, env.blobList(t)); diff != "" {
		t.Errorf("blobs mismatch (-before +after):\n%s", diff)
	}
	text, _ := env.engine.GetContent(child.ID)
	if text != "world" {
		t.Errorf("restored content = %q, want world", text)
	}
}

func TestRestore_MissingParent(t *testing.T) {
	env := newTestEnv(t)
	root := env.create(t, "", "root")
	child := env.create(t, root.ID, "child")

	snap, err := env.engine.Snapshot(child.ID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if err := env.engine.DeleteTopic(root.ID); err != nil {
		t.Fatalf("DeleteTopic() error = %v", err)
	}

	if err := env.engine.Restore(snap); !errors.Is(err, topic.ErrInvalidParent) {
		t.Errorf("Restore() error = %v, want ErrInvalidParent", err)
	}
	if refs := env.blobList(t); len(refs) != 0 {
		t.Errorf("blobs = %v, want none", refs)
	}
}

func TestRestore_ExistingTopicKeepsContent(t *testing.T) {
	env := newTestEnv(t)
	root := env.create(t, "", "original text")

	snap, err := env.engine.Snapshot(root.ID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if err := env.engine.Restore(snap); !errors.Is(err, topic.ErrDuplicate) {
		t.Fatalf("Restore() over an existing topic error = %v, want ErrDuplicate", err)
	}

	text, err := env.engine.GetContent(root.ID)
	if err != nil || text != "original text" {
		t.Errorf("GetContent() = %q, %v; want original text", text, err)
	}
}

func TestCheck_OrphanAndMissing(t *testing.T) {
	env := newTestEnv(t)
	a := env.create(t, "", "a")

	if err := env.blobs.Put("stray", "left behind"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := env.blobs.Delete(a.ContentRef); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	report, err := env.engine.Check()
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.OK() {
		t.Error("Check().OK() = true, want false")
	}
	if diff := cmp.Diff([]string{"stray"}, report.OrphanBlobs); diff != "" {
		t.Errorf("OrphanBlobs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{a.ID}, report.MissingBlobs); diff != "" {
		t.Errorf("MissingBlobs mismatch (-want +got):\n%s", diff)
	}

	if _, err := env.engine.GetContent(a.ID); !errors.Is(err, topic.ErrNotFound) {
		t.Errorf("GetContent() error = %v, want ErrNotFound", err)
	}
}

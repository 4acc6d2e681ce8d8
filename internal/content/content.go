// Package content stores topic text as one UTF-8 file per content ref.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/iromo/iromo/internal/topic"
)

// FileExt is appended to every ref to form the blob filename.
const FileExt = ".txt"

// Store reads and writes blobs under a single directory. It has no knowledge
// of the hierarchy and provides no locking.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("open content store: directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, topic.Errorf(topic.ErrIO, "creating blob directory %s: %v", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the blob directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for ref.
func (s *Store) Path(ref string) string {
	return filepath.Join(s.dir, ref+FileExt)
}

// Put writes text under ref. The file is replaced atomically and synced before
// Put returns, so a failed write never leaves a partial blob behind.
func (s *Store) Put(ref, text string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.Path(ref), strings.NewReader(text)); err != nil {
		return topic.Errorf(topic.ErrIO, "writing blob %s: %v", ref, err)
	}
	return nil
}

// Get returns the text stored under ref.
func (s *Store) Get(ref string) (string, error) {
	if err := validateRef(ref); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return "", topic.Errorf(topic.ErrNotFound, "blob %s", ref)
		}
		return "", topic.Errorf(topic.ErrIO, "reading blob %s: %v", ref, err)
	}
	return string(data), nil
}

// Delete removes the blob for ref. A missing blob is not an error.
func (s *Store) Delete(ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if err := os.Remove(s.Path(ref)); err != nil && !os.IsNotExist(err) {
		return topic.Errorf(topic.ErrIO, "deleting blob %s: %v", ref, err)
	}
	return nil
}

// Exists reports whether a blob is stored under ref.
func (s *Store) Exists(ref string) bool {
	if validateRef(ref) != nil {
		return false
	}
	_, err := os.Stat(s.Path(ref))
	return err == nil
}

// List returns every stored ref in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, topic.Errorf(topic.ErrIO, "listing blobs: %v", err)
	}

	var refs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, FileExt) {
			continue
		}
		refs = append(refs, strings.TrimSuffix(name, FileExt))
	}
	sort.Strings(refs)
	return refs, nil
}

// validateRef rejects refs that would escape the blob directory.
func validateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("content ref is empty")
	}
	if ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return fmt.Errorf("invalid content ref %q", ref)
	}
	return nil
}

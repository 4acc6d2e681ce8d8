// Package collection creates, opens and closes collections: a directory
// holding a manifest, the index database and the content blobs.
package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/config"
	"github.com/iromo/iromo/internal/content"
	"github.com/iromo/iromo/internal/index"
	"github.com/iromo/iromo/internal/storage"
	"github.com/iromo/iromo/internal/undo"
)

const (
	// ManifestType marks a directory as a collection.
	ManifestType = "iromo_collection"
	// ManifestVersion is the layout version this build reads and writes.
	ManifestVersion = "1"
)

// ErrNotCollection is returned when a directory has no valid manifest.
var ErrNotCollection = errors.New("not an iromo collection")

// ErrExists is returned by Create when the target already holds collection files.
var ErrExists = errors.New("collection already exists")

// Manifest is the content of manifest.json. Schema names the latest
// migration applied to the index and is refreshed on every open.
type Manifest struct {
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	Schema    string    `json:"schema,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures opening a collection.
type Options struct {
	Logger      *zap.Logger
	TitleLength int

	// Clock and NewID are passed to the storage engine; nil uses defaults.
	Clock func() time.Time
	NewID func() string
}

// Collection is an open collection: its stores, engine and undo history.
type Collection struct {
	Root       string
	Manifest   Manifest
	Engine     *storage.Engine
	History    *undo.History
	Migrations []string // applied while opening

	idx *index.DB
	log *zap.Logger
}

// Create initializes a collection at root and opens it. It refuses to touch
// a directory that already holds a manifest, index or blob directory.
func Create(root string, opts Options) (*Collection, error) {
	for _, p := range []string{config.ManifestPath(root), config.IndexPath(root), config.BlobsPath(root)} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, p)
		}
	}

	if err := os.MkdirAll(config.BlobsPath(root), 0755); err != nil {
		return nil, fmt.Errorf("creating collection directories: %w", err)
	}

	m := Manifest{Type: ManifestType, Version: ManifestVersion, CreatedAt: time.Now().UTC()}
	if err := writeManifest(root, &m); err != nil {
		return nil, err
	}

	db, err := index.Open(config.IndexPath(root))
	if err != nil {
		return nil, err
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("closing new database: %w", err)
	}

	return Open(root, opts)
}

// Open validates the manifest at root, opens both stores and applies any
// pending migrations.
func Open(root string, opts Options) (*Collection, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m, err := ReadManifest(root)
	if err != nil {
		return nil, err
	}

	blobs, err := content.Open(config.BlobsPath(root))
	if err != nil {
		return nil, err
	}

	db, err := index.Open(config.IndexPath(root))
	if err != nil {
		return nil, err
	}

	migrations, err := index.Migrations()
	if err != nil {
		db.Close()
		return nil, err
	}
	applied, err := db.ApplyMigrations(migrations, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	schema, err := db.SchemaVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	if schema != m.Schema {
		m.Schema = schema
		if err := writeManifest(root, m); err != nil {
			log.Warn("failed to record schema version", zap.String("schema", schema), zap.Error(err))
		}
	}

	engine := storage.New(db, blobs, storage.Options{
		Logger:      log,
		Clock:       opts.Clock,
		NewID:       opts.NewID,
		TitleLength: opts.TitleLength,
	})

	log.Info("opened collection", zap.String("root", root), zap.Strings("migrations", applied))
	return &Collection{
		Root:       root,
		Manifest:   *m,
		Engine:     engine,
		History:    undo.NewHistory(log),
		Migrations: applied,
		idx:        db,
		log:        log,
	}, nil
}

// ReadManifest loads and validates manifest.json at root.
func ReadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(config.ManifestPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrNotCollection, root, config.ManifestFile)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %v", ErrNotCollection, err)
	}
	if m.Type != ManifestType {
		return nil, fmt.Errorf("%w: manifest type %q", ErrNotCollection, m.Type)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %q", ErrNotCollection, m.Version)
	}
	return &m, nil
}

func writeManifest(root string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := atomic.WriteFile(config.ManifestPath(root), bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Run executes cmd through the collection's history.
func (c *Collection) Run(cmd undo.Command) error {
	return c.History.Run(cmd)
}

// Close clears the undo history and closes the index.
func (c *Collection) Close() error {
	c.History.Clear()
	c.log.Info("closed collection", zap.String("root", c.Root))
	return c.idx.Close()
}

// Find walks up from start to the nearest collection root.
func Find(start string) (string, error) {
	return config.FindCollection(start)
}

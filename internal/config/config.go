// Package config holds collection layout paths and the user's global
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	ManifestFile = "manifest.json"
	IndexFile    = "index.db"
	BlobsDir     = "blobs"
)

// ManifestPath returns the path to manifest.json from a collection root.
func ManifestPath(root string) string {
	return filepath.Join(root, ManifestFile)
}

// IndexPath returns the path to the index database from a collection root.
func IndexPath(root string) string {
	return filepath.Join(root, IndexFile)
}

// BlobsPath returns the content blob directory from a collection root.
func BlobsPath(root string) string {
	return filepath.Join(root, BlobsDir)
}

// IsCollection checks if the given path holds a collection manifest.
func IsCollection(root string) bool {
	info, err := os.Stat(ManifestPath(root))
	return err == nil && !info.IsDir()
}

// FindCollection walks up from the given path to find a collection.
// Returns the collection root path or an error if not found.
func FindCollection(start string) (string, error) {
	abs, err := filepath.Abs(ExpandPath(start))
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsCollection(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in an iromo collection (no %s found)", ManifestFile)
		}
		abs = parent
	}
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go-engsite/pkg/fsutils"
)

// JSONStore implements the DataStore interface using JSON files.
// Each key is stored as <BasePath>/<key>.json.
type JSONStore struct {
	// BasePath is the directory where collection files (*.json) are stored.
	BasePath string

	mu sync.Mutex // serializes writes per store
}

// NewJSONStore creates a new JSONStore instance.
// It ensures the base storage directory exists.
func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := fsutils.CreateDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", basePath, err)
	}
	return &JSONStore{BasePath: basePath}, nil
}

// GetBasePath returns the base path of the JSON store.
func (js *JSONStore) GetBasePath() string {
	return js.BasePath
}

func (js *JSONStore) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(js.BasePath, key+".json"), nil
}

// Load reads the blob stored under key.
func (js *JSONStore) Load(key string) ([]byte, error) {
	filePath, err := js.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("collection %s not found: %w", key, err)
		}
		return nil, fmt.Errorf("failed to read collection file %s: %w", filePath, err)
	}
	return data, nil
}

// Save replaces the blob atomically, so readers never observe a
// half-written file.
func (js *JSONStore) Save(key string, data []byte) error {
	filePath, err := js.path(key)
	if err != nil {
		return err
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	if err := fsutils.WriteToFile(filePath, data); err != nil {
		return fmt.Errorf("failed to save collection %s: %w", key, err)
	}
	return nil
}

// Remove deletes the file for key. Missing files are ignored (idempotent delete).
func (js *JSONStore) Remove(key string) error {
	filePath, err := js.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete collection file %s: %w", filePath, err)
	}
	return nil
}

// Keys scans the BasePath directory for *.json files and extracts keys.
func (js *JSONStore) Keys() ([]string, error) {
	files, err := os.ReadDir(js.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read storage directory %s: %w", js.BasePath, err)
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}

// Stamp returns modification time and size of key's file.
func (js *JSONStore) Stamp(key string) (Stamp, error) {
	filePath, err := js.path(key)
	if err != nil {
		return Stamp{}, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, nil
}

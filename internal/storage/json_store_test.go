package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestNewJSONStore(t *testing.T) {
	tempDir := t.TempDir()
	dataPath := filepath.Join(tempDir, ".test_data")

	store, err := NewJSONStore(dataPath)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	if store == nil {
		t.Fatal("NewJSONStore() returned nil store")
	}

	// Check if the base directory was created
	if _, err := os.Stat(dataPath); os.IsNotExist(err) {
		t.Errorf("NewJSONStore() did not create the base directory: %s", dataPath)
	}
	if store.GetBasePath() != dataPath {
		t.Errorf("GetBasePath() returned %q, want %q", store.GetBasePath(), dataPath)
	}
}

func TestSaveLoad(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}

	blob := []byte(`[{"id":"a"}]`)
	if err := store.Save("buttons", blob); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	expectedFilePath := filepath.Join(store.GetBasePath(), "buttons.json")
	if _, err := os.Stat(expectedFilePath); os.IsNotExist(err) {
		t.Fatalf("Save() did not create the expected file: %s", expectedFilePath)
	}
	// No temp file should be left behind after the rename.
	if keys, _ := store.Keys(); len(keys) != 1 {
		t.Errorf("Keys() = %v after one Save, want just buttons", keys)
	}

	loaded, err := store.Load("buttons")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !reflect.DeepEqual(blob, loaded) {
		t.Errorf("Load() = %s, want %s", loaded, blob)
	}
}

func TestLoad_NotFound(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}

	_, err = store.Load("does_not_exist")
	if err == nil {
		t.Fatal("Load() succeeded for missing key, expected error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() returned error %q, expected an error wrapping os.ErrNotExist", err)
	}
}

func TestInvalidKeys(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	for _, key := range []string{"", "../escape", ".hidden", `a\b`} {
		if err := store.Save(key, []byte("[]")); err == nil {
			t.Errorf("Save(%q) succeeded, expected error", key)
		}
	}
}

func TestRemoveAndKeys(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}

	for _, key := range []string{"events", "team_members", "testimonials"} {
		if err := store.Save(key, []byte("[]")); err != nil {
			t.Fatalf("Setup failed: Save(%s) failed: %v", key, err)
		}
	}
	if err := store.Remove("team_members"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	// Removing twice is fine.
	if err := store.Remove("team_members"); err != nil {
		t.Fatalf("second Remove() failed: %v", err)
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	sort.Strings(keys)
	want := []string{"events", "testimonials"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
}

func TestStampChangesOnWrite(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	if err := store.Save("events", []byte("[]")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	first, err := store.Stamp("events")
	if err != nil {
		t.Fatalf("Stamp() failed: %v", err)
	}
	if err := store.Save("events", []byte(`[{"id":"e1"}]`)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	second, err := store.Stamp("events")
	if err != nil {
		t.Fatalf("Stamp() failed: %v", err)
	}
	if first == second {
		t.Errorf("Stamp() did not change after a rewrite: %+v", first)
	}
}

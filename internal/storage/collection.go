package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"go-engsite/internal/bus"
	"go-engsite/internal/model"
)

// Collection is a typed view of one key in a DataStore. It keeps the decoded
// list and an id index in memory and reloads only when the blob's Stamp
// changes, so per-record operations do not re-parse the file. Writes still
// persist the whole list; across processes the last writer wins.
type Collection[T model.Entity] struct {
	store    DataStore
	key      string
	defaults []T
	bus      *bus.Bus
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool
	stamp  Stamp
	items  []T
	index  map[string]int
}

// NewCollection binds key in store to T. defaults are written the first
// time the key is read and found absent or unreadable. b may be nil.
func NewCollection[T model.Entity](store DataStore, key string, defaults []T, b *bus.Bus, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collection[T]{
		store:    store,
		key:      key,
		defaults: defaults,
		bus:      b,
		logger:   logger.With("collection", key),
	}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string { return c.key }

// Store returns the DataStore backing the collection.
func (c *Collection[T]) Store() DataStore { return c.store }

// Get returns the whole list, seeding defaults on first read.
func (c *Collection[T]) Get() ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(); err != nil {
		return nil, err
	}
	return slices.Clone(c.items), nil
}

// Find returns the record with id or ErrNotFound.
func (c *Collection[T]) Find(id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.refreshLocked(); err != nil {
		return zero, err
	}
	i, ok := c.index[id]
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
	}
	return c.items[i], nil
}

// Save overwrites the collection with list.
func (c *Collection[T]) Save(list []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeLocked(slices.Clone(list)); err != nil {
		return err
	}
	c.publish(bus.OpSave, "")
	return nil
}

// Upsert replaces the record with the same id or appends it.
func (c *Collection[T]) Upsert(rec T) error {
	id := rec.EntityID()
	if id == "" {
		return fmt.Errorf("%s: record id cannot be empty", c.key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(); err != nil {
		return err
	}

	next := slices.Clone(c.items)
	if i, ok := c.index[id]; ok {
		next[i] = rec
	} else {
		next = append(next, rec)
	}
	if err := c.writeLocked(next); err != nil {
		return err
	}
	c.publish(bus.OpUpsert, id)
	return nil
}

// Delete removes the record with id. Unknown ids return ErrNotFound and
// leave the stored list untouched.
func (c *Collection[T]) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(); err != nil {
		return err
	}

	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
	}
	next := slices.Delete(slices.Clone(c.items), i, i+1)
	if err := c.writeLocked(next); err != nil {
		return err
	}
	c.publish(bus.OpDelete, id)
	return nil
}

// refreshLocked reloads from the store when the blob changed since the last
// load. Missing or corrupt blobs are replaced by the defaults.
func (c *Collection[T]) refreshLocked() error {
	st, statErr := c.store.Stamp(c.key)
	if statErr == nil && c.loaded && st == c.stamp {
		return nil
	}

	data, err := c.store.Load(c.key)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", c.key, err)
		}
		return c.seedLocked("absent")
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		c.logger.Warn("Stored collection is unreadable, reseeding defaults", "error", err)
		return c.seedLocked("unparsable")
	}
	c.setLocked(items, st)
	return nil
}

func (c *Collection[T]) seedLocked(reason string) error {
	c.logger.Info("Seeding collection with defaults", "reason", reason, "count", len(c.defaults))
	if err := c.writeLocked(slices.Clone(c.defaults)); err != nil {
		return err
	}
	c.publish(bus.OpSeed, "")
	return nil
}

func (c *Collection[T]) writeLocked(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", c.key, err)
	}
	if err := c.store.Save(c.key, data); err != nil {
		return err
	}
	st, err := c.store.Stamp(c.key)
	if err != nil {
		// A zero stamp forces a reload on the next access.
		st = Stamp{}
	}
	c.setLocked(items, st)
	return nil
}

func (c *Collection[T]) setLocked(items []T, st Stamp) {
	c.items = items
	c.index = make(map[string]int, len(items))
	for i, it := range items {
		c.index[it.EntityID()] = i
	}
	c.stamp = st
	c.loaded = st != (Stamp{})
}

func (c *Collection[T]) publish(op bus.Op, id string) {
	if c.bus != nil {
		c.bus.Publish(bus.Event{Key: c.key, Op: op, ID: id})
	}
}

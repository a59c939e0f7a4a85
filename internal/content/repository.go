// Package content is the data access layer. Every entity goes through a
// two-tier Repository: the remote backend is authoritative, the local store
// is a write-through mirror, and embedded samples are the last resort so
// public pages never render empty because a backend is down.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"go-engsite/internal/model"
	"go-engsite/internal/remote"
	"go-engsite/internal/storage"
)

// ErrNotFound is returned when no tier holds the requested record.
var ErrNotFound = storage.ErrNotFound

// Source reports which tier served a read.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceSamples Source = "samples"
)

// RemoteTable is the slice of remote.Table the repository uses.
type RemoteTable interface {
	Select(ctx context.Context, opts ...remote.QueryOption) ([][]byte, error)
	Upsert(ctx context.Context, id string, doc []byte) error
	Delete(ctx context.Context, id string) error
}

// RepositoryOptions tune one repository.
type RepositoryOptions struct {
	// RemoteOrder is the document field the backend sorts by ("" = insertion order).
	RemoteOrder string
	// Timeout bounds each remote call; zero means the caller's context only.
	Timeout time.Duration
}

// PendingSuffix is appended to a collection key to name its list of
// records whose backend write failed.
const PendingSuffix = "_pending"

// pendingWrite marks a local record the backend has not accepted yet.
type pendingWrite struct {
	ID string `json:"id"`
}

func (p pendingWrite) EntityID() string { return p.ID }

// Repository reads and writes one entity collection across both tiers.
// Records whose remote write failed are tracked in a pending list stored
// next to the collection. Mirroring a remote read keeps them, and the next
// successful write retries them.
type Repository[T model.Entity] struct {
	local   *storage.Collection[T]
	pending *storage.Collection[pendingWrite]
	remote  RemoteTable
	samples []T
	opts    RepositoryOptions
	logger  *slog.Logger
}

// NewRepository wires the tiers. rt may be nil for local-only operation.
func NewRepository[T model.Entity](local *storage.Collection[T], rt RemoteTable, samples []T, opts RepositoryOptions, logger *slog.Logger) *Repository[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository[T]{
		local:   local,
		pending: storage.NewCollection[pendingWrite](local.Store(), local.Key()+PendingSuffix, nil, nil, logger),
		remote:  rt,
		samples: samples,
		opts:    opts,
		logger:  logger.With("collection", local.Key()),
	}
}

// Key returns the collection key.
func (r *Repository[T]) Key() string { return r.local.Key() }

// List returns the collection from the first tier that has data.
func (r *Repository[T]) List(ctx context.Context) []T {
	items, _ := r.ListWithSource(ctx)
	return items
}

// ListWithSource is List plus the tier that answered. A non-empty remote
// result is mirrored into the local store (remote wins).
func (r *Repository[T]) ListWithSource(ctx context.Context) ([]T, Source) {
	if r.remote != nil {
		items, err := r.selectRemote(ctx, r.orderOpts()...)
		switch {
		case err != nil:
			r.logger.Warn("Remote read failed, falling back to local store", "error", err)
		case len(items) == 0:
			r.logger.Debug("Remote returned no rows, falling back to local store")
		default:
			return r.mirror(items), SourceRemote
		}
	}

	items, err := r.local.Get()
	if err != nil {
		r.logger.Error("Local read failed", "error", err)
	} else if len(items) > 0 {
		return items, SourceLocal
	}
	return slices.Clone(r.samples), SourceSamples
}

// Get returns one record by id, trying remote, local, then samples. A
// pending record is served from local.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if r.remote != nil && !r.pendingIDs()[id] {
		items, err := r.selectRemote(ctx, remote.Eq("id", id), remote.Limit(1))
		if err != nil {
			r.logger.Warn("Remote lookup failed, falling back to local store", "id", id, "error", err)
		} else if len(items) == 1 {
			return items[0], nil
		}
	}
	rec, err := r.local.Find(id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		r.logger.Error("Local lookup failed", "id", id, "error", err)
	}
	for _, s := range r.samples {
		if s.EntityID() == id {
			return s, nil
		}
	}
	return zero, fmt.Errorf("%s %s: %w", r.Key(), id, ErrNotFound)
}

// Put writes rec to the local mirror and then to the backend. Backend
// failures are logged and not retried; the local write decides the result.
func (r *Repository[T]) Put(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := r.local.Upsert(rec); err != nil {
		return zero, fmt.Errorf("saving %s %s: %w", r.Key(), rec.EntityID(), err)
	}
	if r.remote != nil {
		if err := r.upsertRemote(ctx, rec); err != nil {
			r.logger.Warn("Remote write failed, local copy kept", "id", rec.EntityID(), "error", err)
			r.markPending(rec.EntityID())
		} else {
			r.clearPending(rec.EntityID())
			r.retryPending(ctx)
		}
	}
	return rec, nil
}

// Delete removes id from both tiers. It reports ErrNotFound only when
// neither tier held the record.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	localErr := r.local.Delete(id)
	if localErr != nil && !errors.Is(localErr, storage.ErrNotFound) {
		return fmt.Errorf("deleting %s %s: %w", r.Key(), id, localErr)
	}

	remoteDeleted := false
	if r.remote != nil {
		r.clearPending(id)
		ctx, cancel := r.callContext(ctx)
		err := r.remote.Delete(ctx, id)
		cancel()
		switch {
		case err == nil:
			remoteDeleted = true
		case errors.Is(err, remote.ErrNotFound):
		default:
			r.logger.Warn("Remote delete failed", "id", id, "error", err)
		}
	}

	if localErr != nil && !remoteDeleted {
		return fmt.Errorf("%s %s: %w", r.Key(), id, ErrNotFound)
	}
	return nil
}

// ReplaceAll overwrites the local collection and upserts every record remotely.
func (r *Repository[T]) ReplaceAll(ctx context.Context, items []T) error {
	if err := r.local.Save(items); err != nil {
		return fmt.Errorf("replacing %s: %w", r.Key(), err)
	}
	if r.remote == nil {
		return nil
	}
	for _, it := range items {
		if err := r.upsertRemote(ctx, it); err != nil {
			r.logger.Warn("Remote write failed during replace", "id", it.EntityID(), "error", err)
			r.markPending(it.EntityID())
		} else {
			r.clearPending(it.EntityID())
		}
	}
	return nil
}

// Local exposes the mirror (migrations read it directly).
func (r *Repository[T]) Local() *storage.Collection[T] { return r.local }

func (r *Repository[T]) orderOpts() []remote.QueryOption {
	if r.opts.RemoteOrder == "" {
		return nil
	}
	return []remote.QueryOption{remote.OrderBy(r.opts.RemoteOrder, false)}
}

func (r *Repository[T]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout > 0 {
		return context.WithTimeout(ctx, r.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Repository[T]) selectRemote(ctx context.Context, opts ...remote.QueryOption) ([]T, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()

	docs, err := r.remote.Select(ctx, opts...)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var it T
		if err := json.Unmarshal(doc, &it); err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", r.Key(), err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *Repository[T]) upsertRemote(ctx context.Context, rec T) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", r.Key(), rec.EntityID(), err)
	}
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.remote.Upsert(ctx, rec.EntityID(), doc)
}

// mirror copies a remote result into the local store when it differs, so
// an unchanged poll does not rewrite the file or wake subscribers. Pending
// local records are overlaid first, and the merged list is returned.
func (r *Repository[T]) mirror(items []T) []T {
	current, err := r.local.Get()
	if err != nil {
		r.logger.Warn("Could not read local store before mirroring", "error", err)
	}
	merged := r.withPending(items, current)
	if err == nil && sameJSON(current, merged) {
		return merged
	}
	if err := r.local.Save(merged); err != nil {
		r.logger.Warn("Could not mirror remote rows locally", "error", err)
	}
	return merged
}

// withPending overlays pending local records on a remote result: a pending
// record replaces the remote row with the same id or is appended when the
// remote lacks it. Pending ids no longer present locally are dropped.
func (r *Repository[T]) withPending(remoteItems, local []T) []T {
	pending := r.pendingIDs()
	if len(pending) == 0 {
		return remoteItems
	}
	localByID := make(map[string]T, len(pending))
	for _, it := range local {
		if pending[it.EntityID()] {
			localByID[it.EntityID()] = it
		}
	}
	for id := range pending {
		if _, ok := localByID[id]; !ok {
			r.clearPending(id)
		}
	}

	merged := make([]T, 0, len(remoteItems)+len(localByID))
	seen := make(map[string]bool, len(localByID))
	for _, it := range remoteItems {
		if rec, ok := localByID[it.EntityID()]; ok {
			merged = append(merged, rec)
			seen[it.EntityID()] = true
			continue
		}
		merged = append(merged, it)
	}
	for _, it := range local {
		if _, ok := localByID[it.EntityID()]; ok && !seen[it.EntityID()] {
			merged = append(merged, it)
		}
	}
	return merged
}

func (r *Repository[T]) pendingIDs() map[string]bool {
	list, err := r.pending.Get()
	if err != nil {
		r.logger.Warn("Could not read pending writes", "error", err)
		return nil
	}
	ids := make(map[string]bool, len(list))
	for _, p := range list {
		ids[p.ID] = true
	}
	return ids
}

func (r *Repository[T]) markPending(id string) {
	if err := r.pending.Upsert(pendingWrite{ID: id}); err != nil {
		r.logger.Error("Could not record pending write", "id", id, "error", err)
	}
}

func (r *Repository[T]) clearPending(id string) {
	if err := r.pending.Delete(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("Could not clear pending write", "id", id, "error", err)
	}
}

// retryPending pushes every pending record to the backend once more.
func (r *Repository[T]) retryPending(ctx context.Context) {
	for id := range r.pendingIDs() {
		rec, err := r.local.Find(id)
		if err != nil {
			r.clearPending(id)
			continue
		}
		if err := r.upsertRemote(ctx, rec); err != nil {
			r.logger.Warn("Pending remote write still failing", "id", id, "error", err)
			return
		}
		r.clearPending(id)
		r.logger.Info("Pending remote write delivered", "id", id)
	}
}

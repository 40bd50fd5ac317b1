// Package queue owns the in-memory item registry and drives items through
// the download and processing slots.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/logger"
)

// Deps are the collaborators of a Registry. History and Playlists are
// optional.
type Deps struct {
	Store     Store
	Output    Output
	Notifier  Notifier
	Steps     Steps
	WorkDirs  WorkDirs
	History   History
	Playlists PlaylistCleaner
	Logger    *logger.Logger
}

type Config struct {
	// NoDownload stores new items as no_download and never schedules them.
	NoDownload bool
	// KillGrace is how long a process may take to honour an interrupt.
	KillGrace time.Duration
}

// Registry is the single owner of queue items. Every mutation, together
// with its persistence and the scheduling pass that follows, happens under
// mu.
type Registry struct {
	mu     sync.Mutex
	order  []string
	items  map[string]*domain.Item
	paused bool
	closed bool

	// ctx is handed to steps; bg is used for persistence from completions.
	ctx context.Context
	bg  context.Context

	cfg       Config
	store     Store
	output    Output
	notifier  Notifier
	steps     Steps
	workdirs  WorkDirs
	history   History
	playlists PlaylistCleaner
	log       *logger.Logger

	wg sync.WaitGroup
}

func New(deps Deps, cfg Config) *Registry {
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = constants.DefaultKillGrace
	}
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		items:     make(map[string]*domain.Item),
		ctx:       context.Background(),
		bg:        context.Background(),
		cfg:       cfg,
		store:     deps.Store,
		output:    deps.Output,
		notifier:  deps.Notifier,
		steps:     deps.Steps,
		workdirs:  deps.WorkDirs,
		history:   deps.History,
		playlists: deps.Playlists,
		log:       log.WithComponent("queue"),
	}
}

// Load restores persisted items once at startup. Items caught mid-download
// or mid-processing by a crash go back to their waiting state.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx = ctx
	r.bg = context.WithoutCancel(ctx)

	paused, err := r.store.Paused(ctx)
	if err != nil {
		return fmt.Errorf("load pause state: %w", err)
	}
	r.paused = paused

	items, err := r.store.LoadItems(ctx)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	var errs []error
	for i := range items {
		it := items[i]
		it.Process = nil
		if it.Status.Active() {
			demoted := it.Status.Queued()
			r.log.Info("Recovering interrupted item", "item_id", it.ID, "from", it.Status, "to", demoted)
			it.Status = demoted
			if err := r.store.UpsertItem(ctx, it); err != nil {
				errs = append(errs, fmt.Errorf("persist recovered item %s: %w", it.ID, err))
			}
		}
		it.SyncFlags()
		if _, dup := r.items[it.ID]; !dup {
			r.order = append(r.order, it.ID)
		}
		r.items[it.ID] = &it
		r.output.Create(it.ID)
	}

	r.log.Info("Queue loaded", "items", len(r.order), "paused", r.paused)
	r.publishListLocked()
	if !r.paused {
		r.scheduleLocked()
	}
	return errors.Join(errs...)
}

// AddItem validates and enqueues item. An existing item with the same id is
// removed first.
func (r *Registry) AddItem(ctx context.Context, item domain.Item) error {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; ok {
		r.log.Info("Replacing existing item", "item_id", item.ID)
		if err := r.removeLocked(ctx, item.ID); err != nil {
			r.log.Warn("Failed to fully remove replaced item", "item_id", item.ID, "error", err)
		}
	}

	if r.cfg.NoDownload {
		item.Status = domain.StatusNoDownload
	} else {
		item.Status = domain.StatusQueueDownload
	}
	item.RetryCount = 0
	item.PlaylistID = ""
	item.Process = nil
	item.CreatedAt = time.Now()
	item.SyncFlags()

	if err := r.store.UpsertItem(ctx, item); err != nil {
		r.publishListLocked()
		r.scheduleLocked()
		return fmt.Errorf("persist item %s: %w", item.ID, err)
	}

	r.order = append(r.order, item.ID)
	r.items[item.ID] = &item
	r.output.Create(item.ID)

	r.log.WithItem(item.ID, string(item.Type)).Info("Item added", "status", item.Status, "source", item.Source)
	r.publishListLocked()
	r.scheduleLocked()
	return nil
}

// RemoveItem terminates and forgets id. A missing id is only logged.
func (r *Registry) RemoveItem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		r.log.Warn("Remove requested for unknown item", "item_id", id)
		return nil
	}

	err := r.removeLocked(ctx, id)
	r.scheduleLocked()
	r.publishListLocked()
	return err
}

// RemoveAllItems removes every item, continuing past individual failures.
func (r *Registry) RemoveAllItems(ctx context.Context) error {
	return r.removeWhere(ctx, func(*domain.Item) bool { return true })
}

// RemoveFinishedItems removes every item whose status is finished.
func (r *Registry) RemoveFinishedItems(ctx context.Context) error {
	return r.removeWhere(ctx, func(it *domain.Item) bool {
		return it.Status == domain.StatusFinished
	})
}

func (r *Registry) removeWhere(ctx context.Context, match func(*domain.Item) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := append([]string(nil), r.order...)
	var errs []error
	for _, id := range ids {
		it, ok := r.items[id]
		if !ok || !match(it) {
			continue
		}
		if err := r.removeLocked(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	r.scheduleLocked()
	r.publishListLocked()
	return errors.Join(errs...)
}

// removeLocked detaches and terminates the item's process, then drops it
// from memory, the store, the output log, its playlist and its work dir.
func (r *Registry) removeLocked(ctx context.Context, id string) error {
	it, ok := r.items[id]
	if !ok {
		return nil
	}
	log := r.log.WithItem(it.ID, string(it.Type))

	if proc := it.Process; proc != nil {
		it.Process = nil
		log.Info("Terminating running step", "status", it.Status)
		terminate(proc, r.cfg.KillGrace, log)
	}

	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.output.Delete(id)

	var errs []error
	if err := r.store.DeleteItem(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete item %s: %w", id, err))
	}
	r.deletePlaylistLocked(it)
	r.cleanWorkDir(it)

	log.Info("Item removed")
	return errors.Join(errs...)
}

// UpdateItem writes the mutable fields of item onto the registered item.
// Unknown ids are ignored.
func (r *Registry) UpdateItem(ctx context.Context, item domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[item.ID]
	if !ok {
		r.log.Warn("Update requested for unknown item", "item_id", item.ID)
		return nil
	}
	if item.Status != "" && !item.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidItem, item.Status)
	}

	if item.Status != "" {
		it.Status = item.Status
	}
	if item.URL != "" {
		it.URL = item.URL
	}
	if item.Quality != "" {
		it.Quality = item.Quality
	}
	if item.Artist != "" {
		it.Artist = item.Artist
	}
	if item.Title != "" {
		it.Title = item.Title
	}
	if item.RetryCount > it.RetryCount && item.RetryCount <= constants.MaxRetries {
		it.RetryCount = item.RetryCount
	}
	if item.PlaylistID != "" {
		it.PlaylistID = item.PlaylistID
	}

	err := r.updateLocked(ctx, it)
	if it.Status.Terminal() {
		r.scheduleLocked()
	}
	return err
}

// updateLocked persists it, records history for terminal items and
// publishes the list and the item's output.
func (r *Registry) updateLocked(ctx context.Context, it *domain.Item) error {
	it.SyncFlags()

	var err error
	if perr := r.store.UpsertItem(ctx, *it); perr != nil {
		err = fmt.Errorf("persist item %s: %w", it.ID, perr)
		r.log.Error("Failed to persist item", "item_id", it.ID, "error", perr)
	}

	if it.Status.Terminal() && it.Status != domain.StatusNoDownload && r.history != nil {
		if herr := r.history.Record(ctx, it.ID); herr != nil {
			r.log.Warn("Failed to record history", "item_id", it.ID, "error", herr)
		}
	}

	r.publishListLocked()
	if output := r.output.Get(it.ID); output != "" {
		r.notifier.PublishOutput(it.ID, output)
	}
	return err
}

// RetryItem puts an errored item back at the start of the pipeline.
func (r *Registry) RetryItem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if it.Status != domain.StatusError {
		return fmt.Errorf("%w: %s is %s", ErrNotRetryable, id, it.Status)
	}

	it.Status = domain.StatusQueueDownload
	it.RetryCount = 0
	it.PlaylistID = ""
	r.output.Reset(id)

	err := r.updateLocked(ctx, it)
	r.scheduleLocked()
	return err
}

// GetItem returns a copy of the item without its process handle.
func (r *Registry) GetItem(id string) (domain.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return domain.Item{}, false
	}
	return it.Snapshot(), true
}

// Items returns copies of all items in insertion order.
func (r *Registry) Items() []domain.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Output returns the retained output of id.
func (r *Registry) Output(id string) (string, bool) {
	r.mu.Lock()
	_, ok := r.items[id]
	r.mu.Unlock()
	if !ok {
		return "", false
	}
	return r.output.Get(id), true
}

// Running reports whether id currently owns a process.
func (r *Registry) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	return ok && it.Process != nil
}

// Close stops scheduling and terminates running steps without touching
// their persisted status, so the next Load recovers them.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	var procs []domain.Process
	for _, id := range r.order {
		it := r.items[id]
		if it.Process != nil {
			procs = append(procs, it.Process)
			it.Process = nil
		}
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p domain.Process) {
			defer wg.Done()
			terminate(p, r.cfg.KillGrace, r.log)
		}(p)
	}
	wg.Wait()
	r.wg.Wait()
}

func (r *Registry) snapshotLocked() []domain.Item {
	out := make([]domain.Item, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Snapshot())
	}
	return out
}

func (r *Registry) publishListLocked() {
	r.notifier.PublishList(r.snapshotLocked())
}

// deletePlaylistLocked detaches the item's ephemeral playlist and deletes
// it in the background, bounded by PlaylistDeleteTimeout. The cleaner talks
// to an external service and must never run under mu.
func (r *Registry) deletePlaylistLocked(it *domain.Item) {
	if it.PlaylistID == "" || r.playlists == nil {
		return
	}
	id, playlistID, bg := it.ID, it.PlaylistID, r.bg
	it.PlaylistID = ""

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(bg, constants.PlaylistDeleteTimeout)
		defer cancel()
		if err := r.playlists.DeletePlaylist(ctx, playlistID); err != nil {
			r.log.Warn("Failed to delete playlist", "item_id", id, "playlist_id", playlistID, "error", err)
		}
	}()
}

func (r *Registry) cleanWorkDir(it *domain.Item) {
	if r.workdirs == nil {
		return
	}
	if err := r.workdirs.Clean(it.ID); err != nil {
		r.log.Warn("Failed to clean work dir", "item_id", it.ID, "error", err)
	}
}

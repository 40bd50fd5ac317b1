package queue

import (
	"context"
	"fmt"

	"github.com/cesargomez89/tidarr/internal/domain"
)

// Pause stops admitting items and aborts the active download, which goes
// back to queue_download with a clean work dir and empty output. A running
// processing step is left to finish.
func (r *Registry) Pause(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.paused {
		if err := r.store.SetPaused(ctx, true); err != nil {
			return fmt.Errorf("persist pause: %w", err)
		}
		r.paused = true
		r.log.Info("Queue paused")
	}

	it := r.findLocked(domain.StatusDownload)
	if it == nil {
		r.publishListLocked()
		return nil
	}

	log := r.log.WithItem(it.ID, string(it.Type))
	if proc := it.Process; proc != nil {
		it.Process = nil
		log.Info("Stopping download for pause")
		terminate(proc, r.cfg.KillGrace, log)
	}
	r.deletePlaylistLocked(it)
	r.cleanWorkDir(it)
	r.output.Reset(it.ID)

	it.Status = domain.StatusQueueDownload
	return r.updateLocked(ctx, it)
}

// Resume clears the pause flag and runs a scheduling pass immediately.
func (r *Registry) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		if err := r.store.SetPaused(ctx, false); err != nil {
			return fmt.Errorf("persist resume: %w", err)
		}
		r.paused = false
		r.log.Info("Queue resumed")
	}

	r.scheduleLocked()
	r.publishListLocked()
	return nil
}

// Paused reports whether the queue is paused.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

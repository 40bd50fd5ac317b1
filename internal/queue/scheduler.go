package queue

import (
	"errors"
	"fmt"

	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/domain"
)

var errNoStep = errors.New("no step configured")

// scheduleLocked fills the free download and processing slots with the
// oldest waiting items. It is idempotent and safe to call after any change.
func (r *Registry) scheduleLocked() {
	if r.paused || r.closed {
		return
	}

	for r.findLocked(domain.StatusDownload) == nil {
		next := r.findLocked(domain.StatusQueueDownload)
		if next == nil {
			break
		}
		r.startDownloadLocked(next)
	}

	for r.findLocked(domain.StatusProcessing) == nil {
		next := r.findLocked(domain.StatusQueueProcessing)
		if next == nil {
			break
		}
		r.startProcessingLocked(next)
	}
}

// findLocked returns the first item in insertion order with status s.
func (r *Registry) findLocked(s domain.Status) *domain.Item {
	for _, id := range r.order {
		if it := r.items[id]; it.Status == s {
			return it
		}
	}
	return nil
}

func (r *Registry) startDownloadLocked(it *domain.Item) {
	log := r.log.WithItem(it.ID, string(it.Type))
	it.Status = domain.StatusDownload
	it.SyncFlags()

	var (
		proc domain.Process
		err  = errNoStep
	)
	if r.steps.Download != nil {
		proc, err = r.steps.Download.Start(r.ctx, it.Snapshot())
	}
	if err != nil {
		log.Error("Failed to start download", "error", err)
		r.finishDownloadLocked(it, domain.Result{Err: fmt.Errorf("start download: %w", err)})
		return
	}

	it.Process = proc
	log.Info("Download started", "attempt", it.RetryCount+1)
	_ = r.updateLocked(r.bg, it)

	id := it.ID
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-proc.Done()
		r.onDownloadDone(id, proc)
	}()
}

func (r *Registry) onDownloadDone(id string, proc domain.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok || it.Process != proc {
		return
	}
	it.Process = nil
	r.finishDownloadLocked(it, proc.Result())
	r.scheduleLocked()
}

// finishDownloadLocked applies a download outcome. Failures restart the
// download right away until MaxRetries is spent.
func (r *Registry) finishDownloadLocked(it *domain.Item, res domain.Result) {
	log := r.log.WithItem(it.ID, string(it.Type))

	if res.OK() {
		if res.PlaylistID != "" {
			it.PlaylistID = res.PlaylistID
		}
		if res.URL != "" {
			it.URL = res.URL
		}
		log.Info("Download finished")

		if it.IsLidarr() && r.findLocked(domain.StatusProcessing) == nil {
			r.startProcessingLocked(it)
			return
		}
		it.Status = domain.StatusQueueProcessing
		_ = r.updateLocked(r.bg, it)
		return
	}

	r.output.Append(it.ID, fmt.Sprintf("Download failed: %v", res.Err), false)

	if it.RetryCount < constants.MaxRetries {
		it.RetryCount++
		log.Warn("Download failed, retrying", "retry", it.RetryCount, "max_retries", constants.MaxRetries, "error", res.Err)
		r.output.Append(it.ID, fmt.Sprintf("Retrying download (%d/%d)", it.RetryCount, constants.MaxRetries), false)
		r.startDownloadLocked(it)
		return
	}

	log.Error("Download failed, retries exhausted", "error", res.Err)
	it.Status = domain.StatusError
	r.deletePlaylistLocked(it)
	r.cleanWorkDir(it)
	_ = r.updateLocked(r.bg, it)
}

func (r *Registry) startProcessingLocked(it *domain.Item) {
	log := r.log.WithItem(it.ID, string(it.Type))
	it.Status = domain.StatusProcessing
	it.SyncFlags()

	step := r.steps.PostProcess
	if it.IsLidarr() && r.steps.LidarrPostProcess != nil {
		step = r.steps.LidarrPostProcess
	}

	var (
		proc domain.Process
		err  = errNoStep
	)
	if step != nil {
		proc, err = step.Start(r.ctx, it.Snapshot())
	}
	if err != nil {
		log.Error("Failed to start processing", "error", err)
		r.finishProcessingLocked(it, domain.Result{Err: fmt.Errorf("start processing: %w", err)})
		return
	}

	it.Process = proc
	log.Info("Processing started", "source", it.Source)
	_ = r.updateLocked(r.bg, it)

	id := it.ID
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-proc.Done()
		r.onProcessingDone(id, proc)
	}()
}

func (r *Registry) onProcessingDone(id string, proc domain.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok || it.Process != proc {
		return
	}
	it.Process = nil
	r.finishProcessingLocked(it, proc.Result())
	r.scheduleLocked()
}

func (r *Registry) finishProcessingLocked(it *domain.Item, res domain.Result) {
	log := r.log.WithItem(it.ID, string(it.Type))

	if res.OK() {
		it.Status = domain.StatusFinished
		log.Info("Item finished")
	} else {
		it.Status = domain.StatusError
		r.output.Append(it.ID, fmt.Sprintf("Processing failed: %v", res.Err), false)
		log.Error("Processing failed", "error", res.Err)
	}

	r.deletePlaylistLocked(it)
	r.cleanWorkDir(it)
	_ = r.updateLocked(r.bg, it)
}

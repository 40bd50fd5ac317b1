package httpapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/http/dto"
	"github.com/cesargomez89/tidarr/internal/notify"
	"github.com/cesargomez89/tidarr/internal/store"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Check(r.Context()); err != nil {
		h.Logger.Error("Health check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.Queue.Items()
	resp := make([]dto.ItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, h.itemResponse(it))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, ok := h.Queue.GetItem(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}

	resp := h.itemResponse(it)
	stored, err := h.DB.GetItem(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		h.Logger.Warn("Failed to read persisted item", "item_id", id, "error", err)
	default:
		resp.Persisted = stored.Status
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req dto.ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	if err := h.Queue.AddItem(r.Context(), req.ToItem()); err != nil {
		h.writeQueueError(w, err)
		return
	}

	it, _ := h.Queue.GetItem(req.ID)
	h.writeJSON(w, http.StatusCreated, h.itemResponse(it))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Queue.RemoveItem(r.Context(), id); err != nil {
		h.writeQueueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveAllItems(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.RemoveAllItems(r.Context()); err != nil {
		h.writeQueueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveFinishedItems(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.RemoveFinishedItems(r.Context()); err != nil {
		h.writeQueueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Queue.RetryItem(r.Context(), id); err != nil {
		h.writeQueueError(w, err)
		return
	}
	it, _ := h.Queue.GetItem(id)
	h.writeJSON(w, http.StatusOK, h.itemResponse(it))
}

func (h *Handler) ItemOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, ok := h.Queue.Output(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	h.writeJSON(w, http.StatusOK, dto.OutputResponse{ID: id, Output: out})
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.Pause(r.Context()); err != nil {
		h.writeQueueError(w, err)
		return
	}
	h.Status(w, r)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.Resume(r.Context()); err != nil {
		h.writeQueueError(w, err)
		return
	}
	h.Status(w, r)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.DB.CountByStatus(r.Context())
	if err != nil {
		h.Logger.Error("Failed to count items", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := dto.StatusResponse{
		Paused: h.Queue.Paused(),
		Counts: make(map[string]int, len(counts)),
	}
	for s, n := range counts {
		resp.Counts[string(s)] = n
		resp.Items += n
	}
	resp.ListClients, resp.ItemClients = h.Live.Counts()
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if !h.historyEnabled() {
		h.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	entries, err := h.History.List()
	if err != nil {
		h.Logger.Error("Failed to list history", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	p := dto.NewPagination(page, pageSize, len(entries))
	start, end := p.Bounds()

	resp := dto.HistoryResponse{
		Entries:    make([]dto.HistoryEntry, 0, end-start),
		Pagination: p,
	}
	for _, e := range entries[start:end] {
		resp.Entries = append(resp.Entries, dto.HistoryEntry{
			ID:         e.ID,
			RecordedAt: e.RecordedAt.Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if !h.historyEnabled() {
		h.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	if err := h.History.Clear(); err != nil {
		h.Logger.Error("Failed to clear history", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSocket streams the whole queue, starting with the current list.
func (h *Handler) ListSocket(w http.ResponseWriter, r *http.Request) {
	initial, err := notify.EncodeList(h.Queue.Items())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Live.ServeList(w, r, initial); err != nil {
		h.Logger.Warn("Websocket upgrade failed", "channel", "list", "error", err)
	}
}

// ItemSocket streams one item's output, starting with what is retained.
func (h *Handler) ItemSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, ok := h.Queue.Output(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	initial, err := json.Marshal(notify.OutputMessage{ID: id, Output: out})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Live.ServeItem(w, r, id, initial); err != nil {
		h.Logger.Warn("Websocket upgrade failed", "channel", id, "error", err)
	}
}

func (h *Handler) itemResponse(it domain.Item) dto.ItemResponse {
	resp := dto.ItemResponse{Item: it, Running: h.Queue.Running(it.ID)}
	if h.historyEnabled() {
		resp.Downloaded = h.History.Has(it.ID)
	}
	return resp
}

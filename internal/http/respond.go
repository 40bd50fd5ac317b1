package httpapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cesargomez89/tidarr/internal/http/dto"
	"github.com/cesargomez89/tidarr/internal/queue"
)

const maxBodyBytes = 1 << 20

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Warn("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// writeQueueError maps registry sentinels to status codes.
func (h *Handler) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrItemNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queue.ErrInvalidItem):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrNotRetryable):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.Logger.Error("Queue operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

package httpapp

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/history"
	"github.com/cesargomez89/tidarr/internal/logger"
)

// Queue is the part of the queue registry the API drives.
type Queue interface {
	AddItem(ctx context.Context, item domain.Item) error
	RemoveItem(ctx context.Context, id string) error
	RemoveAllItems(ctx context.Context) error
	RemoveFinishedItems(ctx context.Context) error
	RetryItem(ctx context.Context, id string) error
	GetItem(id string) (domain.Item, bool)
	Running(id string) bool
	Items() []domain.Item
	Output(id string) (string, bool)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Paused() bool
}

// Live serves the websocket channels.
type Live interface {
	ServeList(w http.ResponseWriter, r *http.Request, initial []byte) error
	ServeItem(w http.ResponseWriter, r *http.Request, itemID string, initial []byte) error
	Counts() (list, items int)
}

// Database is used for health and status reporting only; the registry owns
// all writes.
type Database interface {
	Check(ctx context.Context) error
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
}

// History is optional.
type History interface {
	Has(id string) bool
	List() ([]history.Entry, error)
	Clear() error
}

type Handler struct {
	Queue   Queue
	Live    Live
	DB      Database
	History History
	Logger  *logger.Logger
}

func NewHandler(q Queue, live Live, db Database, hist History, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Queue:   q,
		Live:    live,
		DB:      db,
		History: hist,
		Logger:  log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Get("/queue", h.ListItems)
		r.Post("/queue", h.AddItem)
		r.Delete("/queue", h.RemoveAllItems)
		r.Delete("/queue/finished", h.RemoveFinishedItems)
		r.Get("/queue/status", h.Status)
		r.Post("/queue/pause", h.Pause)
		r.Post("/queue/resume", h.Resume)
		r.Get("/queue/{id}", h.GetItem)
		r.Delete("/queue/{id}", h.RemoveItem)
		r.Post("/queue/{id}/retry", h.RetryItem)
		r.Get("/queue/{id}/output", h.ItemOutput)

		r.Get("/history", h.ListHistory)
		r.Delete("/history", h.ClearHistory)

		r.Get("/ws/queue", h.ListSocket)
		r.Get("/ws/queue/{id}", h.ItemSocket)
	})
}

// historyEnabled guards against a typed nil stored in the interface.
func (h *Handler) historyEnabled() bool {
	if h.History == nil {
		return false
	}
	if s, ok := h.History.(*history.Store); ok && s == nil {
		return false
	}
	return true
}

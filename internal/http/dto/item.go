package dto

import (
	"github.com/cesargomez89/tidarr/internal/domain"
)

// ItemRequest is the body of POST /api/queue.
type ItemRequest struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	Source  string `json:"source"`
}

func (r *ItemRequest) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateID(r.ID)...)
	errs = append(errs, validateType(r.Type)...)
	errs = append(errs, validateURL(r.URL)...)
	errs = append(errs, validateQuality(r.Quality)...)
	errs = append(errs, validateSource(r.Source)...)
	return errs
}

func (r *ItemRequest) ToItem() domain.Item {
	return domain.Item{
		ID:      r.ID,
		Type:    domain.ItemType(r.Type),
		URL:     r.URL,
		Quality: r.Quality,
		Artist:  r.Artist,
		Title:   r.Title,
		Source:  r.Source,
	}
}

// ItemResponse is a queue item as returned by the REST endpoints. Downloaded
// is set when the history sink already knows the id. Persisted is the status
// stored in the database and is only filled in by the single item endpoint.
type ItemResponse struct {
	domain.Item
	Downloaded bool          `json:"downloaded"`
	Running    bool          `json:"running"`
	Persisted  domain.Status `json:"persisted,omitempty"`
}

type OutputResponse struct {
	ID     string `json:"id"`
	Output string `json:"output"`
}

type StatusResponse struct {
	Paused      bool           `json:"paused"`
	Items       int            `json:"items"`
	Counts      map[string]int `json:"counts"`
	ListClients int            `json:"listClients"`
	ItemClients int            `json:"itemClients"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type HistoryResponse struct {
	Entries    []HistoryEntry `json:"entries"`
	Pagination *Pagination    `json:"pagination"`
}

type HistoryEntry struct {
	ID         string `json:"id"`
	RecordedAt string `json:"recordedAt"`
}

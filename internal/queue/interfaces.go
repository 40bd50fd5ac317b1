package queue

import (
	"context"
	"errors"

	"github.com/cesargomez89/tidarr/internal/domain"
)

var (
	ErrItemNotFound = errors.New("queue: item not found")
	ErrInvalidItem  = errors.New("queue: invalid item")
	ErrNotRetryable = errors.New("queue: item is not in error state")
)

// Starter launches one asynchronous step for an item. The returned process
// reports its outcome through Result once Done is closed.
type Starter interface {
	Start(ctx context.Context, item domain.Item) (domain.Process, error)
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(ctx context.Context, item domain.Item) (domain.Process, error)

func (f StarterFunc) Start(ctx context.Context, item domain.Item) (domain.Process, error) {
	return f(ctx, item)
}

// Steps are the black-box stages the scheduler drives. LidarrPostProcess
// falls back to PostProcess when nil.
type Steps struct {
	Download          Starter
	PostProcess       Starter
	LidarrPostProcess Starter
}

// Store persists queue items and the pause flag.
type Store interface {
	LoadItems(ctx context.Context) ([]domain.Item, error)
	UpsertItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, id string) error
	Paused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool) error
}

// Output is the per-item output history.
type Output interface {
	Create(id string)
	Reset(id string)
	Delete(id string)
	Append(id, line string, replaceLast bool)
	Get(id string) string
}

// Notifier publishes queue changes to live subscribers.
type Notifier interface {
	PublishList(items []domain.Item)
	PublishOutput(id, output string)
}

// History records ids of items that reached a terminal state.
type History interface {
	Record(ctx context.Context, id string) error
}

// PlaylistCleaner deletes the ephemeral playlist a download created.
type PlaylistCleaner interface {
	DeletePlaylist(ctx context.Context, playlistID string) error
}

// WorkDirs owns the per-item scratch directories.
type WorkDirs interface {
	Clean(id string) error
}

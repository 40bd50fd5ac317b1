package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/tidarr/internal/domain"
)

// ErrNotFound is returned when a queue item row does not exist.
var ErrNotFound = errors.New("store: item not found")

const itemColumns = `id, type, status, url, quality, artist, title, source, retry_count, playlist_id, position, created_at, updated_at`

// LoadItems returns every persisted item in insertion order.
func (db *DB) LoadItems(ctx context.Context) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items ORDER BY position ASC`

	var items []domain.Item
	if err := db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	for i := range items {
		items[i].SyncFlags()
	}
	return items, nil
}

func (db *DB) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE id = ?`

	item := &domain.Item{}
	err := db.GetContext(ctx, item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	item.SyncFlags()
	return item, nil
}

// UpsertItem inserts the item at the tail of the queue, or updates it in
// place keeping its original position.
func (db *DB) UpsertItem(ctx context.Context, item domain.Item) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	query := `INSERT INTO queue_items (` + itemColumns + `)
		VALUES (:id, :type, :status, :url, :quality, :artist, :title, :source, :retry_count, :playlist_id,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM queue_items), :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			status = excluded.status,
			url = excluded.url,
			quality = excluded.quality,
			artist = excluded.artist,
			title = excluded.title,
			source = excluded.source,
			retry_count = excluded.retry_count,
			playlist_id = excluded.playlist_id,
			updated_at = excluded.updated_at`

	if _, err := db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("upsert item %s: %w", item.ID, err)
	}
	return nil
}

// DeleteItem removes the row; deleting a missing id is not an error.
func (db *DB) DeleteItem(ctx context.Context, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

// CountByStatus is used by the status endpoint.
func (db *DB) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows := []struct {
		Status domain.Status `db:"status"`
		Count  int           `db:"count"`
	}{}
	if err := db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM queue_items GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	counts := make(map[domain.Status]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

package store

const Schema = `
CREATE TABLE IF NOT EXISTS queue_items (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	quality TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT 'tidarr',
	retry_count INTEGER NOT NULL DEFAULT 0,
	playlist_id TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_queue_items_position ON queue_items(position);
CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

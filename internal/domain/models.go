package domain

import (
	"fmt"
	"strings"
	"time"
)

type ItemType string

const (
	ItemTypeAlbum             ItemType = "album"
	ItemTypeTrack             ItemType = "track"
	ItemTypeVideo             ItemType = "video"
	ItemTypePlaylist          ItemType = "playlist"
	ItemTypeMix               ItemType = "mix"
	ItemTypeArtist            ItemType = "artist"
	ItemTypeFavoriteTracks    ItemType = "favorite_tracks"
	ItemTypeFavoriteAlbums    ItemType = "favorite_albums"
	ItemTypeFavoritePlaylists ItemType = "favorite_playlists"
	ItemTypeFavoriteVideos    ItemType = "favorite_videos"
	ItemTypeFavoriteArtists   ItemType = "favorite_artists"
	ItemTypeArtistVideos      ItemType = "artist_videos"
)

var itemTypes = map[ItemType]struct{}{
	ItemTypeAlbum:             {},
	ItemTypeTrack:             {},
	ItemTypeVideo:             {},
	ItemTypePlaylist:          {},
	ItemTypeMix:               {},
	ItemTypeArtist:            {},
	ItemTypeFavoriteTracks:    {},
	ItemTypeFavoriteAlbums:    {},
	ItemTypeFavoritePlaylists: {},
	ItemTypeFavoriteVideos:    {},
	ItemTypeFavoriteArtists:   {},
	ItemTypeArtistVideos:      {},
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	_, ok := itemTypes[t]
	return ok
}

// Virtual reports whether the item has to be materialised as a temporary
// playlist before it can be downloaded.
func (t ItemType) Virtual() bool {
	return t == ItemTypeMix || strings.HasPrefix(string(t), "favorite_")
}

type Status string

const (
	StatusQueueDownload   Status = "queue_download"
	StatusDownload        Status = "download"
	StatusQueueProcessing Status = "queue_processing"
	StatusProcessing      Status = "processing"
	StatusFinished        Status = "finished"
	StatusError           Status = "error"
	StatusNoDownload      Status = "no_download"
)

// Terminal reports whether no scheduler driven transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusError, StatusNoDownload:
		return true
	}
	return false
}

// Active reports whether s occupies one of the two slots.
func (s Status) Active() bool {
	return s == StatusDownload || s == StatusProcessing
}

// Queued returns the status an in-flight item falls back to when its
// process is lost, e.g. after a restart.
func (s Status) Queued() Status {
	switch s {
	case StatusDownload:
		return StatusQueueDownload
	case StatusProcessing:
		return StatusQueueProcessing
	}
	return s
}

func (s Status) Valid() bool {
	switch s {
	case StatusQueueDownload, StatusDownload, StatusQueueProcessing, StatusProcessing,
		StatusFinished, StatusError, StatusNoDownload:
		return true
	}
	return false
}

const (
	SourceTidarr = "tidarr"
	SourceLidarr = "lidarr"
)

// Item is a unit of work in the download queue
type Item struct {
	ID         string    `json:"id" db:"id"`
	Type       ItemType  `json:"type" db:"type"`
	Status     Status    `json:"status" db:"status"`
	URL        string    `json:"url" db:"url"`
	Quality    string    `json:"quality,omitempty" db:"quality"`
	Artist     string    `json:"artist,omitempty" db:"artist"`
	Title      string    `json:"title,omitempty" db:"title"`
	Source     string    `json:"source,omitempty" db:"source"`
	RetryCount int       `json:"retryCount" db:"retry_count"`
	PlaylistID string    `json:"playlistId,omitempty" db:"playlist_id"`
	Position   int64     `json:"-" db:"position"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`

	Loading bool `json:"loading" db:"-"`
	Error   bool `json:"error" db:"-"`

	// Process is owned by the item only while a step is in flight.
	Process Process `json:"-" db:"-"`
}

// Validate checks the fields a caller must provide when enqueueing.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !i.Type.Valid() {
		return fmt.Errorf("unknown item type %q", i.Type)
	}
	if i.Status != "" && !i.Status.Valid() {
		return fmt.Errorf("unknown status %q", i.Status)
	}
	if i.Source != "" && i.Source != SourceTidarr && i.Source != SourceLidarr {
		return fmt.Errorf("unknown source %q", i.Source)
	}
	return nil
}

// Normalize fills defaults and keeps the UI flags consistent with Status.
func (i *Item) Normalize() {
	if i.Status == "" {
		i.Status = StatusQueueDownload
	}
	if i.Source == "" {
		i.Source = SourceTidarr
	}
	i.SyncFlags()
}

// SyncFlags derives Loading and Error from Status.
func (i *Item) SyncFlags() {
	i.Loading = !i.Status.Terminal()
	i.Error = i.Status == StatusError
}

func (i *Item) IsLidarr() bool {
	return i.Source == SourceLidarr
}

// Snapshot returns a copy without the process handle, safe to hand to
// serializers and other goroutines.
func (i *Item) Snapshot() Item {
	c := *i
	c.Process = nil
	return c
}

// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort          = "8484"
	DefaultDBPath        = "tidarr.db"
	DefaultHistoryPath   = "tidarr-history.db"
	DefaultProcessingDir = ".processing"
	DefaultQuality       = "high"
	DefaultKillGrace     = 1 * time.Second
	DefaultShutdownWait  = 5 * time.Second
	DefaultLockName      = "tidarr.lock"
)

// API client
const (
	DefaultAPIURL        = "http://localhost:" + DefaultPort
	DefaultClientTimeout = 10 * time.Second
	DefaultRetryCount    = 3
	DefaultRetryBase     = 1 * time.Second
)

// Queue
const (
	PlaylistDeleteTimeout = 30 * time.Second

	MaxRetries      = 5
	MaxOutputLines  = 500
	OutputSeparator = "\n"
)

// Quality levels
const (
	QualityLow    = "low"
	QualityNormal = "normal"
	QualityHigh   = "high"
	QualityMaster = "master"
)

// Database
const (
	QueueTable    = "queue_items"
	SettingsTable = "settings"
)

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtMP4  = ".mp4"
	ExtM4A  = ".m4a"
)

// AudioExtensions lists the files the organizer moves into the library.
var AudioExtensions = []string{ExtFLAC, ExtMP3, ExtM4A, ExtMP4}

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// WebSocket
const (
	WSWriteWait      = 10 * time.Second
	WSPongWait       = 60 * time.Second
	WSPingPeriod     = 54 * time.Second
	WSSendBufferSize = 256
	WSMaxMessageSize = 512
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"

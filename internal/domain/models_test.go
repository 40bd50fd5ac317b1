package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusQueueDownload, false},
		{StatusDownload, false},
		{StatusQueueProcessing, false},
		{StatusProcessing, false},
		{StatusFinished, true},
		{StatusError, true},
		{StatusNoDownload, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestStatus_Queued(t *testing.T) {
	if got := StatusDownload.Queued(); got != StatusQueueDownload {
		t.Errorf("download.Queued() = %s, want %s", got, StatusQueueDownload)
	}
	if got := StatusProcessing.Queued(); got != StatusQueueProcessing {
		t.Errorf("processing.Queued() = %s, want %s", got, StatusQueueProcessing)
	}
	if got := StatusFinished.Queued(); got != StatusFinished {
		t.Errorf("finished.Queued() = %s, want %s", got, StatusFinished)
	}
}

func TestItemType_Virtual(t *testing.T) {
	virtual := []ItemType{ItemTypeMix, ItemTypeFavoriteTracks, ItemTypeFavoriteAlbums}
	for _, it := range virtual {
		if !it.Virtual() {
			t.Errorf("%s should be virtual", it)
		}
	}
	if ItemTypeAlbum.Virtual() || ItemTypeArtistVideos.Virtual() {
		t.Error("album and artist_videos should not be virtual")
	}
}

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr string
	}{
		{"valid", Item{ID: "1", Type: ItemTypeAlbum}, ""},
		{"missing id", Item{Type: ItemTypeAlbum}, "id is required"},
		{"unknown type", Item{ID: "1", Type: "podcast"}, "unknown item type"},
		{"unknown status", Item{ID: "1", Type: ItemTypeTrack, Status: "paused"}, "unknown status"},
		{"unknown source", Item{ID: "1", Type: ItemTypeTrack, Source: "sonarr"}, "unknown source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestItem_Normalize(t *testing.T) {
	item := Item{ID: "1", Type: ItemTypeAlbum}
	item.Normalize()

	if item.Status != StatusQueueDownload {
		t.Errorf("Status = %s, want %s", item.Status, StatusQueueDownload)
	}
	if item.Source != SourceTidarr {
		t.Errorf("Source = %s, want %s", item.Source, SourceTidarr)
	}
	if !item.Loading || item.Error {
		t.Errorf("flags = loading:%v error:%v, want loading only", item.Loading, item.Error)
	}

	item.Status = StatusError
	item.SyncFlags()
	if item.Loading || !item.Error {
		t.Errorf("flags = loading:%v error:%v, want error only", item.Loading, item.Error)
	}
}

type nopProcess struct{}

func (nopProcess) Done() <-chan struct{} { return nil }
func (nopProcess) Result() Result        { return Result{} }
func (nopProcess) Interrupt() error      { return nil }
func (nopProcess) Kill() error           { return nil }

func TestItem_SnapshotDropsProcess(t *testing.T) {
	item := Item{ID: "1", Type: ItemTypeAlbum, Process: nopProcess{}}
	snap := item.Snapshot()
	if snap.Process != nil {
		t.Error("Snapshot should not carry the process handle")
	}
	if item.Process == nil {
		t.Error("Snapshot must not modify the original item")
	}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "Process") {
		t.Errorf("process handle leaked into JSON: %s", data)
	}
}

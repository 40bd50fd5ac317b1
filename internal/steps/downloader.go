package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/logger"
	"github.com/cesargomez89/tidarr/internal/runner"
	"github.com/cesargomez89/tidarr/internal/storage"
)

// ErrNothingDownloaded is reported when the command exits cleanly but left
// no media in the work dir.
var ErrNothingDownloaded = errors.New("no audio files downloaded")

// CommandDownloader runs a shell command in the item's work dir.
type CommandDownloader struct {
	Command        string
	Shell          string
	DefaultQuality string
	WaitDelay      time.Duration
	WorkDirs       *storage.WorkDirs
	Output         Output
	Logger         *logger.Logger
}

func (d *CommandDownloader) Start(ctx context.Context, item domain.Item) (domain.Process, error) {
	dir, err := d.WorkDirs.Create(item.ID)
	if err != nil {
		return nil, err
	}

	quality := item.Quality
	if quality == "" {
		quality = d.DefaultQuality
	}
	shell := d.Shell
	if shell == "" {
		shell = "sh"
	}

	var (
		mu       sync.Mutex
		playlist string
		url      string
	)

	onLine := func(line string, replace bool) {
		switch {
		case strings.HasPrefix(line, MarkerPlaylist):
			mu.Lock()
			playlist = strings.TrimSpace(strings.TrimPrefix(line, MarkerPlaylist))
			mu.Unlock()
			return
		case strings.HasPrefix(line, MarkerURL):
			mu.Lock()
			url = strings.TrimSpace(strings.TrimPrefix(line, MarkerURL))
			mu.Unlock()
			return
		}
		d.Output.Append(item.ID, line, replace)
	}

	onExit := func(err error) domain.Result {
		mu.Lock()
		res := domain.Result{PlaylistID: playlist, URL: url}
		mu.Unlock()
		if err != nil {
			res.Err = fmt.Errorf("download command: %w", err)
			return res
		}
		files, ferr := d.WorkDirs.AudioFiles(item.ID)
		if ferr != nil {
			res.Err = ferr
		} else if len(files) == 0 {
			res.Err = ErrNothingDownloaded
		}
		return res
	}

	proc, err := runner.Exec(ctx, runner.Command{
		Name: shell,
		Args: []string{"-c", d.Command},
		Dir:  dir,
		Env: []string{
			"TIDARR_ID=" + item.ID,
			"TIDARR_TYPE=" + string(item.Type),
			"TIDARR_URL=" + item.URL,
			"TIDARR_QUALITY=" + quality,
			"TIDARR_DIR=" + dir,
		},
	}, runner.Options{OnLine: onLine, OnExit: onExit, WaitDelay: d.WaitDelay})
	if err != nil {
		return nil, err
	}

	if d.Logger != nil {
		d.Logger.WithItem(item.ID, string(item.Type)).Debug("Download command started", "pid", proc.Pid(), "dir", dir)
	}
	return proc, nil
}

package steps

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cesargomez89/tidarr/internal/runner"
)

// CommandPlaylistCleaner deletes ephemeral playlists by running a shell
// command with TIDARR_PLAYLIST set.
type CommandPlaylistCleaner struct {
	Command string
	Shell   string
}

func (c *CommandPlaylistCleaner) DeletePlaylist(ctx context.Context, playlistID string) error {
	shell := c.Shell
	if shell == "" {
		shell = "sh"
	}

	var (
		mu    sync.Mutex
		lines []string
	)
	proc, err := runner.Exec(ctx, runner.Command{
		Name: shell,
		Args: []string{"-c", c.Command},
		Env:  []string{"TIDARR_PLAYLIST=" + playlistID},
	}, runner.Options{OnLine: func(line string, _ bool) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}})
	if err != nil {
		return fmt.Errorf("delete playlist %s: %w", playlistID, err)
	}

	<-proc.Done()
	if res := proc.Result(); !res.OK() {
		mu.Lock()
		out := strings.Join(lines, "; ")
		mu.Unlock()
		return fmt.Errorf("delete playlist %s: %w: %s", playlistID, res.Err, out)
	}
	return nil
}

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/logger"
	"github.com/cesargomez89/tidarr/internal/runner"
	"github.com/cesargomez89/tidarr/internal/storage"
)

// Organizer moves downloaded media from the work dir into a library root,
// naming files from their tags.
type Organizer struct {
	Root         string
	PathTemplate string
	WorkDirs     *storage.WorkDirs
	Output       Output
	Logger       *logger.Logger
}

func (o *Organizer) Start(ctx context.Context, item domain.Item) (domain.Process, error) {
	if o.Root == "" {
		return nil, errors.New("organizer has no destination")
	}
	return runner.Go(ctx, func(ctx context.Context) domain.Result {
		return domain.Result{Err: o.organize(ctx, item)}
	}), nil
}

func (o *Organizer) organize(ctx context.Context, item domain.Item) error {
	files, err := o.WorkDirs.AudioFiles(item.ID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNothingDownloaded
	}

	tmpl := o.PathTemplate
	if tmpl == "" {
		tmpl = storage.DefaultPathTemplate
	}
	workDir := o.WorkDirs.Path(item.ID)

	for i, src := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		dst, err := o.destination(src, workDir, tmpl, item)
		if err != nil {
			return err
		}
		if err := storage.MoveFile(src, dst); err != nil {
			return err
		}

		rel, _ := filepath.Rel(o.Root, dst)
		o.Output.Append(item.ID, fmt.Sprintf("[%d/%d] %s", i+1, len(files), rel), false)
	}

	if o.Logger != nil {
		o.Logger.WithItem(item.ID, string(item.Type)).Info("Files organized", "count", len(files), "root", o.Root)
	}
	return nil
}

// destination builds the library path from tags, falling back to the path
// relative to the work dir when the file has none.
func (o *Organizer) destination(src, workDir, tmpl string, item domain.Item) (string, error) {
	ext := filepath.Ext(src)
	meta, err := readTags(src)
	if err != nil {
		rel, rerr := filepath.Rel(workDir, src)
		if rerr != nil {
			return "", rerr
		}
		o.Output.Append(item.ID, fmt.Sprintf("No tags in %s, keeping name", filepath.Base(src)), false)
		return filepath.Join(o.Root, storage.Sanitize(item.Artist), rel), nil
	}

	track, _ := meta.Track()
	disc, _ := meta.Disc()
	title := meta.Title()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(src), ext)
	}
	data := storage.NewPathTemplateData(meta.AlbumArtist(), meta.Artist(), meta.Album(), disc, track, title, meta.Year())
	return storage.BuildFullPath(o.Root, tmpl, data, ext)
}

func readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tag.ReadFrom(f)
}

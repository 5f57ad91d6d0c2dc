package assets

import (
	"context"
	"os"
	"path/filepath"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/fetch"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/services"
)

// Downloaded is the download stage's completion predicate: the entry points
// at a file that is actually on disk. A recorded path whose file is gone goes
// back to pending.
func Downloaded(e catalog.Entry) bool {
	if e.FilePath == "" {
		return false
	}
	info, err := os.Stat(e.FilePath)
	return err == nil && !info.IsDir()
}

// DownloadStage streams each entry's audio into assetDir. An already-present
// file short-circuits to a merge-only update so re-runs after a lost snapshot
// do not re-download.
func DownloadStage(client *fetch.Client, assetDir string) pipeline.Stage {
	return pipeline.Stage{
		Name: "download",
		Done: Downloaded,
		Process: func(ctx context.Context, entry catalog.Entry) (catalog.FieldUpdate, error) {
			if entry.AudioLink == "" {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "download", "resolve",
					"entry has no audio link yet", nil)
			}

			dest := filepath.Join(assetDir, Filename(entry.URL, entry.AudioLink))
			if info, err := os.Stat(dest); err == nil && !info.IsDir() {
				return catalog.FieldUpdate{FilePath: catalog.String(dest)}, nil
			}

			if err := client.Download(ctx, entry.AudioLink, dest); err != nil {
				return catalog.FieldUpdate{}, err
			}
			return catalog.FieldUpdate{FilePath: catalog.String(dest)}, nil
		},
	}
}

// Package media derives audio metadata for downloaded assets. Probe results
// are cached on the entry keyed by byte size, so a file is only re-probed
// when its on-disk size stops matching the cached value.
package media

import (
	"context"
	"math"
	"os"
	"time"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/media/ffprobe"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/services"
)

// Probed is the probe stage's completion predicate: cached metadata exists
// and its byte size still matches the file on disk.
func Probed(e catalog.Entry) bool {
	if e.FilePath == "" || e.AudioMetadata == nil {
		return false
	}
	info, err := os.Stat(e.FilePath)
	if err != nil {
		return false
	}
	return info.Size() == e.AudioMetadata.FileSizeBytes
}

// ProbeStage runs ffprobe over each downloaded asset that has no current
// metadata.
func ProbeStage(binary string) pipeline.Stage {
	return pipeline.Stage{
		Name: "probe",
		Done: Probed,
		Process: func(ctx context.Context, entry catalog.Entry) (catalog.FieldUpdate, error) {
			if entry.FilePath == "" {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "probe", "stat",
					"entry has no downloaded file yet", nil)
			}
			info, err := os.Stat(entry.FilePath)
			if err != nil {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "probe", "stat",
					entry.FilePath, err)
			}

			result, err := ffprobe.Inspect(ctx, binary, entry.FilePath)
			if err != nil {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe",
					entry.FilePath, err)
			}
			duration := result.DurationSeconds()
			if math.IsNaN(duration) || duration <= 0 {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe",
					"no usable duration in output", nil)
			}

			return catalog.FieldUpdate{
				AudioMetadata: &catalog.AudioMetadata{
					FileSizeBytes:   info.Size(),
					DurationSeconds: duration,
					AnalyzedDate:    time.Now().UTC().Format(time.RFC3339),
				},
			}, nil
		},
	}
}

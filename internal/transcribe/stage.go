package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/services"
)

const transcriptSuffix = "-transcript.txt"

// TranscriptPath returns where the transcript for an audio file lives.
func TranscriptPath(audioPath string) string {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	return base + transcriptSuffix
}

// Transcribed is the transcription stage's completion predicate: the entry
// records a transcript path and the file is present. A recorded path whose
// file went missing counts as a failed transcription and goes back to
// pending.
func Transcribed(e catalog.Entry) bool {
	if e.TranscriptionFilePath == "" {
		return false
	}
	info, err := os.Stat(e.TranscriptionFilePath)
	return err == nil && !info.IsDir()
}

// Stage transcribes each downloaded entry. An existing transcript file
// short-circuits to a merge-only update so snapshots rebuilt after data loss
// do not pay for re-transcription.
func Stage(client *Client) pipeline.Stage {
	return pipeline.Stage{
		Name: "transcribe",
		Done: Transcribed,
		Process: func(ctx context.Context, entry catalog.Entry) (catalog.FieldUpdate, error) {
			if entry.FilePath == "" {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "transcribe", "resolve",
					"entry has no downloaded file yet", nil)
			}
			if _, err := os.Stat(entry.FilePath); err != nil {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "transcribe", "resolve",
					entry.FilePath, err)
			}

			dest := TranscriptPath(entry.FilePath)
			if info, err := os.Stat(dest); err == nil && !info.IsDir() {
				return catalog.FieldUpdate{TranscriptionFilePath: catalog.String(dest)}, nil
			}

			transcript, err := client.Transcribe(ctx, entry.FilePath)
			if err != nil {
				return catalog.FieldUpdate{}, err
			}

			rendered := Render(entry.Title, entry.FilePath, transcript, time.Now())
			if err := os.WriteFile(dest, []byte(rendered), 0o644); err != nil {
				os.Remove(dest)
				return catalog.FieldUpdate{}, services.Wrap(services.ErrTransient, "transcribe", "write",
					dest, err)
			}
			return catalog.FieldUpdate{TranscriptionFilePath: catalog.String(dest)}, nil
		},
	}
}

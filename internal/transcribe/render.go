package transcribe

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Render formats a completed transcript as the plain-text file stored next to
// the audio. Header lines start with '#' so downstream text processing can
// strip them; utterances carry [MM:SS - MM:SS] ranges and stable speaker
// labels.
func Render(title, audioPath string, transcript Transcript, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transcription: %s\n", title)
	fmt.Fprintf(&b, "# Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "# Audio file: %s\n", filepath.Base(audioPath))
	b.WriteString("\n")

	if len(transcript.Utterances) > 0 {
		b.WriteString("# Speaker-labeled Transcription\n\n")
		for _, u := range transcript.Utterances {
			fmt.Fprintf(&b, "[%s - %s] SPEAKER_%s: %s\n",
				formatTimestamp(u.Start), formatTimestamp(u.End), u.Speaker, u.Text)
		}
		return b.String()
	}

	if transcript.Text != "" {
		b.WriteString(transcript.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func formatTimestamp(milliseconds int64) string {
	total := milliseconds / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

package catalog

import "strings"

// AudioMetadata holds cached probe results for a downloaded asset. The byte
// size doubles as a cheap content fingerprint: reporting re-probes a file
// only when its current size no longer matches the cached value.
type AudioMetadata struct {
	FileSizeBytes   int64   `json:"file_size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	AnalyzedDate    string  `json:"analyzed_date,omitempty"`
}

// Entry is one cataloged episode. The URL is the identity key and never
// changes once assigned; every other field is filled in progressively as
// stages complete.
type Entry struct {
	URL                   string         `json:"url"`
	Page                  int            `json:"page"`
	Title                 string         `json:"title,omitempty"`
	Date                  string         `json:"date,omitempty"`
	AudioLink             string         `json:"audio_link,omitempty"`
	FilePath              string         `json:"file_path,omitempty"`
	AudioMetadata         *AudioMetadata `json:"audio_metadata,omitempty"`
	TranscriptionFilePath string         `json:"transcription_file_path,omitempty"`
}

// Key returns the entry's identity key.
func (e Entry) Key() string {
	return strings.TrimSpace(e.URL)
}

// AssignmentKey returns the key used by the grouping assignment: the local
// asset path when the episode has been downloaded, otherwise the URL.
func (e Entry) AssignmentKey() string {
	if e.FilePath != "" {
		return e.FilePath
	}
	return e.Key()
}

// FieldUpdate is a partial update produced by a unit processor. Nil fields
// are left untouched on merge, so a stage never clobbers data it did not
// compute.
type FieldUpdate struct {
	Title                 *string
	Date                  *string
	AudioLink             *string
	FilePath              *string
	AudioMetadata         *AudioMetadata
	TranscriptionFilePath *string
}

// IsZero reports whether the update carries no fields at all.
func (u FieldUpdate) IsZero() bool {
	return u.Title == nil && u.Date == nil && u.AudioLink == nil &&
		u.FilePath == nil && u.AudioMetadata == nil && u.TranscriptionFilePath == nil
}

func (u FieldUpdate) apply(e *Entry) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.AudioLink != nil {
		e.AudioLink = *u.AudioLink
	}
	if u.FilePath != nil {
		e.FilePath = *u.FilePath
	}
	if u.AudioMetadata != nil {
		meta := *u.AudioMetadata
		e.AudioMetadata = &meta
	}
	if u.TranscriptionFilePath != nil {
		e.TranscriptionFilePath = *u.TranscriptionFilePath
	}
}

// String returns a pointer to v for building field updates inline.
func String(v string) *string {
	return &v
}

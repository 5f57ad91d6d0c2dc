package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/series"
)

// Options tunes the aggregation.
type Options struct {
	// RatePerHour is the transcription provider's price per audio hour.
	RatePerHour float64
}

// FileDetail is the per-asset record included in the stats artifact.
type FileDetail struct {
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	FilePath        string  `json:"file_path"`
	FileSizeBytes   int64   `json:"file_size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	Success         bool    `json:"success"`
	Error           string  `json:"error,omitempty"`
}

// FailedTranscription records an entry whose transcript path is set but whose
// file is gone from disk.
type FailedTranscription struct {
	Title                 string `json:"title"`
	URL                   string `json:"url"`
	FilePath              string `json:"file_path"`
	TranscriptionFilePath string `json:"transcription_file_path"`
}

// DateStats covers publication-date coverage.
type DateStats struct {
	WithDates    int     `json:"episodes_with_dates"`
	WithoutDates int     `json:"episodes_without_dates"`
	Percentage   float64 `json:"date_percentage"`
}

// CostEstimate prices transcription at the configured hourly rate.
type CostEstimate struct {
	RatePerHour            float64 `json:"rate_per_hour"`
	EstimatedTotalCost     float64 `json:"estimated_total_cost"`
	EstimatedRemainingCost float64 `json:"estimated_remaining_cost"`
	UntranscribedEpisodes  int     `json:"untranscribed_episodes"`
}

// TranscriptAnalysis aggregates transcript file contents.
type TranscriptAnalysis struct {
	TotalFiles              int    `json:"total_transcription_files"`
	TotalFileSizeBytes      int64  `json:"total_file_size_bytes"`
	TotalFileSizeFormatted  string `json:"total_file_size_formatted"`
	TotalCharacters         int    `json:"total_characters"`
	TranscriptionCharacters int    `json:"total_transcription_characters"`
	EstimatedTokens         int    `json:"estimated_total_tokens"`
	FailedAnalyses          int    `json:"failed_transcription_analyses"`
}

// SeriesCount is one row of the series breakdown, sorted by size descending.
type SeriesCount struct {
	Name     string `json:"name"`
	Episodes int    `json:"episodes"`
}

// SeriesStats covers the grouping assignment.
type SeriesStats struct {
	SeriesCount              int           `json:"series_count"`
	GroupedEpisodes          int           `json:"grouped_episodes"`
	IndependentEpisodes      int           `json:"independent_episodes"`
	AverageEpisodesPerSeries float64       `json:"average_episodes_per_series"`
	AssignedPercentage       float64       `json:"assigned_percentage"`
	Breakdown                []SeriesCount `json:"breakdown"`
}

// Summary is the roll-up section of the stats artifact.
type Summary struct {
	AnalyzedFiles            int                `json:"analyzed_files"`
	FailedAnalyses           int                `json:"failed_analyses"`
	Dates                    DateStats          `json:"date_statistics"`
	TotalSizeBytes           int64              `json:"total_size_bytes"`
	TotalSizeFormatted       string             `json:"total_size_formatted"`
	TotalDurationSeconds     float64            `json:"total_duration_seconds"`
	TotalDurationHours       float64            `json:"total_duration_hours"`
	TotalDurationFormatted   string             `json:"total_duration_formatted"`
	AverageDurationSeconds   float64            `json:"average_duration_seconds"`
	AverageDurationFormatted string             `json:"average_duration_formatted"`
	TranscriptionPercentage  float64            `json:"transcription_percentage"`
	Cost                     CostEstimate       `json:"cost_estimation"`
	Transcripts              TranscriptAnalysis `json:"transcription_analysis"`
	Series                   *SeriesStats       `json:"series_analysis,omitempty"`
}

// Stats is the full artifact written to stats.json.
type Stats struct {
	AnalysisDate                     string                `json:"analysis_date"`
	TotalEpisodes                    int                   `json:"total_episodes"`
	EpisodesWithDates                int                   `json:"episodes_with_dates"`
	EpisodesWithFiles                int                   `json:"episodes_with_files"`
	EpisodesWithTranscriptions       int                   `json:"episodes_with_transcriptions"`
	EpisodesWithFailedTranscriptions int                   `json:"episodes_with_failed_transcriptions"`
	FileDetails                      []FileDetail          `json:"file_details"`
	FailedTranscriptions             []FailedTranscription `json:"failed_transcriptions"`
	Summary                          Summary               `json:"summary"`
}

// Collect aggregates the catalog and, when non-nil, the grouping assignment.
// Every count uses its own denominator: dates over all episodes, transcription
// coverage over all episodes, series assignment over episodes with files, so
// partially populated entries are excluded rather than miscounted.
func Collect(store *catalog.Store, assignment *series.Assignment, opts Options) *Stats {
	entries := store.Entries()
	stats := &Stats{
		AnalysisDate:         time.Now().UTC().Format(time.RFC3339),
		TotalEpisodes:        len(entries),
		FileDetails:          []FileDetail{},
		FailedTranscriptions: []FailedTranscription{},
	}

	var (
		totalDuration float64
		totalSize     int64
		transcribed   []catalog.Entry
	)
	for _, e := range entries {
		if e.Date != "" {
			stats.EpisodesWithDates++
		}

		hasFile := e.FilePath != "" && fileExists(e.FilePath)
		if hasFile {
			stats.EpisodesWithFiles++
			detail := FileDetail{
				Title:    e.Title,
				URL:      e.URL,
				FilePath: e.FilePath,
			}
			switch {
			case e.AudioMetadata == nil:
				detail.Error = "not probed"
			case !sizeMatches(e):
				detail.Error = "file changed since last probe"
			default:
				detail.Success = true
				detail.FileSizeBytes = e.AudioMetadata.FileSizeBytes
				detail.DurationSeconds = e.AudioMetadata.DurationSeconds
				totalSize += detail.FileSizeBytes
				totalDuration += detail.DurationSeconds
			}
			stats.FileDetails = append(stats.FileDetails, detail)
			if detail.Success {
				stats.Summary.AnalyzedFiles++
			} else {
				stats.Summary.FailedAnalyses++
			}
		}

		if e.TranscriptionFilePath == "" {
			continue
		}
		if fileExists(e.TranscriptionFilePath) {
			stats.EpisodesWithTranscriptions++
			transcribed = append(transcribed, e)
		} else if hasFile {
			stats.EpisodesWithFailedTranscriptions++
			stats.FailedTranscriptions = append(stats.FailedTranscriptions, FailedTranscription{
				Title:                 e.Title,
				URL:                   e.URL,
				FilePath:              e.FilePath,
				TranscriptionFilePath: e.TranscriptionFilePath,
			})
		}
	}

	s := &stats.Summary
	s.Dates = DateStats{
		WithDates:    stats.EpisodesWithDates,
		WithoutDates: stats.TotalEpisodes - stats.EpisodesWithDates,
		Percentage:   percentage(stats.EpisodesWithDates, stats.TotalEpisodes),
	}
	s.TotalSizeBytes = totalSize
	s.TotalSizeFormatted = humanize.IBytes(uint64(totalSize))
	s.TotalDurationSeconds = totalDuration
	s.TotalDurationHours = round2(totalDuration / 3600)
	s.TotalDurationFormatted = FormatDuration(totalDuration)
	if s.AnalyzedFiles > 0 {
		s.AverageDurationSeconds = totalDuration / float64(s.AnalyzedFiles)
	}
	s.AverageDurationFormatted = FormatDuration(s.AverageDurationSeconds)
	s.TranscriptionPercentage = percentage(stats.EpisodesWithTranscriptions, stats.TotalEpisodes)

	s.Cost = costEstimate(stats, entries, opts.RatePerHour)
	s.Transcripts = analyzeTranscripts(transcribed)
	if assignment != nil && assignment.Len() > 0 {
		s.Series = seriesStats(assignment, stats.EpisodesWithFiles)
	}
	return stats
}

func costEstimate(stats *Stats, entries []catalog.Entry, rate float64) CostEstimate {
	cost := CostEstimate{RatePerHour: rate}
	cost.EstimatedTotalCost = round2(stats.Summary.TotalDurationSeconds / 3600 * rate)

	durationByURL := make(map[string]float64, len(stats.FileDetails))
	for _, detail := range stats.FileDetails {
		if detail.Success {
			durationByURL[detail.URL] = detail.DurationSeconds
		}
	}
	var remaining float64
	for _, e := range entries {
		if e.FilePath == "" || !fileExists(e.FilePath) {
			continue
		}
		if e.TranscriptionFilePath != "" && fileExists(e.TranscriptionFilePath) {
			continue
		}
		cost.UntranscribedEpisodes++
		remaining += durationByURL[e.URL]
	}
	cost.EstimatedRemainingCost = round2(remaining / 3600 * rate)
	return cost
}

func analyzeTranscripts(entries []catalog.Entry) TranscriptAnalysis {
	var out TranscriptAnalysis
	for _, e := range entries {
		info, err := os.Stat(e.TranscriptionFilePath)
		if err != nil {
			out.FailedAnalyses++
			continue
		}
		data, err := os.ReadFile(e.TranscriptionFilePath)
		if err != nil {
			out.FailedAnalyses++
			continue
		}
		text := TranscriptText(string(data))
		out.TotalFiles++
		out.TotalFileSizeBytes += info.Size()
		out.TotalCharacters += len(data)
		out.TranscriptionCharacters += len(text)
		out.EstimatedTokens += EstimateTokens(text)
	}
	out.TotalFileSizeFormatted = humanize.IBytes(uint64(out.TotalFileSizeBytes))
	return out
}

func seriesStats(assignment *series.Assignment, episodesWithFiles int) *SeriesStats {
	out := &SeriesStats{
		IndependentEpisodes: len(assignment.UngroupedKeys()),
		Breakdown:           []SeriesCount{},
	}
	for _, name := range assignment.SeriesNames() {
		count := len(assignment.Group(name))
		out.SeriesCount++
		out.GroupedEpisodes += count
		out.Breakdown = append(out.Breakdown, SeriesCount{Name: name, Episodes: count})
	}
	sort.SliceStable(out.Breakdown, func(i, j int) bool {
		return out.Breakdown[i].Episodes > out.Breakdown[j].Episodes
	})
	if out.SeriesCount > 0 {
		out.AverageEpisodesPerSeries = round2(float64(out.GroupedEpisodes) / float64(out.SeriesCount))
	}
	out.AssignedPercentage = percentage(out.GroupedEpisodes+out.IndependentEpisodes, episodesWithFiles)
	return out
}

// WriteJSON writes the artifact atomically next to the other snapshots.
func (s *Stats) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create stats directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp stats: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp stats: %w", err)
	}
	return nil
}

// FormatDuration renders seconds as HH:MM:SS; hours are unbounded.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

func sizeMatches(e catalog.Entry) bool {
	info, err := os.Stat(e.FilePath)
	return err == nil && e.AudioMetadata != nil && info.Size() == e.AudioMetadata.FileSizeBytes
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }

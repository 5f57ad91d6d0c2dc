package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/series"
)

func writeFileOfSize(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fixture: four episodes in distinct states so every exclusion path runs.
//   - probed, transcribed
//   - probed, not transcribed
//   - downloaded but never probed, dateless
//   - discovered only (no file on disk)
func newStatsFixture(t *testing.T) (*catalog.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "episodes.json"), nil)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}

	full := filepath.Join(dir, "full.mp3")
	writeFileOfSize(t, full, 2048)
	transcript := filepath.Join(dir, "full-transcript.txt")
	body := "# Transcription: Full\n\n# Speaker-labeled Transcription\n\n[00:00 - 00:10] SPEAKER_A: Hello and welcome everyone.\n"
	if err := os.WriteFile(transcript, []byte(body), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	probed := filepath.Join(dir, "probed.mp3")
	writeFileOfSize(t, probed, 1024)

	unprobed := filepath.Join(dir, "unprobed.mp3")
	writeFileOfSize(t, unprobed, 512)

	entries := []catalog.Entry{
		{
			URL: "https://pod.example.com/episodes/full", Page: 1, Title: "Full", Date: "2024-01-01",
			FilePath:              full,
			AudioMetadata:         &catalog.AudioMetadata{FileSizeBytes: 2048, DurationSeconds: 3600},
			TranscriptionFilePath: transcript,
		},
		{
			URL: "https://pod.example.com/episodes/probed", Page: 1, Title: "Probed", Date: "2024-01-08",
			FilePath:      probed,
			AudioMetadata: &catalog.AudioMetadata{FileSizeBytes: 1024, DurationSeconds: 1800},
		},
		{
			URL: "https://pod.example.com/episodes/unprobed", Page: 2, Title: "Unprobed",
			FilePath: unprobed,
		},
		{
			URL: "https://pod.example.com/episodes/pending", Page: 2, Title: "Pending", Date: "2024-01-22",
		},
	}
	for _, e := range entries {
		if _, err := store.Insert(e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	return store, dir
}

func TestCollectExcludesPartialEntriesPerMetric(t *testing.T) {
	store, _ := newStatsFixture(t)
	stats := Collect(store, nil, Options{RatePerHour: 0.12})

	if stats.TotalEpisodes != 4 {
		t.Fatalf("TotalEpisodes = %d, want 4", stats.TotalEpisodes)
	}
	if stats.EpisodesWithDates != 3 {
		t.Fatalf("EpisodesWithDates = %d, want 3", stats.EpisodesWithDates)
	}
	if stats.EpisodesWithFiles != 3 {
		t.Fatalf("EpisodesWithFiles = %d, want 3", stats.EpisodesWithFiles)
	}
	if stats.EpisodesWithTranscriptions != 1 {
		t.Fatalf("EpisodesWithTranscriptions = %d, want 1", stats.EpisodesWithTranscriptions)
	}
	// Only probed entries contribute to totals; the unprobed file is a
	// failed analysis, not a silent zero.
	if stats.Summary.AnalyzedFiles != 2 || stats.Summary.FailedAnalyses != 1 {
		t.Fatalf("analyzed/failed = %d/%d, want 2/1", stats.Summary.AnalyzedFiles, stats.Summary.FailedAnalyses)
	}
	if stats.Summary.TotalSizeBytes != 3072 {
		t.Fatalf("TotalSizeBytes = %d, want 3072", stats.Summary.TotalSizeBytes)
	}
	if stats.Summary.TotalDurationSeconds != 5400 {
		t.Fatalf("TotalDurationSeconds = %v, want 5400", stats.Summary.TotalDurationSeconds)
	}
	if stats.Summary.TotalDurationFormatted != "01:30:00" {
		t.Fatalf("TotalDurationFormatted = %q", stats.Summary.TotalDurationFormatted)
	}
}

func TestCollectCostEstimate(t *testing.T) {
	store, _ := newStatsFixture(t)
	stats := Collect(store, nil, Options{RatePerHour: 0.12})

	cost := stats.Summary.Cost
	// 1.5 probed hours in total, 0.5 of them untranscribed.
	if cost.EstimatedTotalCost != 0.18 {
		t.Fatalf("EstimatedTotalCost = %v, want 0.18", cost.EstimatedTotalCost)
	}
	if cost.EstimatedRemainingCost != 0.06 {
		t.Fatalf("EstimatedRemainingCost = %v, want 0.06", cost.EstimatedRemainingCost)
	}
	if cost.UntranscribedEpisodes != 2 {
		t.Fatalf("UntranscribedEpisodes = %d, want 2", cost.UntranscribedEpisodes)
	}
}

func TestCollectDetectsSizeDrift(t *testing.T) {
	store, dir := newStatsFixture(t)
	// Grow the probed file so its cached metadata no longer matches.
	writeFileOfSize(t, filepath.Join(dir, "probed.mp3"), 4096)

	stats := Collect(store, nil, Options{})
	for _, detail := range stats.FileDetails {
		if strings.HasSuffix(detail.FilePath, "probed.mp3") && !strings.HasSuffix(detail.FilePath, "unprobed.mp3") {
			if detail.Success {
				t.Fatalf("size drift not detected for %s", detail.FilePath)
			}
			if detail.Error != "file changed since last probe" {
				t.Fatalf("detail.Error = %q", detail.Error)
			}
			return
		}
	}
	t.Fatal("probed.mp3 missing from file details")
}

func TestCollectFailedTranscriptionCount(t *testing.T) {
	store, dir := newStatsFixture(t)
	gone := filepath.Join(dir, "gone-transcript.txt")
	if err := store.Merge("https://pod.example.com/episodes/probed", catalog.FieldUpdate{
		TranscriptionFilePath: catalog.String(gone),
	}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	stats := Collect(store, nil, Options{})
	if stats.EpisodesWithFailedTranscriptions != 1 {
		t.Fatalf("EpisodesWithFailedTranscriptions = %d, want 1", stats.EpisodesWithFailedTranscriptions)
	}
	if len(stats.FailedTranscriptions) != 1 || stats.FailedTranscriptions[0].TranscriptionFilePath != gone {
		t.Fatalf("FailedTranscriptions = %+v", stats.FailedTranscriptions)
	}
}

func TestCollectSeriesBreakdown(t *testing.T) {
	store, dir := newStatsFixture(t)
	assignment, err := series.LoadAssignment(filepath.Join(dir, "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}
	if err := assignment.AssignGroup("Deep Dive", 1, "a.mp3"); err != nil {
		t.Fatalf("AssignGroup() error = %v", err)
	}
	if err := assignment.AssignGroup("Deep Dive", 2, "b.mp3"); err != nil {
		t.Fatalf("AssignGroup() error = %v", err)
	}
	if err := assignment.AssignGroup("Origins", 1, "c.mp3"); err != nil {
		t.Fatalf("AssignGroup() error = %v", err)
	}
	assignment.AssignUngrouped("d.mp3")

	stats := Collect(store, assignment, Options{})
	got := stats.Summary.Series
	if got == nil {
		t.Fatal("Series summary missing")
	}
	if got.SeriesCount != 2 || got.GroupedEpisodes != 3 || got.IndependentEpisodes != 1 {
		t.Fatalf("series summary = %+v", got)
	}
	if got.Breakdown[0].Name != "Deep Dive" || got.Breakdown[0].Episodes != 2 {
		t.Fatalf("breakdown not sorted by size: %+v", got.Breakdown)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	store, _ := newStatsFixture(t)
	stats := Collect(store, nil, Options{RatePerHour: 0.12})

	path := filepath.Join(t.TempDir(), "stats.json")
	if err := stats.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stats.json: %v", err)
	}
	var reloaded Stats
	if err := json.Unmarshal(data, &reloaded); err != nil {
		t.Fatalf("parse stats.json: %v", err)
	}
	if reloaded.TotalEpisodes != stats.TotalEpisodes {
		t.Fatalf("TotalEpisodes = %d, want %d", reloaded.TotalEpisodes, stats.TotalEpisodes)
	}
	if reloaded.Summary.Cost.EstimatedTotalCost != stats.Summary.Cost.EstimatedTotalCost {
		t.Fatalf("cost estimate lost in round trip")
	}
}

func TestTranscriptText(t *testing.T) {
	content := "# Transcription: Test\n====\n[00:00 - 00:10] SPEAKER_A: Hello there.\nplain line\n"
	got := TranscriptText(content)
	want := "Hello there. plain line"
	if got != want {
		t.Fatalf("TranscriptText() = %q, want %q", got, want)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("EstimateTokens(empty) = %d, want 0", got)
	}
	// 48 chars across 3 long words: chars/4*0.8 = 9 beats the word count.
	text := "extraordinarily incomprehensible characteristics"
	if got := EstimateTokens(text); got != 9 {
		t.Fatalf("EstimateTokens(%q) = %d, want 9", text, got)
	}
	// Short words: word count exceeds the character bound.
	if got := EstimateTokens("a b c d e"); got != 5 {
		t.Fatalf("EstimateTokens(short words) = %d, want 5", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{90000, "25:00:00"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestTablesIncludeSeriesSection(t *testing.T) {
	store, dir := newStatsFixture(t)
	assignment, err := series.LoadAssignment(filepath.Join(dir, "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}
	assignment.AssignUngrouped("d.mp3")

	tables := Collect(store, assignment, Options{RatePerHour: 0.12}).Tables()
	var titles []string
	for _, table := range tables {
		titles = append(titles, table.Title)
	}
	joined := strings.Join(titles, "|")
	if !strings.Contains(joined, "Catalog") || !strings.Contains(joined, "Series") {
		t.Fatalf("table titles = %v", titles)
	}
}

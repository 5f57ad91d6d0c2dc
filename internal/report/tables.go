package report

import (
	"fmt"
	"strconv"
)

// Table is a renderable section of the stats report. The CLI decides how to
// draw it.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Tables builds the report sections in display order.
func (s *Stats) Tables() []Table {
	out := []Table{s.overviewTable(), s.audioTable(), s.costTable()}
	if s.Summary.Transcripts.TotalFiles > 0 {
		out = append(out, s.transcriptTable())
	}
	if s.Summary.Series != nil {
		out = append(out, s.seriesTable())
	}
	if len(s.FailedTranscriptions) > 0 {
		out = append(out, s.failedTable())
	}
	return out
}

func (s *Stats) overviewTable() Table {
	return Table{
		Title:   "Catalog",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total episodes", strconv.Itoa(s.TotalEpisodes)},
			{"With dates", fmt.Sprintf("%d (%.1f%%)", s.EpisodesWithDates, s.Summary.Dates.Percentage)},
			{"With audio files", strconv.Itoa(s.EpisodesWithFiles)},
			{"With transcriptions", fmt.Sprintf("%d (%.1f%%)", s.EpisodesWithTranscriptions, s.Summary.TranscriptionPercentage)},
			{"Failed transcriptions", strconv.Itoa(s.EpisodesWithFailedTranscriptions)},
		},
	}
}

func (s *Stats) audioTable() Table {
	return Table{
		Title:   "Audio",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Files analyzed", strconv.Itoa(s.Summary.AnalyzedFiles)},
			{"Failed analyses", strconv.Itoa(s.Summary.FailedAnalyses)},
			{"Total size", s.Summary.TotalSizeFormatted},
			{"Total duration", fmt.Sprintf("%s (%.1f hours)", s.Summary.TotalDurationFormatted, s.Summary.TotalDurationHours)},
			{"Average duration", s.Summary.AverageDurationFormatted},
		},
	}
}

func (s *Stats) costTable() Table {
	cost := s.Summary.Cost
	return Table{
		Title:   fmt.Sprintf("Transcription cost ($%.2f/hour)", cost.RatePerHour),
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"All audio", fmt.Sprintf("$%.2f", cost.EstimatedTotalCost)},
			{"Remaining", fmt.Sprintf("$%.2f (%d episodes)", cost.EstimatedRemainingCost, cost.UntranscribedEpisodes)},
		},
	}
}

func (s *Stats) transcriptTable() Table {
	t := s.Summary.Transcripts
	return Table{
		Title:   "Transcripts",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Files", strconv.Itoa(t.TotalFiles)},
			{"Total size", t.TotalFileSizeFormatted},
			{"Transcription characters", strconv.Itoa(t.TranscriptionCharacters)},
			{"Estimated tokens", strconv.Itoa(t.EstimatedTokens)},
		},
	}
}

func (s *Stats) seriesTable() Table {
	series := s.Summary.Series
	rows := [][]string{
		{"(independent)", strconv.Itoa(series.IndependentEpisodes)},
	}
	for _, row := range series.Breakdown {
		rows = append(rows, []string{row.Name, strconv.Itoa(row.Episodes)})
	}
	return Table{
		Title:   fmt.Sprintf("Series (%d identified, %.1f avg episodes)", series.SeriesCount, series.AverageEpisodesPerSeries),
		Headers: []string{"Series", "Episodes"},
		Rows:    rows,
	}
}

func (s *Stats) failedTable() Table {
	rows := make([][]string, 0, len(s.FailedTranscriptions))
	for _, failed := range s.FailedTranscriptions {
		rows = append(rows, []string{failed.Title, failed.TranscriptionFilePath})
	}
	return Table{
		Title:   "Failed transcriptions",
		Headers: []string{"Episode", "Missing transcript"},
		Rows:    rows,
	}
}

// Package export flattens the catalog and the series assignment into a CSV
// spreadsheet: one row per assigned episode, joined on the assignment key.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/series"
)

var header = []string{"series_name", "episode_num", "episode_date", "episode_url", "episode_file_path_mp3"}

// Row is one exported episode.
type Row struct {
	SeriesName string
	EpisodeNum int
	Date       string
	URL        string
	FilePath   string
}

// Summary reports what was written.
type Summary struct {
	Rows        int
	SeriesCount int
	Independent int
	MissingDate int
	MissingURL  int
}

// Rows joins the assignment against the catalog. Named series keep their
// assigned positions; ungrouped episodes are numbered sequentially in
// assignment order, a numbering that exists only in the export. Rows are
// sorted by series name, then position.
func Rows(store *catalog.Store, assignment *series.Assignment) []Row {
	lookup := make(map[string]catalog.Entry, store.Len())
	for _, e := range store.Entries() {
		lookup[e.AssignmentKey()] = e
	}

	var rows []Row
	for i, key := range assignment.UngroupedKeys() {
		rows = append(rows, makeRow(series.Ungrouped, i+1, key, lookup))
	}
	for _, name := range assignment.SeriesNames() {
		group := assignment.Group(name)
		positions := make([]int, 0, len(group))
		for pos := range group {
			positions = append(positions, pos)
		}
		sort.Ints(positions)
		for _, pos := range positions {
			rows = append(rows, makeRow(name, pos, group[pos], lookup))
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SeriesName != rows[j].SeriesName {
			return rows[i].SeriesName < rows[j].SeriesName
		}
		return rows[i].EpisodeNum < rows[j].EpisodeNum
	})
	return rows
}

func makeRow(seriesName string, position int, key string, lookup map[string]catalog.Entry) Row {
	entry := lookup[key]
	return Row{
		SeriesName: seriesName,
		EpisodeNum: position,
		Date:       entry.Date,
		URL:        entry.URL,
		FilePath:   key,
	}
}

// Write renders the rows as CSV.
func Write(w io.Writer, rows []Row) (Summary, error) {
	var summary Summary
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return summary, fmt.Errorf("write csv header: %w", err)
	}

	names := make(map[string]struct{})
	for _, row := range rows {
		record := []string{row.SeriesName, strconv.Itoa(row.EpisodeNum), row.Date, row.URL, row.FilePath}
		if err := cw.Write(record); err != nil {
			return summary, fmt.Errorf("write csv row: %w", err)
		}
		summary.Rows++
		names[row.SeriesName] = struct{}{}
		if row.SeriesName == series.Ungrouped {
			summary.Independent++
		}
		if row.Date == "" {
			summary.MissingDate++
		}
		if row.URL == "" {
			summary.MissingURL++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return summary, fmt.Errorf("flush csv: %w", err)
	}
	summary.SeriesCount = len(names)
	return summary, nil
}

// WriteFile exports to a file atomically.
func WriteFile(path string, store *catalog.Store, assignment *series.Assignment) (Summary, error) {
	rows := Rows(store, assignment)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("create export directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create temp export: %w", err)
	}
	summary, err := Write(f, rows)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return Summary{}, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Summary{}, fmt.Errorf("rename temp export: %w", err)
	}
	return summary, nil
}

package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/report"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func printStageSummaries(w io.Writer, summaries []pipeline.Summary) {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Stage,
			fmt.Sprintf("%d", s.Pending),
			fmt.Sprintf("%d", s.Processed),
			fmt.Sprintf("%d", s.Skipped),
			fmt.Sprintf("%d", s.Failed),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Stage", "Pending", "Processed", "Skipped", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}

func printReportTables(w io.Writer, tables []report.Table) {
	aligns := []columnAlignment{alignLeft, alignRight}
	for _, t := range tables {
		fmt.Fprintln(w, t.Title)
		fmt.Fprintln(w, renderTable(t.Headers, t.Rows, aligns))
	}
}

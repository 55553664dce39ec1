package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"pagemill/internal/store"
)

// column pairs a header with its alignment. Counts, priorities, and progress
// render right-aligned, everything else left.
type column struct {
	title   string
	numeric bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}

// pageCells formats the fields every page-listing table shares: short id,
// truncated name, colorized status, and percentage progress.
func pageCells(page *store.Page, colorize bool) (id, name, status, progress string) {
	return shortID(page.ID),
		truncate(page.FileName, 36),
		colorizeStatus(string(page.Status), colorize),
		fmt.Sprintf("%.0f%%", page.Progress)
}

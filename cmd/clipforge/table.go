package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows under headers with rounded borders. Short rows are
// padded with blanks and cells beyond the header count are ignored.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	width := len(headers)
	if width == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, width))
	for _, cells := range rows {
		tw.AppendRow(toRow(cells, width))
	}

	configs := make([]table.ColumnConfig, width)
	for col := range configs {
		configs[col] = table.ColumnConfig{
			Number:      col + 1,
			Align:       textAlign(aligns, col),
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for col := range row {
		row[col] = ""
		if col < len(cells) {
			row[col] = cells[col]
		}
	}
	return row
}

func textAlign(aligns []columnAlignment, col int) text.Align {
	if col < len(aligns) && aligns[col] == alignRight {
		return text.AlignRight
	}
	return text.AlignLeft
}

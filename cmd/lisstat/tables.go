package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	cellStyle     = lipgloss.NewStyle().PaddingRight(2)
	lastCellStyle = lipgloss.NewStyle()
)

// newTextTable lays headers and rows out in aligned columns without borders.
func newTextTable(headers ...string) *table.Table {
	last := len(headers) - 1
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == last {
				return lastCellStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func writeTextTable(w io.Writer, t *table.Table) error {
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"lisstat/pkg/contracts/domain"
)

const (
	// IndexSheet is the first sheet of an exported workbook.
	IndexSheet = "Index"
	// maxSheetName is Excel's limit on sheet name length.
	maxSheetName = 31
)

// Workbook builds an xlsx file holding an index sheet and one sheet per table.
type Workbook struct {
	file   *excelize.File
	used   map[string]bool
	index  [][]string
	sheets []string
	bold   int
}

// NewWorkbook creates an empty workbook with the index sheet in place.
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), IndexSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create index sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &Workbook{
		file: f,
		used: map[string]bool{"index": true},
		bold: bold,
	}, nil
}

// AddTable writes table to a new sheet and returns the sheet name.
func (wb *Workbook) AddTable(table *domain.StatisticalTable) (string, error) {
	sheet := uniqueName(TableFileName(table), wb.used, maxSheetName)
	if _, err := wb.file.NewSheet(sheet); err != nil {
		return "", fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	meta := [][]interface{}{
		{"kind", string(table.Kind)},
		{"primary", table.Primary},
		{"secondary", table.Secondary},
		{"summary", table.Summary},
		{"base", table.Base},
		{},
		{"", "mean", "variance", "std_dev"},
		{"grouped", table.Grouped.Mean, table.Grouped.Variance, table.Grouped.StdDev},
		{"ungrouped", table.Ungrouped.Mean, table.Ungrouped.Variance, table.Ungrouped.StdDev},
		{},
	}
	row := 1
	for _, values := range meta {
		if len(values) > 0 {
			if err := wb.setRow(sheet, row, values); err != nil {
				return "", err
			}
		}
		row++
	}

	header := make([]interface{}, len(RowHeaders))
	for i, h := range RowHeaders {
		header[i] = h
	}
	if err := wb.setRow(sheet, row, header); err != nil {
		return "", err
	}
	if err := wb.file.SetRowStyle(sheet, row, row, wb.bold); err != nil {
		return "", fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}
	row++

	for _, r := range table.Rows {
		values := []interface{}{r.Interval, r.PerUnit, r.Absolute, r.FrequencyDiscrete, r.FrequencyCumulative, r.Probability}
		if err := wb.setRow(sheet, row, values); err != nil {
			return "", err
		}
		row++
	}

	wb.index = append(wb.index, IndexRecords([]*domain.StatisticalTable{table})...)
	wb.sheets = append(wb.sheets, sheet)
	return sheet, nil
}

func (wb *Workbook) setRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

// finish fills the index sheet. Index rows carry the sheet name first.
func (wb *Workbook) finish() error {
	header := []interface{}{"sheet"}
	for _, h := range IndexHeaders {
		header = append(header, h)
	}
	if err := wb.setRow(IndexSheet, 1, header); err != nil {
		return err
	}
	if err := wb.file.SetRowStyle(IndexSheet, 1, 1, wb.bold); err != nil {
		return fmt.Errorf("failed to style index header: %w", err)
	}
	for i, rec := range wb.index {
		values := []interface{}{wb.sheets[i]}
		for _, v := range rec {
			values = append(values, v)
		}
		if err := wb.setRow(IndexSheet, i+2, values); err != nil {
			return err
		}
	}
	wb.file.SetActiveSheet(0)
	return nil
}

// Write serialises the workbook to w.
func (wb *Workbook) Write(w io.Writer) error {
	if err := wb.finish(); err != nil {
		return err
	}
	if err := wb.file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Close releases the workbook's temporary resources.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// WriteWorkbook writes tables as a workbook to w.
func WriteWorkbook(w io.Writer, tables []*domain.StatisticalTable) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	for _, t := range tables {
		if _, err := wb.AddTable(t); err != nil {
			return err
		}
	}
	return wb.Write(w)
}

// SaveWorkbook writes tables as a workbook to path, creating its directory.
func SaveWorkbook(path string, tables []*domain.StatisticalTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook file: %w", err)
	}
	if err := WriteWorkbook(f, tables); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	slog.Info("Wrote workbook",
		slog.String("path", path),
		slog.Int("tables", len(tables)))
	return f.Close()
}

package exporter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"lisstat/internal/config"
	"lisstat/pkg/contracts/domain"
)

// Column headers of the exported record layouts.
var (
	RowHeaders = []string{
		"interval", "per_unit", "absolute",
		"frequency_discrete", "frequency_cumulative", "probability",
	}
	IndexHeaders = []string{
		"kind", "primary", "secondary", "matched_primary", "matched_secondary", "summary", "base", "rows",
		"grouped_mean", "grouped_variance", "grouped_std_dev",
		"ungrouped_mean", "ungrouped_variance", "ungrouped_std_dev",
	}
	VariableHeaders  = []string{"kind", "name1", "name2"}
	ShotHeaders      = []string{"kind", "name1", "name2", "peak", "shot"}
	SwitchingHeaders = []string{"simulation", "phase_a", "phase_b", "phase_c"}
)

// TableExporter writes decoded report data as CSV files under the exports directory.
type TableExporter struct {
	csvWriter *CSVWriter
}

// NewTableExporter creates a new table exporter
func NewTableExporter(paths *config.Paths) *TableExporter {
	return &TableExporter{csvWriter: NewCSVWriter(paths)}
}

// ExportTable writes the rows of table to filePath.
func (e *TableExporter) ExportTable(table *domain.StatisticalTable, filePath string) error {
	if err := e.csvWriter.WriteSimpleCSV(filePath, RowHeaders, RowRecords(table)); err != nil {
		return fmt.Errorf("failed to export table %s: %w", TableLabel(table), err)
	}
	return nil
}

// ExportTables writes each table to its own file in dir plus an index.csv
// describing all of them. It returns the file names written, index first.
func (e *TableExporter) ExportTables(tables []*domain.StatisticalTable, dir string) ([]string, error) {
	if err := e.csvWriter.WriteSimpleCSV(filepath.Join(dir, "index.csv"), IndexHeaders, IndexRecords(tables)); err != nil {
		return nil, fmt.Errorf("failed to export table index: %w", err)
	}
	written := []string{"index.csv"}
	used := map[string]bool{"index": true}
	for _, t := range tables {
		name := uniqueName(TableFileName(t), used, 0)
		if err := e.ExportTable(t, filepath.Join(dir, name+".csv")); err != nil {
			return written, err
		}
		written = append(written, name+".csv")
	}
	return written, nil
}

// ExportVariables writes a caption listing.
func (e *TableExporter) ExportVariables(names []domain.VariableName, filePath string) error {
	return e.csvWriter.WriteSimpleCSV(filePath, VariableHeaders, VariableRecords(names))
}

// ExportShots writes a shot event listing.
func (e *TableExporter) ExportShots(events []domain.ShotEvent, filePath string) error {
	return e.csvWriter.WriteSimpleCSV(filePath, ShotHeaders, ShotRecords(events))
}

// ExportSwitchingTimes writes one record per simulation.
func (e *TableExporter) ExportSwitchingTimes(times *domain.SwitchingTimes, filePath string) error {
	return e.csvWriter.WriteSimpleCSV(filePath, SwitchingHeaders, SwitchingRecords(times))
}

// RowRecords lays the rows of table out under RowHeaders.
func RowRecords(table *domain.StatisticalTable) [][]string {
	records := make([][]string, 0, len(table.Rows))
	for _, r := range table.Rows {
		records = append(records, []string{
			formatInt(r.Interval),
			formatFloat(r.PerUnit),
			formatFloat(r.Absolute),
			formatInt(r.FrequencyDiscrete),
			formatInt(r.FrequencyCumulative),
			formatFloat(r.Probability),
		})
	}
	return records
}

// IndexRecords describes each table on one line under IndexHeaders.
func IndexRecords(tables []*domain.StatisticalTable) [][]string {
	records := make([][]string, 0, len(tables))
	for _, t := range tables {
		records = append(records, []string{
			string(t.Kind),
			t.Primary,
			t.Secondary,
			t.MatchedPrimary,
			t.MatchedSecondary,
			formatBool(t.Summary),
			formatFloat(t.Base),
			formatInt(len(t.Rows)),
			formatFloat(t.Grouped.Mean),
			formatFloat(t.Grouped.Variance),
			formatFloat(t.Grouped.StdDev),
			formatFloat(t.Ungrouped.Mean),
			formatFloat(t.Ungrouped.Variance),
			formatFloat(t.Ungrouped.StdDev),
		})
	}
	return records
}

// VariableRecords lays captions out under VariableHeaders.
func VariableRecords(names []domain.VariableName) [][]string {
	records := make([][]string, 0, len(names))
	for _, n := range names {
		records = append(records, []string{string(n.Kind), n.Name1, n.Name2})
	}
	return records
}

// ShotRecords lays shot events out under ShotHeaders.
func ShotRecords(events []domain.ShotEvent) [][]string {
	records := make([][]string, 0, len(events))
	for _, ev := range events {
		records = append(records, []string{string(ev.Kind), ev.Name1, ev.Name2, formatFloat(ev.Peak), formatInt(ev.Shot)})
	}
	return records
}

// SwitchingRecords numbers simulations from 1.
func SwitchingRecords(times *domain.SwitchingTimes) [][]string {
	records := make([][]string, 0, times.Shots())
	for i := 0; i < times.Shots(); i++ {
		records = append(records, []string{
			formatInt(i + 1),
			formatFloat(times.PhaseA[i]),
			formatFloat(times.PhaseB[i]),
			formatFloat(times.PhaseC[i]),
		})
	}
	return records
}

// TableLabel is a short human readable name such as "voltage BUSA" or
// "current summary XGU50-TRPYD".
func TableLabel(t *domain.StatisticalTable) string {
	var b strings.Builder
	b.WriteString(string(t.Kind))
	if t.Summary {
		b.WriteString(" summary")
	}
	b.WriteByte(' ')
	b.WriteString(strings.TrimSpace(t.Primary))
	if t.Secondary != "" {
		b.WriteByte('-')
		b.WriteString(strings.TrimSpace(t.Secondary))
	}
	return b.String()
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// TableFileName is TableLabel made safe for file and sheet names.
func TableFileName(t *domain.StatisticalTable) string {
	return strings.Trim(unsafeName.ReplaceAllString(TableLabel(t), "_"), "_")
}

// uniqueName appends _2, _3, ... until name is unused, comparing without
// case. A positive limit truncates the base so the suffixed name fits.
func uniqueName(name string, used map[string]bool, limit int) string {
	candidate := clip(name, limit)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		candidate = clip(name, limit-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func clip(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

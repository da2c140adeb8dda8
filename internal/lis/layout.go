package lis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lisstat/pkg/contracts/domain"
)

// Column is a half-open byte range [Start, End) of a fixed-width line.
type Column struct {
	Name       string
	Start, End int
}

var errShortLine = errors.New("line too short")

// slice returns the trimmed field text. The line must reach End.
func (c Column) slice(line string) (string, error) {
	if len(line) < c.End {
		return "", fmt.Errorf("%w: need %d bytes, have %d", errShortLine, c.End, len(line))
	}
	return strings.TrimSpace(line[c.Start:c.End]), nil
}

func (c Column) parseFloat(line string) (float64, error) {
	s, err := c.slice(line)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

func (c Column) parseInt(line string) (int, error) {
	s, err := c.slice(line)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// Offset tables. Every fixed-column position the decoder relies on lives here.
var (
	// RowLayout is the six-field data row of a distribution table.
	RowLayout = struct {
		Interval, PerUnit, Absolute, FrequencyDiscrete, FrequencyCumulative, Probability Column
	}{
		Interval:            Column{"interval", 0, 10},
		PerUnit:             Column{"per_unit", 10, 30},
		Absolute:            Column{"absolute", 30, 50},
		FrequencyDiscrete:   Column{"frequency_discrete", 50, 64},
		FrequencyCumulative: Column{"frequency_cumulative", 64, 78},
		Probability:         Column{"probability", 78, 98},
	}

	// SummaryLayout is shared by the mean, variance and standard deviation lines.
	SummaryLayout = struct {
		Grouped, Ungrouped Column
	}{
		Grouped:   Column{"grouped", 40, 54},
		Ungrouped: Column{"ungrouped", 59, 73},
	}

	// PeakColumn holds the value of a "Peak extremum of subset" line.
	PeakColumn = Column{"peak", 40, 55}

	// SwitchingLayout holds the A, B and C closing instants of one simulation.
	SwitchingLayout = [3]Column{
		{"phase_a", 38, 51},
		{"phase_b", 58, 71},
		{"phase_c", 78, 91},
	}
)

// BaseColumn is where the normalisation base starts on a caption line; the
// value runs to the end of the line.
var BaseColumn = map[domain.TableKind]int{
	domain.TableKindVoltage: 114,
	domain.TableKindCurrent: 116,
}

// RowWidth is the minimum length of a data row.
const RowWidth = 98

// summaryLineNames labels the three lines after a table ending marker.
var summaryLineNames = [3]string{"mean", "variance", "std_dev"}

// DecodeRow decodes one data row. lineNo is only used for error reporting.
func DecodeRow(lineNo int, line string) (domain.TableRow, error) {
	var row domain.TableRow
	var err error

	fail := func(c Column, cause error) (domain.TableRow, error) {
		return domain.TableRow{}, &RowDecodeError{Line: lineNo, Field: c.Name, Text: line, Err: cause}
	}

	if len(line) < RowWidth {
		return fail(RowLayout.Probability, fmt.Errorf("%w: need %d bytes, have %d", errShortLine, RowWidth, len(line)))
	}
	if row.Interval, err = RowLayout.Interval.parseInt(line); err != nil {
		return fail(RowLayout.Interval, err)
	}
	if row.PerUnit, err = RowLayout.PerUnit.parseFloat(line); err != nil {
		return fail(RowLayout.PerUnit, err)
	}
	if row.Absolute, err = RowLayout.Absolute.parseFloat(line); err != nil {
		return fail(RowLayout.Absolute, err)
	}
	if row.FrequencyDiscrete, err = RowLayout.FrequencyDiscrete.parseInt(line); err != nil {
		return fail(RowLayout.FrequencyDiscrete, err)
	}
	if row.FrequencyCumulative, err = RowLayout.FrequencyCumulative.parseInt(line); err != nil {
		return fail(RowLayout.FrequencyCumulative, err)
	}
	if row.Probability, err = RowLayout.Probability.parseFloat(line); err != nil {
		return fail(RowLayout.Probability, err)
	}
	return row, nil
}

// DecodeSummary decodes the mean, variance and standard deviation lines.
// firstLine is the line number of lines[0].
func DecodeSummary(firstLine int, lines [3]string) (grouped, ungrouped domain.Statistics, err error) {
	var g, u [3]float64
	for i, line := range lines {
		if g[i], err = SummaryLayout.Grouped.parseFloat(line); err != nil {
			return grouped, ungrouped, &SummaryDecodeError{
				Line: firstLine + i, Field: SummaryLayout.Grouped.Name + "_" + summaryLineNames[i], Text: line, Err: err,
			}
		}
		if u[i], err = SummaryLayout.Ungrouped.parseFloat(line); err != nil {
			return grouped, ungrouped, &SummaryDecodeError{
				Line: firstLine + i, Field: SummaryLayout.Ungrouped.Name + "_" + summaryLineNames[i], Text: line, Err: err,
			}
		}
	}
	grouped = domain.Statistics{Mean: g[0], Variance: g[1], StdDev: g[2]}
	ungrouped = domain.Statistics{Mean: u[0], Variance: u[1], StdDev: u[2]}
	return grouped, ungrouped, nil
}

// DecodeBase reads the normalisation base printed at the end of a caption line.
func DecodeBase(kind domain.TableKind, lineNo int, line string) (float64, error) {
	col, ok := BaseColumn[kind]
	if !ok {
		return 0, &BaseDecodeError{Line: lineNo, Text: line, Err: fmt.Errorf("no base column for %s tables", kind)}
	}
	if len(line) <= col {
		return 0, &BaseDecodeError{Line: lineNo, Text: line, Err: fmt.Errorf("%w: base starts at column %d", errShortLine, col)}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line[col:]), 64)
	if err != nil {
		return 0, &BaseDecodeError{Line: lineNo, Text: line, Err: err}
	}
	return v, nil
}

// decodePeak reads the value of a "Peak extremum of subset" line.
func decodePeak(lineNo int, line string) (float64, error) {
	v, err := PeakColumn.parseFloat(line)
	if err != nil {
		return 0, &ShotDecodeError{Line: lineNo, Text: line, Err: fmt.Errorf("peak: %w", err)}
	}
	return v, nil
}

// decodeSwitchingTimes reads the three closing instants of one simulation.
func decodeSwitchingTimes(lineNo int, line string) ([3]float64, error) {
	var out [3]float64
	for i, col := range SwitchingLayout {
		v, err := col.parseFloat(line)
		if err != nil {
			return out, &ShotDecodeError{Line: lineNo, Text: line, Err: fmt.Errorf("%s: %w", col.Name, err)}
		}
		out[i] = v
	}
	return out, nil
}

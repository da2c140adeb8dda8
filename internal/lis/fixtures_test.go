package lis

import (
	"fmt"
	"strconv"
	"strings"

	"lisstat/pkg/contracts/domain"
)

// formatField renders v in its shortest exact form, right-aligned in width.
func formatField(v float64, width int) string {
	return fmt.Sprintf("%*s", width, strconv.FormatFloat(v, 'g', -1, 64))
}

// encodeRow lays a row out at the documented offsets.
func encodeRow(r domain.TableRow) string {
	return fmt.Sprintf("%10d%s%s%14d%14d%s",
		r.Interval,
		formatField(r.PerUnit, 20),
		formatField(r.Absolute, 20),
		r.FrequencyDiscrete,
		r.FrequencyCumulative,
		formatField(r.Probability, 20))
}

// encodeStatLine builds one of the three lines after an ending marker.
func encodeStatLine(label string, grouped, ungrouped float64) string {
	return fmt.Sprintf("%-40s%s     %s", label, formatField(grouped, 14), formatField(ungrouped, 14))
}

func padName(name string) string {
	return fmt.Sprintf("%-6s", name)
}

func voltageCaption(node string, base float64) string {
	caption := fmt.Sprintf(`Statistical distribution of peak voltage at node  "%s".   Base voltage for per unit printout`, padName(node))
	return fmt.Sprintf("%-*s%16s", BaseColumn[domain.TableKindVoltage], caption, strconv.FormatFloat(base, 'E', 8, 64))
}

func currentCaption(from, to string, base float64) string {
	caption := fmt.Sprintf(`Statistical distribution of peak current  for branch  "%s"  to  "%s".  Base current`, padName(from), padName(to))
	return fmt.Sprintf("%-*s%16s", BaseColumn[domain.TableKindCurrent], caption, strconv.FormatFloat(base, 'E', 8, 64))
}

func energyCaption(from, to string) string {
	return fmt.Sprintf(`Statistical distribution of peak energy   for branch  "%s"  to  "%s".  Base energy   1.0`, padName(from), padName(to))
}

const endingLine = "Summary of preceding table follows:   Grouped data         Ungrouped data"

// tableFixture is the body of one distribution table.
type tableFixture struct {
	rows      []domain.TableRow
	grouped   domain.Statistics
	ungrouped domain.Statistics
}

func sampleTable(seed int) tableFixture {
	rows := make([]domain.TableRow, 3)
	cum := 0
	for i := range rows {
		freq := seed + i + 1
		cum += freq
		rows[i] = domain.TableRow{
			Interval:            i + 1,
			PerUnit:             1.0 + 0.125*float64(i) + float64(seed)/64,
			Absolute:            81649.658 * (1.0 + 0.125*float64(i)),
			FrequencyDiscrete:   freq,
			FrequencyCumulative: cum,
			Probability:         0.25 * float64(i+1),
		}
	}
	return tableFixture{
		rows:      rows,
		grouped:   domain.Statistics{Mean: float64(seed) + 0.5, Variance: 0.0025, StdDev: 0.05},
		ungrouped: domain.Statistics{Mean: float64(seed) + 0.25, Variance: 0.0016, StdDev: 0.04},
	}
}

// reportBuilder assembles synthetic list reports line by line.
type reportBuilder struct {
	lines []string
}

func (b *reportBuilder) add(lines ...string) *reportBuilder {
	b.lines = append(b.lines, lines...)
	return b
}

func (b *reportBuilder) filler(n int, text string) *reportBuilder {
	for i := 0; i < n; i++ {
		b.lines = append(b.lines, fmt.Sprintf("%s %d", text, i+1))
	}
	return b
}

// table appends a caption, two column header lines, rows, ending marker and statistics.
func (b *reportBuilder) table(caption string, t tableFixture) *reportBuilder {
	b.add(caption,
		"  Interval   voltage in     voltage in      Frequency     Cumulative      Per cent",
		"   number    per unit       physical units  (density)     frequency       .GE. current value")
	for _, r := range t.rows {
		b.add(encodeRow(r))
	}
	b.add(endingLine,
		encodeStatLine("                                   Mean", t.grouped.Mean, t.ungrouped.Mean),
		encodeStatLine("                               Variance", t.grouped.Variance, t.ungrouped.Variance),
		encodeStatLine("                     Standard deviation", t.grouped.StdDev, t.ungrouped.StdDev))
	return b
}

// summaryBanner appends the blank line and 7 banner lines that separate the
// C phase table from the three-phase SUMMARY rows.
func (b *reportBuilder) summaryBanner() *reportBuilder {
	b.add("")
	for i := 0; i < summaryBannerLines; i++ {
		b.add(strings.Repeat("SUMMARY   ", 8))
	}
	return b
}

// summaryBody appends rows, marker and statistics without caption or headers.
func (b *reportBuilder) summaryBody(t tableFixture) *reportBuilder {
	for _, r := range t.rows {
		b.add(encodeRow(r))
	}
	b.add(endingLine,
		encodeStatLine("Mean", t.grouped.Mean, t.ungrouped.Mean),
		encodeStatLine("Variance", t.grouped.Variance, t.ungrouped.Variance),
		encodeStatLine("Standard deviation", t.grouped.StdDev, t.ungrouped.StdDev))
	return b
}

func (b *reportBuilder) bytes() []byte {
	return []byte(strings.Join(b.lines, "\n") + "\n")
}

func (b *reportBuilder) source() Source {
	return BytesSource("synthetic.lis", b.bytes())
}

// threePhaseReport builds per-phase voltage tables for prefix followed by the SUMMARY table.
func threePhaseReport(prefix string, summary tableFixture) *reportBuilder {
	b := &reportBuilder{}
	b.filler(5, "preamble")
	b.table(voltageCaption(prefix+"A", 100.0), sampleTable(10))
	b.filler(2, "between phases")
	b.table(voltageCaption(prefix+"B", 101.0), sampleTable(20))
	b.filler(2, "between phases")
	b.table(voltageCaption(prefix+"C", 102.0), sampleTable(30))
	b.summaryBanner()
	b.summaryBody(summary)
	b.filler(3, "trailer")
	return b
}

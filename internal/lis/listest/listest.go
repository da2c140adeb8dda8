// Package listest builds synthetic list reports for tests of the packages
// layered on top of lis.
package listest

import (
	"fmt"
	"strconv"
	"strings"

	"lisstat/internal/lis"
	"lisstat/pkg/contracts/domain"
)

const endingLine = "Summary of preceding table follows:   Grouped data         Ungrouped data"

// Table is the body of one distribution table.
type Table struct {
	Rows      []domain.TableRow
	Grouped   domain.Statistics
	Ungrouped domain.Statistics
}

// SampleTable returns a three row table whose values depend on seed. All
// values survive a shortest-representation round trip.
func SampleTable(seed int) Table {
	rows := make([]domain.TableRow, 3)
	cum := 0
	for i := range rows {
		freq := seed + i + 1
		cum += freq
		rows[i] = domain.TableRow{
			Interval:            i + 1,
			PerUnit:             1.0 + 0.125*float64(i) + float64(seed)/64,
			Absolute:            1024 * (1.0 + 0.125*float64(i)),
			FrequencyDiscrete:   freq,
			FrequencyCumulative: cum,
			Probability:         0.25 * float64(i+1),
		}
	}
	return Table{
		Rows:      rows,
		Grouped:   domain.Statistics{Mean: float64(seed) + 0.5, Variance: 0.0025, StdDev: 0.05},
		Ungrouped: domain.Statistics{Mean: float64(seed) + 0.25, Variance: 0.0016, StdDev: 0.04},
	}
}

// Builder assembles a report line by line.
type Builder struct {
	lines []string
}

// Add appends raw lines.
func (b *Builder) Add(lines ...string) *Builder {
	b.lines = append(b.lines, lines...)
	return b
}

// Filler appends n numbered lines of text.
func (b *Builder) Filler(n int, text string) *Builder {
	for i := 0; i < n; i++ {
		b.lines = append(b.lines, fmt.Sprintf("%s %d", text, i+1))
	}
	return b
}

// VoltageTable appends a per-phase voltage table for node.
func (b *Builder) VoltageTable(node string, base float64, t Table) *Builder {
	return b.table(VoltageCaption(node, base), t, "voltage")
}

// CurrentTable appends a current table for the branch from -> to.
func (b *Builder) CurrentTable(from, to string, base float64, t Table) *Builder {
	return b.table(CurrentCaption(from, to, base), t, "current")
}

func (b *Builder) table(caption string, t Table, quantity string) *Builder {
	b.Add(caption,
		fmt.Sprintf("  Interval   %-7s in     %-7s in      Frequency     Cumulative      Per cent", quantity, quantity),
		"   number    per unit       physical units  (density)     frequency       .GE. current value")
	return b.body(t)
}

func (b *Builder) body(t Table) *Builder {
	for _, r := range t.Rows {
		b.Add(EncodeRow(r))
	}
	return b.Add(endingLine,
		statLine("Mean", t.Grouped.Mean, t.Ungrouped.Mean),
		statLine("Variance", t.Grouped.Variance, t.Ungrouped.Variance),
		statLine("Standard deviation", t.Grouped.StdDev, t.Ungrouped.StdDev))
}

// ThreePhaseVoltage appends A, B and C tables for prefix and the SUMMARY
// table that follows them.
func (b *Builder) ThreePhaseVoltage(prefix string, summary Table) *Builder {
	b.VoltageTable(prefix+"A", 100, SampleTable(10))
	b.Filler(2, "between phases")
	b.VoltageTable(prefix+"B", 101, SampleTable(20))
	b.Filler(2, "between phases")
	b.VoltageTable(prefix+"C", 102, SampleTable(30))
	b.Add("")
	for i := 0; i < 7; i++ {
		b.Add(strings.Repeat("SUMMARY   ", 8))
	}
	return b.body(summary)
}

// PeakShot appends a statistical output header with its peak and shot lines.
// An empty to names a node voltage.
func (b *Builder) PeakShot(from, to string, peak float64, shot int) *Builder {
	header := "Statistical output of  node  voltage"
	if to != "" {
		header = "Statistical output of branch current"
	}
	return b.Add(header,
		fmt.Sprintf("      Peak extremum of subset has value %15s", field(peak, 15)),
		fmt.Sprintf(`      simulation %3d  for the variable having names  "%s"  and  "%s".`, shot, pad(from), pad(to)))
}

// SwitchingTimes appends the random closing instants of one shot.
func (b *Builder) SwitchingTimes(shot int, a, bt, c float64) *Builder {
	return b.Add(
		fmt.Sprintf("             Random switching times for simulation number %3d", shot),
		fmt.Sprintf("%38s%s%7s%s%7s%s", "", field(a, 13), "", field(bt, 13), "", field(c, 13)))
}

// Bytes returns the report text.
func (b *Builder) Bytes() []byte {
	return []byte(strings.Join(b.lines, "\n") + "\n")
}

// Source wraps the report as a lis.Source.
func (b *Builder) Source(name string) lis.Source {
	return lis.BytesSource(name, b.Bytes())
}

// EncodeRow lays a row out at the fixed column offsets.
func EncodeRow(r domain.TableRow) string {
	return fmt.Sprintf("%10d%s%s%14d%14d%s",
		r.Interval,
		field(r.PerUnit, 20),
		field(r.Absolute, 20),
		r.FrequencyDiscrete,
		r.FrequencyCumulative,
		field(r.Probability, 20))
}

// VoltageCaption is the caption line of a voltage table.
func VoltageCaption(node string, base float64) string {
	caption := fmt.Sprintf(`Statistical distribution of peak voltage at node  "%s".   Base voltage for per unit printout`, pad(node))
	return fmt.Sprintf("%-*s%16s", lis.BaseColumn[domain.TableKindVoltage], caption, strconv.FormatFloat(base, 'E', 8, 64))
}

// CurrentCaption is the caption line of a current table.
func CurrentCaption(from, to string, base float64) string {
	caption := fmt.Sprintf(`Statistical distribution of peak current  for branch  "%s"  to  "%s".  Base current`, pad(from), pad(to))
	return fmt.Sprintf("%-*s%16s", lis.BaseColumn[domain.TableKindCurrent], caption, strconv.FormatFloat(base, 'E', 8, 64))
}

// statLine right-aligns label so the values land in the grouped and
// ungrouped columns.
func statLine(label string, grouped, ungrouped float64) string {
	return fmt.Sprintf("%39s %s     %s", label, field(grouped, 14), field(ungrouped, 14))
}

func field(v float64, width int) string {
	return fmt.Sprintf("%*s", width, strconv.FormatFloat(v, 'g', -1, 64))
}

func pad(name string) string {
	return fmt.Sprintf("%-6s", name)
}

// Sample report contents.
var (
	SampleSummary = SampleTable(40)
	SampleCurrent = SampleTable(5)
)

// SampleReport is a small but complete report: an input card section, three
// phase voltage tables for BUS with their SUMMARY, a current table from SRCA
// to LOADA, two peak shots and two sets of switching times.
func SampleReport() *Builder {
	b := &Builder{}
	b.Filler(3, "preamble")
	b.Add("Descriptive interpretation of input data cards.",
		"Comment card.                                        |C data case for tests",
		"Misc. data.                                          |  5.0E-6   0.02",
		"")
	b.Add("The data case now ready to be solved is a statistical overvoltage study")
	b.SwitchingTimes(1, 0.0125, 0.015625, 0.02)
	b.SwitchingTimes(2, 0.25, 0.375, 0.5)
	b.Add(" MAIN20 dumps OVER12 dice seed")
	b.Add("MODTAB, AINCR, XMAXMX")
	b.ThreePhaseVoltage("BUS", SampleSummary)
	b.Filler(2, "between tables")
	b.CurrentTable("SRCA", "LOADA", 2048, SampleCurrent)
	b.PeakShot("BUSA", "", 1.875, 17)
	b.PeakShot("SRCA", "LOADA", 2500, 3)
	b.Filler(2, "trailer")
	return b
}

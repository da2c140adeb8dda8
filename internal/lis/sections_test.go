package lis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisstat/pkg/contracts/domain"
)

func sectionedReport() *reportBuilder {
	b := &reportBuilder{}
	b.add("Alternative Transients Program (ATP), GNU Linux or DOS.")
	b.add("Descriptive interpretation of input data cards.  Input data card images are shown below, all 80 columns, character by character",
		"Comment card.  NUMDCD = 1. |C data:example",
		"no card here",
		"Misc. data.                |  5.0E-6   0.02",
		"")
	b.add("between sections")
	b.add("List of input elements that are connected to each node.  Only the physical connections",
		"  BUSA  |TRPYDA*",
		"--------------+------------------------------")
	b.add("Column headings for the  12 EMTP output variables follow.  These are divided among",
		"  First  6 output variables are electric-network node voltages",
		"Blank card terminating all plot cards.")
	b.add("MODTAB, AINCR, XMAXMX = 1  0.05  2.0")
	b.table(voltageCaption("BUSA", 100), sampleTable(1))
	b.add(" .... Questionable Kolmogorov-Smirnov test result")
	return b
}

func TestSegment(t *testing.T) {
	segs, err := SegmentReport(context.Background(), sectionedReport().source())
	require.NoError(t, err)

	assert.Equal(t, []Section{
		SectionInputCards,
		SectionNodeConnections,
		SectionOutputVariables,
		SectionStatisticalResults,
	}, segs.Present())

	assert.Len(t, segs.Lines(SectionInputCards), 4)
	assert.Equal(t, []string{"C data:example", "  5.0E-6   0.02"}, segs.InputCards())
	assert.Equal(t, 12, segs.OutputVariableCount())
	assert.Len(t, segs.Lines(SectionNodeConnections), 2)
	assert.Len(t, segs.Lines(SectionOutputVariables), 2)
	assert.Empty(t, segs.Lines(SectionPhasorKnownVoltage))
}

func TestSegment_BeginMarkerSwitchesSection(t *testing.T) {
	b := &reportBuilder{}
	b.add("Descriptive interpretation of input data cards.",
		"card |one",
		"List of input elements that are connected to each node.",
		"  node line",
		"")

	segs, err := SegmentReport(context.Background(), b.source())
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, segs.InputCards())
	assert.Equal(t, []string{
		"List of input elements that are connected to each node.",
		"  node line",
		"",
	}, segs.Lines(SectionNodeConnections))
}

func TestSegments_SourceFeedsOtherScans(t *testing.T) {
	segs, err := SegmentReport(context.Background(), sectionedReport().source())
	require.NoError(t, err)

	src := segs.Source(SectionStatisticalResults)
	assert.Equal(t, "synthetic.lis#statistical_results", src.Name())

	names, err := ListStatisticalVariableNames(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []domain.VariableName{{Kind: domain.TableKindVoltage, Name1: "BUSA"}}, names)

	table, err := ExtractVoltageTable(context.Background(), src, "BUSA", false)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(1).rows, table.Rows)

	assert.Len(t, AllSections(), 8)
}

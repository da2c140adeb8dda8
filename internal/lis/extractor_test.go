package lis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "lisstat/internal/errors"
	"lisstat/internal/shared/testutil"
	"lisstat/pkg/contracts/domain"
)

// countingSource records how often it is opened.
type countingSource struct {
	Source
	mu    sync.Mutex
	opens int
}

func (s *countingSource) Open() (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
	return s.Source.Open()
}

func quietExtractor() *Extractor {
	return NewExtractor(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestExtractVoltageTable_SinglePhase(t *testing.T) {
	fx := sampleTable(10)
	b := &reportBuilder{}
	b.filler(3, "header")
	b.table(voltageCaption("BUSA", 100.0), fx)
	b.filler(2, "trailer")

	table, err := quietExtractor().ExtractVoltageTable(context.Background(), b.source(), "BUSA", false)
	require.NoError(t, err)

	assert.Equal(t, domain.TableKindVoltage, table.Kind)
	assert.Equal(t, "BUSA", table.Primary)
	assert.Equal(t, "BUSA  ", table.MatchedPrimary)
	assert.False(t, table.Summary)
	assert.Equal(t, 100.0, table.Base)
	assert.Equal(t, fx.rows, table.Rows)
	assert.Equal(t, fx.grouped, table.Grouped)
	assert.Equal(t, fx.ungrouped, table.Ungrouped)
}

func TestExtractVoltageTable_FirstPhaseWins(t *testing.T) {
	b := threePhaseReport("BUS", sampleTable(99))

	table, err := quietExtractor().ExtractVoltageTable(context.Background(), b.source(), "BUSC", false)
	require.NoError(t, err)

	assert.Equal(t, "BUSA  ", table.MatchedPrimary)
	assert.Equal(t, 100.0, table.Base)
	assert.Equal(t, sampleTable(10).rows, table.Rows)
}

func TestExtractVoltageTable_Summary(t *testing.T) {
	summary := sampleTable(99)
	b := threePhaseReport("BUS", summary)

	table, err := quietExtractor().ExtractVoltageTable(context.Background(), b.source(), "BUSB", true)
	require.NoError(t, err)

	assert.True(t, table.Summary)
	assert.Equal(t, "BUSC  ", table.MatchedPrimary)
	assert.Equal(t, 102.0, table.Base, "base comes from the C phase caption")
	assert.Equal(t, summary.rows, table.Rows)
	assert.Equal(t, summary.grouped, table.Grouped)
	assert.Equal(t, summary.ungrouped, table.Ungrouped)
}

func TestExtractVoltageTable_SummaryWarnsOnPhaseOrder(t *testing.T) {
	b := &reportBuilder{}
	b.table(voltageCaption("BUSB", 101), sampleTable(20))
	b.table(voltageCaption("BUSA", 100), sampleTable(10))
	b.table(voltageCaption("BUSC", 102), sampleTable(30))
	b.summaryBanner()
	b.summaryBody(sampleTable(99))

	logger, logs := testutil.NewTestLogger(t)
	e := NewExtractor(WithLogger(logger))

	table, err := e.ExtractVoltageTable(context.Background(), b.source(), "BUSA", true)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(99).rows, table.Rows)

	rec := testutil.AssertLogContains(t, logs, slog.LevelWarn, "phase caption out of sequence")
	assert.Equal(t, "lis_extractor", rec.Attrs["component"])
	assert.Equal(t, padName("BUSB"), rec.Attrs["caption"])
	assert.Equal(t, "A", rec.Attrs["expected_phase"])
	assert.Len(t, logs.Find(slog.LevelWarn, "out of sequence"), 2, "BUSA and BUSB are both out of place")
}

func TestExtractCurrentTable(t *testing.T) {
	fx := sampleTable(5)
	b := &reportBuilder{}
	b.filler(2, "header")
	b.table(currentCaption("XGU50A", "OTHERA", 900), sampleTable(1))
	b.table(voltageCaption("XGU50A", 100), sampleTable(2))
	b.table(currentCaption("XGU50A", "TRPYDA", 1500), fx)

	table, err := quietExtractor().ExtractCurrentTable(context.Background(), b.source(), "XGU50B", "TRPYDC", false)
	require.NoError(t, err)

	assert.Equal(t, domain.TableKindCurrent, table.Kind)
	assert.Equal(t, "XGU50B", table.Primary)
	assert.Equal(t, "TRPYDC", table.Secondary)
	assert.Equal(t, "XGU50A", table.MatchedPrimary)
	assert.Equal(t, "TRPYDA", table.MatchedSecondary)
	assert.Equal(t, 1500.0, table.Base)
	assert.Equal(t, fx.rows, table.Rows)
}

func TestExtractCurrentTable_Summary(t *testing.T) {
	summary := sampleTable(77)
	b := &reportBuilder{}
	b.filler(2, "header")
	b.table(currentCaption("XGU50A", "TRPYDA", 1500), sampleTable(1))
	b.table(currentCaption("XGU50B", "TRPYDB", 1501), sampleTable(2))
	b.table(currentCaption("XGU50C", "TRPYDC", 1502), sampleTable(3))
	b.summaryBanner()
	b.summaryBody(summary)

	table, err := quietExtractor().ExtractCurrentTable(context.Background(), b.source(), "XGU50A", "TRPYDA", true)
	require.NoError(t, err)

	assert.True(t, table.Summary)
	assert.Equal(t, "XGU50C", table.MatchedPrimary)
	assert.Equal(t, "TRPYDC", table.MatchedSecondary)
	assert.Equal(t, 1502.0, table.Base)
	assert.Equal(t, summary.rows, table.Rows)
	assert.Equal(t, summary.grouped, table.Grouped)
	assert.Equal(t, summary.ungrouped, table.Ungrouped)
}

func TestExtractTable_SummaryIgnoresOtherCaptions(t *testing.T) {
	summary := sampleTable(88)

	t.Run("voltage", func(t *testing.T) {
		b := &reportBuilder{}
		b.table(voltageCaption("BUSA", 100), sampleTable(10))
		b.table(voltageCaption("GENA", 500), sampleTable(11))
		b.table(currentCaption("BUSA", "GENA", 900), sampleTable(12))
		b.table(voltageCaption("BUSB", 101), sampleTable(20))
		b.table(voltageCaption("GENB", 501), sampleTable(21))
		b.table(voltageCaption("BUSC", 102), sampleTable(30))
		b.summaryBanner()
		b.summaryBody(summary)

		logger, logs := testutil.NewTestLogger(t)
		table, err := NewExtractor(WithLogger(logger)).ExtractVoltageTable(context.Background(), b.source(), "BUSA", true)
		require.NoError(t, err)

		assert.Equal(t, 102.0, table.Base)
		assert.Equal(t, summary.rows, table.Rows)
		assert.Empty(t, logs.Find(slog.LevelWarn, "out of sequence"))
	})

	t.Run("current", func(t *testing.T) {
		b := &reportBuilder{}
		b.table(currentCaption("XGU50A", "TRPYDA", 1500), sampleTable(1))
		b.table(voltageCaption("XGU50A", 100), sampleTable(4))
		b.table(currentCaption("OTHERA", "TRPYDA", 700), sampleTable(5))
		b.table(currentCaption("XGU50A", "OTHERA", 800), sampleTable(6))
		b.table(currentCaption("XGU50B", "TRPYDB", 1501), sampleTable(2))
		b.table(currentCaption("XGU50C", "TRPYDC", 1502), sampleTable(3))
		b.summaryBanner()
		b.summaryBody(summary)

		table, err := quietExtractor().ExtractCurrentTable(context.Background(), b.source(), "XGU50B", "TRPYDB", true)
		require.NoError(t, err)

		assert.Equal(t, 1502.0, table.Base)
		assert.Equal(t, summary.rows, table.Rows)
		assert.Equal(t, summary.grouped, table.Grouped)
	})
}

func TestExtractTable_NotFound(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		req  domain.TableRequest
	}{
		{
			name: "unknown node",
			src:  threePhaseReport("BUS", sampleTable(99)).source(),
			req:  domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "NODEA"},
		},
		{
			name: "voltage caption does not satisfy current request",
			src:  threePhaseReport("BUS", sampleTable(99)).source(),
			req:  domain.TableRequest{Kind: domain.TableKindCurrent, Primary: "BUSA", Secondary: "BUSB"},
		},
		{
			name: "summary without C phase",
			src: (&reportBuilder{}).
				table(voltageCaption("BUSA", 100), sampleTable(10)).
				table(voltageCaption("BUSB", 101), sampleTable(20)).
				source(),
			req: domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA", Summary: true},
		},
		{
			name: "empty report",
			src:  BytesSource("empty.lis", nil),
			req:  domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := quietExtractor().ExtractTable(context.Background(), tt.src, tt.req)
			assert.Nil(t, table)

			var nf *TableNotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.req.Kind, nf.Kind)
			assert.Equal(t, tt.req.Summary, nf.Summary)
			assert.Equal(t, apperrors.ErrTypeNotFound, apperrors.TypeOf(err))
		})
	}
}

func TestExtractTable_NameTooLongBeforeIO(t *testing.T) {
	src := &countingSource{Source: threePhaseReport("BUS", sampleTable(99)).source()}

	_, err := quietExtractor().ExtractCurrentTable(context.Background(), src, "BUSA", "LONGNAMEA", false)
	var tooLong *NameTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, "LONGNAME", tooLong.Prefix)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
	assert.Zero(t, src.opens)
}

func TestExtractTable_UnsupportedKind(t *testing.T) {
	_, err := quietExtractor().ExtractTable(context.Background(), BytesSource("x", nil),
		domain.TableRequest{Kind: domain.TableKindEnergy, Primary: "SWA", Secondary: "SWB"})
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
}

func TestExtractTable_Truncated(t *testing.T) {
	fx := sampleTable(1)

	tests := []struct {
		name  string
		build func() *reportBuilder
		req   domain.TableRequest
		stage string
	}{
		{
			name: "inside rows",
			build: func() *reportBuilder {
				return (&reportBuilder{}).add(voltageCaption("BUSA", 1), "h1", "h2", encodeRow(fx.rows[0]))
			},
			req:   domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA"},
			stage: "table rows",
		},
		{
			name: "inside header",
			build: func() *reportBuilder {
				return (&reportBuilder{}).add(voltageCaption("BUSA", 1), "h1")
			},
			req:   domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA"},
			stage: "table header",
		},
		{
			name: "inside statistics",
			build: func() *reportBuilder {
				return (&reportBuilder{}).add(voltageCaption("BUSA", 1), "h1", "h2", encodeRow(fx.rows[0]), endingLine,
					encodeStatLine("Mean", 1, 1))
			},
			req:   domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA"},
			stage: "table statistics",
		},
		{
			name: "inside summary preamble",
			build: func() *reportBuilder {
				b := &reportBuilder{}
				b.table(voltageCaption("BUSA", 100), fx)
				b.table(voltageCaption("BUSB", 101), fx)
				b.add(voltageCaption("BUSC", 102), "h1", "h2", endingLine, "mean", "variance")
				return b
			},
			req:   domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA", Summary: true},
			stage: "phase C trailer",
		},
		{
			name: "inside summary banner",
			build: func() *reportBuilder {
				b := &reportBuilder{}
				b.table(voltageCaption("BUSA", 100), fx)
				b.table(voltageCaption("BUSB", 101), fx)
				b.table(voltageCaption("BUSC", 102), fx)
				b.add("", "SUMMARY", "SUMMARY")
				return b
			},
			req:   domain.TableRequest{Kind: domain.TableKindVoltage, Primary: "BUSA", Summary: true},
			stage: "summary banner",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietExtractor().ExtractTable(context.Background(), tt.build().source(), tt.req)
			var trunc *TruncatedTableError
			require.ErrorAs(t, err, &trunc)
			assert.Equal(t, tt.stage, trunc.Stage)
			assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
		})
	}
}

func TestExtractTable_RowDecodeError(t *testing.T) {
	b := (&reportBuilder{}).add(voltageCaption("BUSA", 1), "h1", "h2", "     1   garbage")

	_, err := quietExtractor().ExtractVoltageTable(context.Background(), b.source(), "BUSA", false)
	var rowErr *RowDecodeError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 4, rowErr.Line)
}

func TestExtractTable_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietExtractor().ExtractVoltageTable(ctx, threePhaseReport("BUS", sampleTable(99)).source(), "BUSA", true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractTable_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.lis")
	require.NoError(t, os.WriteFile(path, threePhaseReport("BUS", sampleTable(99)).bytes(), 0o644))

	table, err := ExtractVoltageTable(context.Background(), FileSource(path), "BUSA", true)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(99).rows, table.Rows)

	_, err = ExtractVoltageTable(context.Background(), FileSource(filepath.Join(t.TempDir(), "missing.lis")), "BUSA", true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListVariableNames(t *testing.T) {
	b := &reportBuilder{}
	b.filler(2, "header")
	b.table(voltageCaption("BUSA", 1), sampleTable(1))
	b.table(currentCaption("XGU50A", "TRPYDA", 2), sampleTable(2))
	b.add(energyCaption("SWA", "SWB"))
	b.table(voltageCaption("UC", 1), sampleTable(3))

	names, err := ListStatisticalVariableNames(context.Background(), b.source())
	require.NoError(t, err)
	assert.Equal(t, []domain.VariableName{
		{Kind: domain.TableKindVoltage, Name1: "BUSA"},
		{Kind: domain.TableKindCurrent, Name1: "XGU50A", Name2: "TRPYDA"},
		{Kind: domain.TableKindEnergy, Name1: "SWA", Name2: "SWB"},
		{Kind: domain.TableKindVoltage, Name1: "UC"},
	}, names)

	// listed names are right-trimmed and feed straight back into extraction
	current, err := quietExtractor().ExtractCurrentTable(context.Background(), b.source(), names[1].Name1, names[1].Name2, false)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(2).rows, current.Rows)
	assert.Equal(t, padName("TRPYDA"), current.MatchedSecondary)

	names, err = ListStatisticalVariableNames(context.Background(), BytesSource("empty", nil))
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func peakLine(v float64) string {
	return fmt.Sprintf("      Peak extremum of subset has value %15s", formatField(v, 15))
}

func shotLine(shot int, n1, n2 string) string {
	return fmt.Sprintf(`      simulation %3d  for the variable having names  "%s"  and  "%s".`, shot, padName(n1), padName(n2))
}

func TestListShotEvents(t *testing.T) {
	b := &reportBuilder{}
	b.add("Statistical output of  node  voltage",
		peakLine(1.875),
		shotLine(17, "BUSA", ""))
	b.add("Statistical output of branch current", "not a peak line", "more text")
	b.add("Statistical output of branch current",
		peakLine(2500),
		shotLine(3, "XGU50A", "TRPYDA"))
	b.add("Statistical output of branch energy ",
		peakLine(0.5),
		shotLine(200, "SWA", "SWB"))

	events, err := ListPeakShotEvents(context.Background(), b.source())
	require.NoError(t, err)
	assert.Equal(t, []domain.ShotEvent{
		{Kind: domain.TableKindVoltage, Name1: "BUSA", Peak: 1.875, Shot: 17},
		{Kind: domain.TableKindCurrent, Name1: "XGU50A", Name2: "TRPYDA", Peak: 2500, Shot: 3},
		{Kind: domain.TableKindEnergy, Name1: "SWA", Name2: "SWB", Peak: 0.5, Shot: 200},
	}, events)
}

func TestListShotEvents_Errors(t *testing.T) {
	b := (&reportBuilder{}).add("Statistical output of  node  voltage", peakLine(1), "      simulation   x")
	_, err := ListPeakShotEvents(context.Background(), b.source())
	var shotErr *ShotDecodeError
	require.ErrorAs(t, err, &shotErr)
	assert.Equal(t, 3, shotErr.Line)

	b = (&reportBuilder{}).add("Statistical output of  node  voltage", peakLine(1))
	_, err = ListPeakShotEvents(context.Background(), b.source())
	var trunc *TruncatedTableError
	require.ErrorAs(t, err, &trunc)
	assert.Equal(t, "shot record", trunc.Stage)
}

func switchingLine(a, b, c float64) string {
	return fmt.Sprintf("%38s%s%7s%s%7s%s", "", formatField(a, 13), "", formatField(b, 13), "", formatField(c, 13))
}

func TestExtractSwitchingTimes(t *testing.T) {
	b := &reportBuilder{}
	b.filler(2, "header")
	b.add("             Random switching times for simulation number   1", switchingLine(0.0125, 0.015625, 0.02))
	b.add("unrelated")
	b.add("             Random switching times for simulation number   2", switchingLine(0.25, 0.375, 0.5))

	times, err := ExtractSwitchingTimes(context.Background(), b.source())
	require.NoError(t, err)
	assert.Equal(t, 2, times.Shots())
	assert.Equal(t, []float64{0.0125, 0.25}, times.PhaseA)
	assert.Equal(t, []float64{0.015625, 0.375}, times.PhaseB)
	assert.Equal(t, []float64{0.02, 0.5}, times.PhaseC)

	times, err = ExtractSwitchingTimes(context.Background(), BytesSource("none", []byte("nothing here\n")))
	require.NoError(t, err)
	assert.Zero(t, times.Shots())
	assert.NotNil(t, times.PhaseA)

	b = (&reportBuilder{}).add("             Random switching times for simulation number   1")
	_, err = ExtractSwitchingTimes(context.Background(), b.source())
	var trunc *TruncatedTableError
	require.ErrorAs(t, err, &trunc)
	assert.Equal(t, "switching times", trunc.Stage)
}

func TestBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	summary := sampleTable(99)
	src := &countingSource{Source: threePhaseReport("BUS", summary).source()}
	reqs := []domain.TableRequest{
		{Kind: domain.TableKindVoltage, Primary: "BUSA", Summary: true},
		{Kind: domain.TableKindVoltage, Primary: "BUSB"},
		{Kind: domain.TableKindVoltage, Primary: "NODEA"},
		{Kind: domain.TableKindCurrent, Primary: "BUSA", Secondary: "TOOLONGA"},
	}

	var seen []int
	results, err := NewExtractor(WithConcurrency(2), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
		Batch(context.Background(), src, reqs, func(r BatchResult) {
			seen = append(seen, r.Index)
		})
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, 3, src.opens, "name validation fails before the source is opened")

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, reqs[i], r.Request)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, summary.rows, results[0].Table.Rows)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 100.0, results[1].Table.Base)

	var nf *TableNotFoundError
	assert.ErrorAs(t, results[2].Err, &nf)
	assert.Nil(t, results[2].Table)
	var tooLong *NameTooLongError
	assert.ErrorAs(t, results[3].Err, &tooLong)
}

func TestBatch_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := quietExtractor().Batch(ctx, threePhaseReport("BUS", sampleTable(99)).source(),
		[]domain.TableRequest{{Kind: domain.TableKindVoltage, Primary: "BUSA"}}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, results)
}

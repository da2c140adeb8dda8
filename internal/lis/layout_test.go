package lis

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lisstat/pkg/contracts/domain"
)

func TestDecodeRow_RoundTrip(t *testing.T) {
	rows := []domain.TableRow{
		{Interval: 1, PerUnit: 1.0125, Absolute: 82670.278725, FrequencyDiscrete: 0, FrequencyCumulative: 0, Probability: 100},
		{Interval: 17, PerUnit: 1.4375, Absolute: 117371.383375, FrequencyDiscrete: 12, FrequencyCumulative: 187, Probability: 6.5},
		{Interval: 250, PerUnit: -0.333333333333, Absolute: -27216.5526, FrequencyDiscrete: 99999, FrequencyCumulative: 1234567, Probability: 1e-7},
	}
	for _, want := range rows {
		line := encodeRow(want)
		require.GreaterOrEqual(t, len(line), RowWidth)

		got, err := DecodeRow(1, line)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("row mismatch (-want +got):\n%s", diff)
		}

		again, err := DecodeRow(1, line)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestDecodeRow_Errors(t *testing.T) {
	valid := encodeRow(domain.TableRow{Interval: 3, PerUnit: 1.5, Absolute: 100, FrequencyDiscrete: 4, FrequencyCumulative: 9, Probability: 50})

	tests := []struct {
		name      string
		line      string
		wantField string
	}{
		{"short line", valid[:97], "probability"},
		{"empty line", "", "probability"},
		{"interval not numeric", "       abc" + valid[10:], "interval"},
		{"per unit not numeric", valid[:10] + strings.Repeat(" ", 17) + "x.y" + valid[30:], "per_unit"},
		{"frequency is a float", valid[:50] + "           4.5" + valid[64:], "frequency_discrete"},
		{"blank cumulative", valid[:64] + strings.Repeat(" ", 14) + valid[78:], "frequency_cumulative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRow(42, tt.line)
			var rowErr *RowDecodeError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 42, rowErr.Line)
			assert.Equal(t, tt.wantField, rowErr.Field)
		})
	}
}

func TestDecodeRow_ShortLineIsTyped(t *testing.T) {
	_, err := DecodeRow(1, "         1")
	assert.True(t, errors.Is(err, errShortLine))
}

func TestDecodeSummary(t *testing.T) {
	lines := [3]string{
		encodeStatLine("Mean", 1.1875, 1.19),
		encodeStatLine("Variance", 0.0025, 0.0016),
		encodeStatLine("Standard deviation", 0.05, 0.04),
	}
	grouped, ungrouped, err := DecodeSummary(10, lines)
	require.NoError(t, err)
	assert.Equal(t, domain.Statistics{Mean: 1.1875, Variance: 0.0025, StdDev: 0.05}, grouped)
	assert.Equal(t, domain.Statistics{Mean: 1.19, Variance: 0.0016, StdDev: 0.04}, ungrouped)

	lines[2] = "Standard deviation"
	_, _, err = DecodeSummary(10, lines)
	var sumErr *SummaryDecodeError
	require.ErrorAs(t, err, &sumErr)
	assert.Equal(t, 12, sumErr.Line)
	assert.Equal(t, "grouped_std_dev", sumErr.Field)

	lines[2] = encodeStatLine("Standard deviation", 0.05, 0)[:59] + "         n/a  "
	_, _, err = DecodeSummary(10, lines)
	require.ErrorAs(t, err, &sumErr)
	assert.Equal(t, "ungrouped_std_dev", sumErr.Field)
}

func TestDecodeBase(t *testing.T) {
	v, err := DecodeBase(domain.TableKindVoltage, 1, voltageCaption("BUSA", 408248.29))
	require.NoError(t, err)
	assert.InDelta(t, 408248.29, v, 1e-6)

	v, err = DecodeBase(domain.TableKindCurrent, 1, currentCaption("XGU50A", "TRPYDA", 1500))
	require.NoError(t, err)
	assert.Equal(t, 1500.0, v)

	var baseErr *BaseDecodeError
	_, err = DecodeBase(domain.TableKindVoltage, 7, `Statistical distribution of peak voltage at node  "BUSA  "`)
	require.ErrorAs(t, err, &baseErr)
	assert.Equal(t, 7, baseErr.Line)

	_, err = DecodeBase(domain.TableKindVoltage, 7, strings.Repeat(" ", 114)+"   1.0E+02 kV")
	require.ErrorAs(t, err, &baseErr)
	var numErr *strconv.NumError
	assert.ErrorAs(t, err, &numErr)

	_, err = DecodeBase(domain.TableKindEnergy, 7, energyCaption("AA", "BA"))
	require.ErrorAs(t, err, &baseErr)
}

func TestDecodeSwitchingTimes(t *testing.T) {
	line := strings.Repeat(" ", 38) +
		"  0.012345000" + "   B  " + " " + "  0.015600000" + "   C  " + " " + "  0.020100000"
	require.Len(t, line, 91)

	abc, err := decodeSwitchingTimes(5, line)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0.012345, 0.0156, 0.0201}, abc)

	_, err = decodeSwitchingTimes(5, line[:80])
	var shotErr *ShotDecodeError
	require.ErrorAs(t, err, &shotErr)
	assert.Contains(t, shotErr.Error(), "phase_c")
}

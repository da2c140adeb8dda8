package exporter

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lisstat/pkg/contracts/domain"
)

func TestWriteWorkbook(t *testing.T) {
	tables := []*domain.StatisticalTable{
		sampleTable(domain.TableKindVoltage, "BUSA", "", false),
		sampleTable(domain.TableKindCurrent, "XGU50A", "TRPYDA", true),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, tables))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{IndexSheet, "voltage_BUSA", "current_summary_XGU50A-TRPYDA"}, f.GetSheetList())

	index, err := f.GetRows(IndexSheet)
	require.NoError(t, err)
	require.Len(t, index, 3)
	assert.Equal(t, "sheet", index[0][0])
	assert.Equal(t, "kind", index[0][1])
	assert.Equal(t, "voltage_BUSA", index[1][0])
	assert.Equal(t, "current", index[2][1])

	kind, err := f.GetCellValue("voltage_BUSA", "B1")
	require.NoError(t, err)
	assert.Equal(t, "voltage", kind)

	header, err := f.GetCellValue("voltage_BUSA", "A11")
	require.NoError(t, err)
	assert.Equal(t, "interval", header)

	perUnit, err := f.GetCellValue("voltage_BUSA", "B13")
	require.NoError(t, err)
	assert.Equal(t, "1.0375", perUnit)

	mean, err := f.GetCellValue("current_summary_XGU50A-TRPYDA", "B8")
	require.NoError(t, err)
	assert.Equal(t, "1.19", mean)
}

func TestSaveWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tables.xlsx")
	require.NoError(t, SaveWorkbook(path, []*domain.StatisticalTable{
		sampleTable(domain.TableKindVoltage, "BUSA", "", false),
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 2)
}

func TestWriteWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{IndexSheet}, f.GetSheetList())
}

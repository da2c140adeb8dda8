package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextTable_AlignsColumns(t *testing.T) {
	tbl := newTextTable("KIND", "NAME1", "NAME2").
		Row("voltage", "BUSA", "").
		Row("current", "SRCA", "LOADA")

	var buf bytes.Buffer
	require.NoError(t, writeTextTable(&buf, tbl))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.NotContains(t, buf.String(), "\x1b[", "no escape sequences in plain output")

	col := strings.Index(lines[0], "NAME1")
	require.Positive(t, col)
	assert.Equal(t, col, strings.Index(lines[1], "BUSA"))
	assert.Equal(t, col, strings.Index(lines[2], "SRCA"))
	assert.Equal(t, strings.Index(lines[0], "NAME2"), strings.Index(lines[2], "LOADA"))
}

package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lisstat/internal/errors"
	"lisstat/internal/shared/testutil"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantCount int
		wantType  apperrors.ErrorType
	}{
		{
			name: "directory with reports",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, filepath.Join(dir, "case1.lis"), "x")
				writeFile(t, filepath.Join(dir, "CASE2.LIS"), "x")
				writeFile(t, filepath.Join(dir, "notes.txt"), "x")
				writeFile(t, filepath.Join(dir, "nested", "case3.lis"), "x")
				return dir
			},
			wantCount: 2,
		},
		{
			name: "directory without reports",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantCount: 0,
		},
		{
			name: "non-existent directory",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
			wantType: apperrors.ErrTypeNotFound,
		},
		{
			name: "path is file not directory",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, filepath.Join(t.TempDir(), "case.lis"), "x")
			},
			wantType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())

			count, err := validator.ValidateInputDirectory(tt.setupFunc(t))

			if tt.wantType != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	validator := NewFileValidator(nil)

	t.Run("existing directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, validator.ValidateOutputDirectory(dir))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "write probe must be removed")
	})

	t.Run("nested directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "new", "nested", "dir")
		require.NoError(t, validator.ValidateOutputDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("parent is a file", func(t *testing.T) {
		file := writeFile(t, filepath.Join(t.TempDir(), "blocker"), "x")
		err := validator.ValidateOutputDirectory(filepath.Join(file, "out"))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
	})
}

func TestFileValidator_ValidateReportFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantType      apperrors.ErrorType
		errorContains string
	}{
		{
			name: "list report",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, filepath.Join(t.TempDir(), "case.lis"), "report")
			},
		},
		{
			name: "other extension is accepted",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, filepath.Join(t.TempDir(), "case.out"), "report")
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.lis")
			},
			wantType:      apperrors.ErrTypeNotFound,
			errorContains: "not found",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantType:      apperrors.ErrTypeValidation,
			errorContains: "is a directory",
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, filepath.Join(t.TempDir(), "empty.lis"), "")
			},
			wantType:      apperrors.ErrTypeValidation,
			errorContains: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())

			err := validator.ValidateReportFile(tt.setupFunc(t))

			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	validator := NewFileValidator(slog.Default())
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		allowed []string
		wantErr bool
	}{
		{name: "allowed extension", path: filepath.Join(dir, "out", "tables.xlsx"), allowed: []string{".xlsx"}},
		{name: "case insensitive", path: filepath.Join(dir, "TABLES.XLSX"), allowed: []string{".xlsx"}},
		{name: "any extension", path: filepath.Join(dir, "chart.whatever")},
		{name: "wrong extension", path: filepath.Join(dir, "tables.csv"), allowed: []string{".xlsx"}, wantErr: true},
		{name: "lock file name", path: filepath.Join(dir, "~$tables.xlsx"), allowed: []string{".xlsx"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateOutputFile(tt.path, tt.allowed...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.DirExists(t, filepath.Dir(tt.path))
		})
	}
}

func TestFileValidator_CountReports(t *testing.T) {
	validator := NewFileValidator(slog.Default())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.lis"), "x")
	writeFile(t, filepath.Join(dir, "b.Lis"), "x")
	writeFile(t, filepath.Join(dir, "c.lisx"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.lis"), 0755))

	count, err := validator.CountReports(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = validator.CountReports(filepath.Join(dir, "missing"))
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
}

func TestFileValidator_ReportExtensionWarning(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	validator := NewFileValidator(logger)
	dir := t.TempDir()

	require.NoError(t, validator.ValidateReportFile(writeFile(t, filepath.Join(dir, "case.lis"), "x")))
	assert.Empty(t, logs.Find(slog.LevelWarn, "unexpected extension"))

	require.NoError(t, validator.ValidateReportFile(writeFile(t, filepath.Join(dir, "case.txt"), "x")))
	rec := testutil.AssertLogContains(t, logs, slog.LevelWarn, "unexpected extension")
	assert.Equal(t, ".txt", rec.Attrs["extension"])
	testutil.AssertNoLogsAbove(t, logs, slog.LevelWarn)
}

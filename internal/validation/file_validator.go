package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"lisstat/internal/config"
	apperrors "lisstat/internal/errors"
)

// FileValidator checks command line paths before any report is scanned
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory checks that dir exists and is a directory. It
// returns the number of list reports directly inside it; zero is not an error.
func (v *FileValidator) ValidateInputDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("input directory %s", dir))
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return 0, apperrors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	count, err := v.CountReports(dir)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		v.logger.Warn("No list reports directly in directory",
			slog.String("directory", dir))
		return 0, nil
	}

	v.logger.Debug("Input directory validated",
		slog.String("directory", dir),
		slog.Int("reports_found", count))
	return count, nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path exists, is a regular file and can be opened
func (v *FileValidator) ValidateFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("file %s", path))
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info, nil
}

// ValidateReportFile checks a list report given on the command line. Empty
// files are rejected. Other extensions are accepted with a warning since
// solvers are often run with custom output names.
func (v *FileValidator) ValidateReportFile(path string) error {
	info, err := v.ValidateFile(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		v.logger.Error("Report file is empty",
			slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("report %s is empty", path))
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != config.ReportExtension {
		v.logger.Warn("Report file has an unexpected extension",
			slog.String("file", path),
			slog.String("extension", ext))
	}
	return nil
}

// ValidateOutputFile checks that path carries one of the allowed extensions
// and that its directory is writable.
func (v *FileValidator) ValidateOutputFile(path string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if len(allowed) > 0 && !slices.Contains(allowed, ext) {
		v.logger.Error("Output file has an unsupported extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("output %s must end in one of %s", path, strings.Join(allowed, ", ")))
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return apperrors.NewAppValidationError(fmt.Sprintf("output %s is a spreadsheet lock file name", path))
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// CountReports counts regular files with the report extension directly in dir
func (v *FileValidator) CountReports(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		v.logger.Error("Failed to count reports",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return 0, apperrors.NewStorageError(fmt.Sprintf("failed to read directory %s", dir), err)
	}

	count := 0
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), config.ReportExtension) {
			count++
		}
	}
	return count, nil
}

package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v2"

	"lisstat/internal/config"
	apperrors "lisstat/internal/errors"
	"lisstat/internal/files"
	"lisstat/internal/lis"
	"lisstat/pkg/contracts/domain"
)

const (
	uploadsPrefix = "uploads/"
	stagingDir    = uploadsPrefix + ".staging/"
	metaSuffix    = ".meta.yaml"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ErrNotFound is wrapped by every lookup of an unknown report id.
var ErrNotFound = errors.New("report not found")

// TooLargeError is returned when an upload exceeds the configured limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("report exceeds the %d byte upload limit", e.Limit)
}

// ErrorType maps the error to VALIDATION.
func (e *TooLargeError) ErrorType() apperrors.ErrorType { return apperrors.ErrTypeValidation }

// metadata is the sidecar written next to each report.
type metadata struct {
	Name     string `yaml:"name"`
	Size     int64  `yaml:"size"`
	StoredAt string `yaml:"stored_at"`
}

// ReportStore stores reports in the uploads directory.
type ReportStore struct {
	manager   *files.Manager
	discovery *files.Discovery
	dir       string
	maxBytes  int64
	logger    *slog.Logger
	now       func() time.Time

	// mu serialises the exists-then-move step of Put.
	mu sync.Mutex
}

// NewReportStore creates a store rooted at paths.UploadsDir. maxBytes <= 0 disables the limit.
func NewReportStore(paths *config.Paths, maxBytes int64, logger *slog.Logger) *ReportStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStore{
		manager:   files.NewManager(paths),
		discovery: files.NewDiscovery(paths.UploadsDir),
		dir:       paths.UploadsDir,
		maxBytes:  maxBytes,
		logger:    logger.With(slog.String("component", "report_store")),
		now:       time.Now,
	}
}

// Put stores the report read from r under its content id. name is the
// original file name and is kept for listings only.
func (s *ReportStore) Put(ctx context.Context, name string, r io.Reader) (domain.ReportInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReportInfo{}, err
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return domain.ReportInfo{}, apperrors.NewStorageError("failed to create hash", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	staging := stagingDir + uuid.NewString()
	n, err := s.manager.WriteFileAtomic(staging, io.TeeReader(src, h))
	if err != nil {
		return domain.ReportInfo{}, apperrors.NewStorageError("failed to stage report", err)
	}
	discard := func() {
		if err := s.manager.DeleteFile(staging); err != nil {
			s.logger.Warn("failed to remove staged upload", slog.String("error", err.Error()))
		}
	}

	if s.maxBytes > 0 && n > s.maxBytes {
		discard()
		return domain.ReportInfo{}, &TooLargeError{Limit: s.maxBytes}
	}
	if n == 0 {
		discard()
		return domain.ReportInfo{}, apperrors.NewAppValidationError("report is empty")
	}

	id := hex.EncodeToString(h.Sum(nil))
	if name == "" {
		name = id + config.ReportExtension
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manager.FileExists(reportPath(id)) {
		discard()
		info, err := s.info(id)
		if err != nil {
			return domain.ReportInfo{}, err
		}
		s.logger.InfoContext(ctx, "report already stored",
			slog.String("report_id", id),
			slog.String("name", info.Name))
		return info, nil
	}

	if err := s.manager.MoveFile(staging, reportPath(id)); err != nil {
		discard()
		return domain.ReportInfo{}, apperrors.NewStorageError("failed to store report", err)
	}

	info := domain.ReportInfo{ID: id, Name: name, Size: n, StoredAt: s.now().UTC()}
	if err := s.writeMeta(info); err != nil {
		s.logger.Warn("failed to write report metadata",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "report stored",
		slog.String("report_id", id),
		slog.String("name", name),
		slog.Int64("size_bytes", n))
	return info, nil
}

// Get returns a source over the stored report and its description.
func (s *ReportStore) Get(id string) (lis.Source, domain.ReportInfo, error) {
	info, err := s.info(id)
	if err != nil {
		return nil, domain.ReportInfo{}, err
	}
	return lis.FileSource(s.manager.ResolvePath(reportPath(id))), info, nil
}

// List describes every stored report, oldest first.
func (s *ReportStore) List() ([]domain.ReportInfo, error) {
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return []domain.ReportInfo{}, nil
	}
	found, err := s.discovery.FindReports(".")
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list reports", err)
	}

	reports := make([]domain.ReportInfo, 0, len(found))
	for _, f := range found {
		id := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
		if !idPattern.MatchString(id) {
			continue
		}
		info, err := s.info(id)
		if err != nil {
			continue
		}
		reports = append(reports, info)
	}
	return reports, nil
}

// Delete removes a stored report and its metadata.
func (s *ReportStore) Delete(id string) error {
	if !idPattern.MatchString(id) {
		return notFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.DeleteFile(reportPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(id)
		}
		return apperrors.NewStorageError("failed to delete report", err)
	}
	if err := s.manager.DeleteFile(metaPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to delete report metadata",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
	}
	return nil
}

// info builds the description of id from the file and its sidecar. A missing
// or unreadable sidecar falls back to file system attributes.
func (s *ReportStore) info(id string) (domain.ReportInfo, error) {
	if !idPattern.MatchString(id) {
		return domain.ReportInfo{}, notFound(id)
	}
	st, err := os.Stat(s.manager.ResolvePath(reportPath(id)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ReportInfo{}, notFound(id)
		}
		return domain.ReportInfo{}, apperrors.NewStorageError("failed to stat report", err)
	}

	info := domain.ReportInfo{
		ID:       id,
		Name:     id + config.ReportExtension,
		Size:     st.Size(),
		StoredAt: st.ModTime().UTC(),
	}
	meta, err := s.readMeta(id)
	if err != nil {
		return info, nil
	}
	if meta.Name != "" {
		info.Name = meta.Name
	}
	if t, err := time.Parse(time.RFC3339Nano, meta.StoredAt); err == nil {
		info.StoredAt = t
	}
	return info, nil
}

func (s *ReportStore) readMeta(id string) (metadata, error) {
	var meta metadata
	data, err := os.ReadFile(s.manager.ResolvePath(metaPath(id)))
	if err != nil {
		return meta, err
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse report metadata: %w", err)
	}
	return meta, nil
}

func (s *ReportStore) writeMeta(info domain.ReportInfo) error {
	data, err := yaml.Marshal(metadata{
		Name:     info.Name,
		Size:     info.Size,
		StoredAt: info.StoredAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode report metadata: %w", err)
	}
	_, err = s.manager.WriteFileAtomic(metaPath(info.ID), strings.NewReader(string(data)))
	return err
}

func reportPath(id string) string { return uploadsPrefix + id + config.ReportExtension }

func metaPath(id string) string { return uploadsPrefix + id + metaSuffix }

func notFound(id string) error {
	return apperrors.NewAppError(apperrors.ErrTypeNotFound, fmt.Sprintf("report %q not found", id), ErrNotFound)
}

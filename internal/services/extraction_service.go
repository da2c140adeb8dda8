package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	apperrors "lisstat/internal/errors"
	"lisstat/internal/exporter"
	"lisstat/internal/lis"
	"lisstat/internal/report"
	"lisstat/internal/store"
	"lisstat/pkg/contracts/domain"
)

// ExtractionService answers table, listing and export queries against stored reports.
type ExtractionService struct {
	store     *store.ReportStore
	extractor *lis.Extractor
	maxBatch  int
	logger    *slog.Logger
}

// NewExtractionService wires a report store to an extractor. maxBatch bounds
// the number of table requests accepted in one batch.
func NewExtractionService(st *store.ReportStore, extractor *lis.Extractor, maxBatch int, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		store:     st,
		extractor: extractor,
		maxBatch:  maxBatch,
		logger:    logger.With(slog.String("component", "extraction_service")),
	}
}

// Upload stores a report and returns its descriptor.
func (s *ExtractionService) Upload(ctx context.Context, name string, r io.Reader) (domain.ReportInfo, error) {
	info, err := s.store.Put(ctx, name, r)
	if err != nil {
		s.logger.WarnContext(ctx, "report upload rejected",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return domain.ReportInfo{}, err
	}
	s.logger.InfoContext(ctx, "report stored",
		slog.String("report_id", info.ID),
		slog.String("name", info.Name),
		slog.Int64("size", info.Size))
	return info, nil
}

// Reports lists stored reports, oldest first.
func (s *ExtractionService) Reports(ctx context.Context) ([]domain.ReportInfo, error) {
	return s.store.List()
}

// Report returns the descriptor of one stored report.
func (s *ExtractionService) Report(ctx context.Context, id string) (domain.ReportInfo, error) {
	_, info, err := s.store.Get(id)
	return info, err
}

// DeleteReport removes a stored report.
func (s *ExtractionService) DeleteReport(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "report deleted", slog.String("report_id", id))
	return nil
}

func (s *ExtractionService) source(id string) (lis.Source, error) {
	src, _, err := s.store.Get(id)
	return src, err
}

// Table extracts one statistical table.
func (s *ExtractionService) Table(ctx context.Context, id string, req domain.TableRequest) (*domain.StatisticalTable, error) {
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	table, err := s.extractor.ExtractTable(ctx, src, req)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "table extracted",
		slog.String("report_id", id),
		slog.String("table", exporter.TableLabel(table)),
		slog.Int("rows", len(table.Rows)),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

// Variables lists the statistical output variables of a report.
func (s *ExtractionService) Variables(ctx context.Context, id string) ([]domain.VariableName, error) {
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	return s.extractor.ListVariableNames(ctx, src)
}

// Shots lists the shot that produced each variable's peak.
func (s *ExtractionService) Shots(ctx context.Context, id string) ([]domain.ShotEvent, error) {
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	return s.extractor.ListShotEvents(ctx, src)
}

// SwitchingTimes returns the random closing instants per shot.
func (s *ExtractionService) SwitchingTimes(ctx context.Context, id string) (*domain.SwitchingTimes, error) {
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	return s.extractor.ExtractSwitchingTimes(ctx, src)
}

// Outline segments a report and summarises its sections.
func (s *ExtractionService) Outline(ctx context.Context, id string) (*domain.ReportOutline, error) {
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	segs, err := s.extractor.Segment(ctx, src)
	if err != nil {
		return nil, err
	}
	return Outline(segs), nil
}

// Outline converts segments into their wire summary.
func Outline(segs *lis.Segments) *domain.ReportOutline {
	outline := &domain.ReportOutline{
		Sections:        []domain.SectionSummary{},
		InputCards:      segs.InputCards(),
		OutputVariables: segs.OutputVariableCount(),
	}
	for _, sec := range segs.Present() {
		outline.Sections = append(outline.Sections, domain.SectionSummary{
			Section: string(sec),
			Lines:   len(segs.Lines(sec)),
		})
	}
	return outline
}

// CheckBatch rejects empty and oversized batches.
func (s *ExtractionService) CheckBatch(reqs []domain.TableRequest) error {
	if len(reqs) == 0 {
		return apperrors.NewAppValidationError("batch contains no table requests")
	}
	if s.maxBatch > 0 && len(reqs) > s.maxBatch {
		return apperrors.NewAppValidationError(fmt.Sprintf("batch of %d requests exceeds the limit of %d", len(reqs), s.maxBatch))
	}
	return nil
}

// Batch extracts several tables concurrently. Failed requests are reported
// per item; the call itself only fails on a missing report, an invalid batch
// or cancellation. progress, when set, sees each item as it completes.
func (s *ExtractionService) Batch(ctx context.Context, id string, reqs []domain.TableRequest, progress func(domain.BatchItem)) ([]domain.BatchItem, error) {
	if err := s.CheckBatch(reqs); err != nil {
		return nil, err
	}
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}

	var onResult lis.ProgressFunc
	if progress != nil {
		onResult = func(r lis.BatchResult) { progress(BatchItem(r)) }
	}

	start := time.Now()
	results, err := s.extractor.Batch(ctx, src, reqs, onResult)
	if err != nil {
		s.logger.WarnContext(ctx, "batch aborted",
			slog.String("report_id", id),
			slog.Int("requests", len(reqs)),
			slog.String("error", err.Error()))
		return nil, err
	}

	items := make([]domain.BatchItem, len(results))
	failed := 0
	for i, r := range results {
		items[i] = BatchItem(r)
		if r.Err != nil {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "batch completed",
		slog.String("report_id", id),
		slog.Int("requests", len(reqs)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)))
	return items, nil
}

// BatchItem converts an extractor result into its wire form.
func BatchItem(r lis.BatchResult) domain.BatchItem {
	item := domain.BatchItem{Index: r.Index, Request: r.Request, Table: r.Table}
	if r.Err != nil {
		item.Table = nil
		item.Error = r.Err.Error()
		item.Code = string(apperrors.TypeOf(r.Err))
	}
	return item
}

// Tables extracts every requested table, failing on the first request that
// cannot be served.
func (s *ExtractionService) Tables(ctx context.Context, id string, reqs []domain.TableRequest) ([]*domain.StatisticalTable, error) {
	if err := s.CheckBatch(reqs); err != nil {
		return nil, err
	}
	src, err := s.source(id)
	if err != nil {
		return nil, err
	}
	results, err := s.extractor.Batch(ctx, src, reqs, nil)
	if err != nil {
		return nil, err
	}
	tables := make([]*domain.StatisticalTable, len(results))
	for i, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("request %d: %w", r.Index, r.Err)
		}
		tables[i] = r.Table
	}
	return tables, nil
}

// Workbook writes the requested tables as an xlsx workbook.
func (s *ExtractionService) Workbook(ctx context.Context, id string, reqs []domain.TableRequest, w io.Writer) error {
	tables, err := s.Tables(ctx, id, reqs)
	if err != nil {
		return err
	}
	if err := exporter.WriteWorkbook(w, tables); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Chart renders one table's frequency distribution as a PNG.
func (s *ExtractionService) Chart(ctx context.Context, id string, req domain.TableRequest) ([]byte, error) {
	table, err := s.Table(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return report.ChartPNG(table)
}

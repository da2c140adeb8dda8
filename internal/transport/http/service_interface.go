package http

import (
	"context"
	"io"

	"lisstat/pkg/contracts/domain"
)

// ReportService is the subset of services.ExtractionService used by the handlers
type ReportService interface {
	Upload(ctx context.Context, name string, r io.Reader) (domain.ReportInfo, error)
	Reports(ctx context.Context) ([]domain.ReportInfo, error)
	Report(ctx context.Context, id string) (domain.ReportInfo, error)
	DeleteReport(ctx context.Context, id string) error
	Table(ctx context.Context, id string, req domain.TableRequest) (*domain.StatisticalTable, error)
	Variables(ctx context.Context, id string) ([]domain.VariableName, error)
	Shots(ctx context.Context, id string) ([]domain.ShotEvent, error)
	SwitchingTimes(ctx context.Context, id string) (*domain.SwitchingTimes, error)
	Outline(ctx context.Context, id string) (*domain.ReportOutline, error)
	CheckBatch(reqs []domain.TableRequest) error
	Batch(ctx context.Context, id string, reqs []domain.TableRequest, progress func(domain.BatchItem)) ([]domain.BatchItem, error)
	Workbook(ctx context.Context, id string, reqs []domain.TableRequest, w io.Writer) error
	Chart(ctx context.Context, id string, req domain.TableRequest) ([]byte, error)
}

package lis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "lisstat/internal/errors"
	"lisstat/pkg/contracts/domain"
)

// DefaultConcurrency bounds Batch when no limit is configured.
const DefaultConcurrency = 4

// Extractor runs scans over report sources. It holds no per-scan state and is
// safe for concurrent use.
type Extractor struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *scanMetrics
	concurrency int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConcurrency limits how many scans Batch runs at once.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewExtractor builds an Extractor instrumented with the global OpenTelemetry providers.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger:      slog.Default(),
		tracer:      otel.Tracer(instrumentationName),
		metrics:     newScanMetrics(otel.Meter(instrumentationName)),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "lis_extractor"))
	return e
}

// scan opens src, runs fn over a fresh cursor and records the span and metrics.
func (e *Extractor) scan(ctx context.Context, src Source, op string, attrs []attribute.KeyValue, fn func(ctx context.Context, c *cursor) error) error {
	ctx, span := e.tracer.Start(ctx, "lis."+op,
		trace.WithAttributes(append(attrs, attribute.String("lis.source", src.Name()))...))
	defer span.End()

	start := time.Now()
	rc, err := src.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.record(ctx, op, time.Since(start), 0, err)
		return err
	}
	defer rc.Close()

	c := newCursor(ctx, rc)
	err = fn(ctx, c)
	if err == nil {
		err = c.failure()
	}

	span.SetAttributes(attribute.Int("lis.lines", c.lineNo()))
	e.metrics.record(ctx, op, time.Since(start), c.lineNo(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.DebugContext(ctx, "scan failed",
			slog.String("operation", op),
			slog.String("source", src.Name()),
			slog.Int("line", c.lineNo()),
			slog.String("error", err.Error()))
	}
	return err
}

// ExtractTable scans src for the table described by req.
func (e *Extractor) ExtractTable(ctx context.Context, src Source, req domain.TableRequest) (*domain.StatisticalTable, error) {
	if req.Kind != domain.TableKindVoltage && req.Kind != domain.TableKindCurrent {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unsupported table kind %q", req.Kind))
	}
	sr, err := newScanRequest(req)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("lis.kind", string(req.Kind)),
		attribute.String("lis.primary", req.Primary),
		attribute.Bool("lis.summary", req.Summary),
	}
	if req.Kind == domain.TableKindCurrent {
		attrs = append(attrs, attribute.String("lis.secondary", req.Secondary))
	}

	var table *domain.StatisticalTable
	err = e.scan(ctx, src, "extract_table", attrs, func(ctx context.Context, c *cursor) error {
		var err error
		table, err = newTableScanner(sr, c, e.logger).run()
		return err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.recordRows(ctx, string(req.Kind), len(table.Rows))
	return table, nil
}

// ExtractVoltageTable returns the peak voltage distribution of node. In
// summary mode it returns the three-phase SUMMARY table that follows the C phase.
func (e *Extractor) ExtractVoltageTable(ctx context.Context, src Source, node string, summary bool) (*domain.StatisticalTable, error) {
	return e.ExtractTable(ctx, src, domain.TableRequest{
		Kind:    domain.TableKindVoltage,
		Primary: node,
		Summary: summary,
	})
}

// ExtractCurrentTable returns the peak current distribution of the branch from node1 to node2.
func (e *Extractor) ExtractCurrentTable(ctx context.Context, src Source, node1, node2 string, summary bool) (*domain.StatisticalTable, error) {
	return e.ExtractTable(ctx, src, domain.TableRequest{
		Kind:      domain.TableKindCurrent,
		Primary:   node1,
		Secondary: node2,
		Summary:   summary,
	})
}

// ListVariableNames returns every distribution table caption in file order.
func (e *Extractor) ListVariableNames(ctx context.Context, src Source) ([]domain.VariableName, error) {
	names := []domain.VariableName{}
	err := e.scan(ctx, src, "list_variable_names", nil, func(ctx context.Context, c *cursor) error {
		for c.next() {
			if v, ok := matchAnyCaption(c.line()); ok {
				names = append(names, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ListShotEvents correlates each "Statistical output of ..." header with the
// peak value and simulation number printed on the next two lines.
func (e *Extractor) ListShotEvents(ctx context.Context, src Source) ([]domain.ShotEvent, error) {
	events := []domain.ShotEvent{}
	err := e.scan(ctx, src, "list_shot_events", nil, func(ctx context.Context, c *cursor) error {
		for c.next() {
			kind, ok := matchStatOutputHeader(c.line())
			if !ok {
				continue
			}
			// A header not followed by a peak line is skipped along with that line.
			if !c.next() || !peakExtremumRe.MatchString(c.line()) {
				continue
			}
			peak, err := decodePeak(c.lineNo(), c.line())
			if err != nil {
				return err
			}
			if !c.next() {
				if err := c.failure(); err != nil {
					return err
				}
				return &TruncatedTableError{Line: c.lineNo(), Stage: "shot record"}
			}
			ev, err := decodeShotLine(c.lineNo(), c.line())
			if err != nil {
				return err
			}
			ev.Kind = kind
			ev.Peak = peak
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// decodeShotLine reads the simulation number and variable names of a shot line.
func decodeShotLine(lineNo int, line string) (domain.ShotEvent, error) {
	m := shotLineRe.FindStringSubmatch(line)
	if m == nil {
		return domain.ShotEvent{}, &ShotDecodeError{Line: lineNo, Text: line, Err: errors.New("not a simulation line")}
	}
	shot, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return domain.ShotEvent{}, &ShotDecodeError{Line: lineNo, Text: line, Err: fmt.Errorf("simulation number: %w", err)}
	}
	return domain.ShotEvent{
		Name1: strings.TrimRight(m[2], " "),
		Name2: strings.TrimRight(m[4], " "),
		Shot:  shot,
	}, nil
}

// ExtractSwitchingTimes collects the random closing instants of a single
// three-phase statistical switch, one entry per simulation.
func (e *Extractor) ExtractSwitchingTimes(ctx context.Context, src Source) (*domain.SwitchingTimes, error) {
	times := &domain.SwitchingTimes{PhaseA: []float64{}, PhaseB: []float64{}, PhaseC: []float64{}}
	err := e.scan(ctx, src, "extract_switching_times", nil, func(ctx context.Context, c *cursor) error {
		for c.next() {
			if !randomSwitchingRe.MatchString(c.line()) {
				continue
			}
			if !c.next() {
				if err := c.failure(); err != nil {
					return err
				}
				return &TruncatedTableError{Line: c.lineNo(), Stage: "switching times"}
			}
			abc, err := decodeSwitchingTimes(c.lineNo(), c.line())
			if err != nil {
				return err
			}
			times.PhaseA = append(times.PhaseA, abc[0])
			times.PhaseB = append(times.PhaseB, abc[1])
			times.PhaseC = append(times.PhaseC, abc[2])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return times, nil
}

// Segment splits src into its coarse sections in one pass.
func (e *Extractor) Segment(ctx context.Context, src Source) (*Segments, error) {
	g := newSegmenter(src.Name())
	err := e.scan(ctx, src, "segment", nil, func(ctx context.Context, c *cursor) error {
		for c.next() {
			g.feed(c.line())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g.segs, nil
}

// BatchResult is the outcome of one request of a batch.
type BatchResult struct {
	Index   int
	Request domain.TableRequest
	Table   *domain.StatisticalTable
	Err     error
}

// ProgressFunc observes batch results as they complete. Calls are serialised.
type ProgressFunc func(BatchResult)

// Batch runs independent table scans over src, each on its own cursor, at most
// e.concurrency at a time. Per-request failures are reported in the results;
// only cancellation of ctx aborts the batch. Results are in request order.
func (e *Extractor) Batch(ctx context.Context, src Source, reqs []domain.TableRequest, progress ProgressFunc) ([]BatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "lis.batch", trace.WithAttributes(
		attribute.String("lis.source", src.Name()),
		attribute.Int("lis.requests", len(reqs)),
	))
	defer span.End()

	results := make([]BatchResult, len(reqs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			table, err := e.ExtractTable(gctx, src, req)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			res := BatchResult{Index: i, Request: req, Table: table, Err: err}
			results[i] = res
			if progress != nil {
				mu.Lock()
				progress(res)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ExtractVoltageTable scans src with a default Extractor.
func ExtractVoltageTable(ctx context.Context, src Source, node string, summary bool) (*domain.StatisticalTable, error) {
	return NewExtractor().ExtractVoltageTable(ctx, src, node, summary)
}

// ExtractCurrentTable scans src with a default Extractor.
func ExtractCurrentTable(ctx context.Context, src Source, node1, node2 string, summary bool) (*domain.StatisticalTable, error) {
	return NewExtractor().ExtractCurrentTable(ctx, src, node1, node2, summary)
}

// ListStatisticalVariableNames lists captions with a default Extractor.
func ListStatisticalVariableNames(ctx context.Context, src Source) ([]domain.VariableName, error) {
	return NewExtractor().ListVariableNames(ctx, src)
}

// ListPeakShotEvents lists shot events with a default Extractor.
func ListPeakShotEvents(ctx context.Context, src Source) ([]domain.ShotEvent, error) {
	return NewExtractor().ListShotEvents(ctx, src)
}

// ExtractSwitchingTimes reads switching times with a default Extractor.
func ExtractSwitchingTimes(ctx context.Context, src Source) (*domain.SwitchingTimes, error) {
	return NewExtractor().ExtractSwitchingTimes(ctx, src)
}

// SegmentReport segments src with a default Extractor.
func SegmentReport(ctx context.Context, src Source) (*Segments, error) {
	return NewExtractor().Segment(ctx, src)
}

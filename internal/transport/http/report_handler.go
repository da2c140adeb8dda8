package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	apierrors "lisstat/internal/errors"
	"lisstat/internal/exporter"
	"lisstat/internal/middleware"
	"lisstat/internal/store"
	ws "lisstat/internal/websocket"
	"lisstat/pkg/contracts/domain"
	"lisstat/pkg/contracts/events"
)

const (
	defaultReportName = "report.lis"
	reportNameHeader  = "X-Report-Name"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler serves stored reports and the tables decoded from them
type ReportHandler struct {
	service      ReportService
	streamer     *ws.Streamer
	upgrader     *websocket.Upgrader
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler. maxUpload rejects larger uploads
// before they are read; zero disables the early check.
func NewReportHandler(service ReportService, streamer *ws.Streamer, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		streamer:     streamer,
		upgrader:     ws.NewUpgrader(),
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListReports)
	r.Post("/", h.UploadReport)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.ReportCtx)
		r.Get("/", h.GetReport)
		r.Delete("/", h.DeleteReport)

		r.Get("/variables", h.GetVariables)
		r.Get("/shots", h.GetShots)
		r.Get("/switching-times", h.GetSwitchingTimes)
		r.Get("/sections", h.GetSections)

		r.Get("/tables/voltage/{node}", h.GetTable(domain.TableKindVoltage))
		r.Get("/tables/voltage/{node}/chart.png", h.GetChart(domain.TableKindVoltage))
		r.Get("/tables/current/{from}/{to}", h.GetTable(domain.TableKindCurrent))
		r.Get("/tables/current/{from}/{to}/chart.png", h.GetChart(domain.TableKindCurrent))

		r.With(middleware.ContentTypeValidator("application/json")).Post("/tables", h.BatchTables)
		r.With(middleware.ContentTypeValidator("application/json")).Post("/workbook", h.Workbook)

		r.Get("/stream", h.Stream)
	})

	return r
}

// ReportCtx validates the report id path parameter
func (h *ReportHandler) ReportCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.validation.ValidateVar("id", chi.URLParam(r, "id"), "required,len=64,hexadecimal"); err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.Reports(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, reports)
}

// UploadReport handles POST /api/reports. The report is the raw request body
// or the "file" part of a multipart form.
func (h *ReportHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxUpload > 0 && r.ContentLength > h.maxUpload {
		h.fail(w, r, payloadTooLarge(h.maxUpload))
		return
	}

	body, name, err := uploadBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	info, err := h.service.Upload(ctx, name, body)
	if err != nil {
		var tooLarge *store.TooLargeError
		if errors.As(err, &tooLarge) {
			err = payloadTooLarge(tooLarge.Limit)
		}
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/reports/"+info.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

func payloadTooLarge(limit int64) error {
	return apierrors.PayloadTooLarge(limit, -1)
}

// fail writes err as a problem response. Unknown report ids get the
// report-specific problem type.
func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		err = apierrors.ReportNotFound(chi.URLParam(r, "id"))
	}
	h.errorHandler.HandleError(w, r, err)
}

// uploadBody returns the report stream and its display name.
func uploadBody(r *http.Request) (io.Reader, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, "", apierrors.InvalidRequestWithError(err)
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil, "", apierrors.ErrValidation("file", "multipart upload has no file part")
			}
			if err != nil {
				return nil, "", apierrors.InvalidRequestWithError(err)
			}
			if part.FormName() == "file" {
				return part, reportName(part.FileName()), nil
			}
		}
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = r.Header.Get(reportNameHeader)
	}
	return r.Body, reportName(name), nil
}

func reportName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return defaultReportName
	}
	return name
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// DeleteReport handles DELETE /api/reports/{id}
func (h *ReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVariables handles GET /api/reports/{id}/variables
func (h *ReportHandler) GetVariables(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Variables(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, names)
}

// GetShots handles GET /api/reports/{id}/shots
func (h *ReportHandler) GetShots(w http.ResponseWriter, r *http.Request) {
	shots, err := h.service.Shots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, shots)
}

// GetSwitchingTimes handles GET /api/reports/{id}/switching-times
func (h *ReportHandler) GetSwitchingTimes(w http.ResponseWriter, r *http.Request) {
	times, err := h.service.SwitchingTimes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, times)
}

// GetSections handles GET /api/reports/{id}/sections
func (h *ReportHandler) GetSections(w http.ResponseWriter, r *http.Request) {
	outline, err := h.service.Outline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, outline)
}

// tableRequest builds and validates the table request named by the path.
func (h *ReportHandler) tableRequest(w http.ResponseWriter, r *http.Request, kind domain.TableKind) (domain.TableRequest, bool) {
	summary, ok := h.query.ValidateBool(w, r, "summary", false)
	if !ok {
		return domain.TableRequest{}, false
	}
	req := domain.TableRequest{Kind: kind, Summary: summary}
	if kind == domain.TableKindVoltage {
		req.Primary = pathParam(r, "node")
	} else {
		req.Primary = pathParam(r, "from")
		req.Secondary = pathParam(r, "to")
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.fail(w, r, err)
		return domain.TableRequest{}, false
	}
	return req, true
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// GetTable handles GET /api/reports/{id}/tables/{kind}/...
func (h *ReportHandler) GetTable(kind domain.TableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, ok := h.query.ValidateEnum(w, r, "format", []string{"json", "csv"}, "json")
		if !ok {
			return
		}
		req, ok := h.tableRequest(w, r, kind)
		if !ok {
			return
		}

		table, err := h.service.Table(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		if format == "csv" {
			var buf bytes.Buffer
			if err := exporter.WriteCSVTo(&buf, exporter.WriteOptions{
				Headers: exporter.RowHeaders,
				Records: exporter.RowRecords(table),
			}); err != nil {
				h.fail(w, r, err)
				return
			}
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", attachment(exporter.TableFileName(table)+".csv"))
			w.Write(buf.Bytes())
			return
		}
		render.JSON(w, r, table)
	}
}

// GetChart handles GET /api/reports/{id}/tables/{kind}/.../chart.png
func (h *ReportHandler) GetChart(kind domain.TableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.tableRequest(w, r, kind)
		if !ok {
			return
		}
		png, err := h.service.Chart(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.Write(png)
	}
}

// batchResponse is the body of POST /api/reports/{id}/tables
type batchResponse struct {
	ReportID string             `json:"report_id"`
	Items    []domain.BatchItem `json:"items"`
}

// BatchTables handles POST /api/reports/{id}/tables
func (h *ReportHandler) BatchTables(w http.ResponseWriter, r *http.Request) {
	var req events.BatchRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	items, err := h.service.Batch(r.Context(), id, req.Requests, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, batchResponse{ReportID: id, Items: items})
}

// Workbook handles POST /api/reports/{id}/workbook
func (h *ReportHandler) Workbook(w http.ResponseWriter, r *http.Request) {
	var req events.BatchRequest
	if err := h.validation.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	// Buffered so a failure can still be reported as a problem response.
	var buf bytes.Buffer
	if err := h.service.Workbook(r.Context(), id, req.Requests, &buf); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", attachment(fmt.Sprintf("%s.xlsx", id[:12])))
	w.Write(buf.Bytes())
}

// Stream handles GET /api/reports/{id}/stream
func (h *ReportHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.Report(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
		return
	}

	// The session outlives the request timeout; it ends with the batch or the client.
	h.streamer.ServeUpgraded(context.WithoutCancel(r.Context()), conn, id)
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

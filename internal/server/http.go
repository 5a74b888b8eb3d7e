package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/async"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
	"github.com/joseph-ayodele/clinical-extractor/internal/export"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

const (
	maxBodyBytes     = 10 << 20
	defaultListLimit = 20
	maxListLimit     = 200
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves the extraction HTTP API.
type Handler struct {
	runs   *runs.Service
	store  *dictionary.Store
	queue  async.Queue
	export *export.Service
	health func(context.Context) error
	logger *slog.Logger
}

// NewHandler builds a Handler. queue and health may be nil; without a queue
// async submissions are rejected.
func NewHandler(svc *runs.Service, store *dictionary.Store, queue async.Queue, exp *export.Service, health func(context.Context) error, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{runs: svc, store: store, queue: queue, export: exp, health: health, logger: logger}
}

// RegisterRoutes adds the API routes to the given group.
//
//	POST /extract
//	GET  /dictionary
//	GET  /dictionary/:id
//	POST /runs
//	GET  /runs
//	GET  /runs/:id
//	GET  /runs/:id/export
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/extract", h.Extract)
	g.GET("/dictionary", h.ListDictionary)
	g.GET("/dictionary/:id", h.GetDictionary)
	g.POST("/runs", h.CreateRun)
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:id", h.GetRun)
	g.GET("/runs/:id/export", h.ExportRun)
}

// NewEcho returns an echo instance with the API mounted under /api/v1 and
// the health probe at /healthz.
func NewEcho(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("10M"))
	e.GET("/healthz", h.Health)
	h.RegisterRoutes(e.Group("/api/v1"))
	return e
}

// extractRequest is the JSON body for extraction and run creation.
type extractRequest struct {
	Text   string `json:"text"`
	Mode   string `json:"mode"`
	Source string `json:"source"`
}

type extractResponse struct {
	Status  constants.RunStatus       `json:"status"`
	Mode    string                    `json:"mode"`
	Summary entity.Summary            `json:"summary"`
	Records []entity.ExtractionRecord `json:"records"`
}

// Extract handles POST /extract. The body is either JSON {text, mode} or
// plain text. ?format=records returns the bare record array and
// ?format=xlsx a workbook.
func (h *Handler) Extract(c echo.Context) error {
	req, err := bindRequest(c)
	if err != nil {
		return err
	}
	res, err := h.runs.Extract(c.Request().Context(), req)
	if err != nil {
		return h.httpError("http.extract.failed", err)
	}
	if res.Empty() {
		h.logger.Warn("http.extract.empty", "source", req.Source)
	}
	mode := strings.ToLower(req.Mode)
	if mode == "" {
		mode = h.runs.DefaultMode()
	}
	return h.render(c, res, extractResponse{
		Status:  resultStatus(res),
		Mode:    mode,
		Summary: res.Summary,
		Records: res.Records,
	})
}

// ListDictionary handles GET /dictionary.
func (h *Handler) ListDictionary(c echo.Context) error {
	ids := h.store.IDs()
	entries := make([]dictionary.TermDictionary, 0, len(ids))
	for _, id := range ids {
		entry, _ := h.store.Entry(id)
		entries = append(entries, entry)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  entries,
		"total": len(entries),
	})
}

// GetDictionary handles GET /dictionary/:id. The id may be the full report
// label or just its number; ?category=dx narrows the answer to one term list.
func (h *Handler) GetDictionary(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := strconv.Atoi(id); err == nil {
		id = constants.ReportLabel + " " + id
	}
	entry, ok := h.store.Entry(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "dictionary entry not found")
	}
	if q := c.QueryParam("category"); q != "" {
		cat, ok := constants.Canonicalize(q)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("category must be one of %v", constants.AsStringSlice()))
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":       entry.ReportID,
			"category": cat,
			"terms":    entry.Terms(cat),
		})
	}
	return c.JSON(http.StatusOK, entry)
}

// CreateRun handles POST /runs. With ?async=true the run is queued and
// 202 Accepted is returned immediately.
func (h *Handler) CreateRun(c echo.Context) error {
	req, err := bindRequest(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		ctx = common.WithRequestID(ctx, rid)
	}

	if queued, _ := strconv.ParseBool(c.QueryParam("async")); queued {
		if h.queue == nil || !h.runs.Persistent() {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "async processing is disabled")
		}
		run, err := h.runs.Submit(ctx, req)
		if err != nil {
			return h.httpError("http.runs.submit.failed", err)
		}
		job := async.Job{
			RunID:       run.ID,
			Request:     req,
			SubmittedAt: time.Now(),
			TraceID:     c.Response().Header().Get(echo.HeaderXRequestID),
		}
		if err := h.queue.Enqueue(ctx, job); err != nil {
			if aerr := h.runs.Abandon(context.WithoutCancel(ctx), run.ID, err); aerr != nil {
				h.logger.Error("http.runs.abandon.failed", "run_id", run.ID, "error", aerr)
			}
			return h.httpError("http.runs.enqueue.failed", err)
		}
		return c.JSON(http.StatusAccepted, run)
	}

	run, err := h.runs.Process(ctx, req)
	if err != nil {
		return h.httpError("http.runs.process.failed", err)
	}
	return c.JSON(http.StatusCreated, run)
}

// ListRuns handles GET /runs.
func (h *Handler) ListRuns(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := h.runs.List(c.Request().Context(), limit)
	if err != nil {
		return h.httpError("http.runs.list.failed", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  list,
		"total": len(list),
		"limit": limit,
	})
}

// GetRun handles GET /runs/:id.
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.runs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.httpError("http.runs.get.failed", err)
	}
	return c.JSON(http.StatusOK, run)
}

// ExportRun handles GET /runs/:id/export?format=json|xlsx.
func (h *Handler) ExportRun(c echo.Context) error {
	run, err := h.runs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.httpError("http.runs.export.failed", err)
	}
	switch run.Status {
	case constants.RunStatusQueued, constants.RunStatusRunning:
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "json"
	}
	return h.write(c, format, pipeline.Result{Records: run.Records, Summary: run.Summary}, run.ID.String())
}

// Health handles GET /healthz.
func (h *Handler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health(c.Request().Context()); err != nil {
			h.logger.Warn("http.health.failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) render(c echo.Context, res pipeline.Result, body extractResponse) error {
	format := c.QueryParam("format")
	if format == "" {
		return c.JSON(http.StatusOK, body)
	}
	return h.write(c, format, res, "extract")
}

func (h *Handler) write(c echo.Context, format string, res pipeline.Result, name string) error {
	switch strings.ToLower(format) {
	case "json", "records":
		data, err := h.export.JSON(res.Records)
		if err != nil {
			return h.httpError("http.export.json.failed", err)
		}
		return c.JSONBlob(http.StatusOK, data)
	case "xlsx":
		data, err := h.export.XLSX(res.Records, res.Summary)
		if err != nil {
			return h.httpError("http.export.xlsx.failed", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
		return c.Blob(http.StatusOK, xlsxContentType, data)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

// httpError maps service errors onto HTTP status codes.
func (h *Handler) httpError(msg string, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrUnsupportedFormat):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrQueueClosed):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	} else {
		h.logger.Debug(msg, "error", err)
	}
	return echo.NewHTTPError(code, err.Error())
}

func bindRequest(c echo.Context) (runs.Request, error) {
	var body extractRequest
	r := c.Request()
	r.Body = http.MaxBytesReader(c.Response(), r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := c.Bind(&body); err != nil {
			return runs.Request{}, bodyError(err)
		}
	} else {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return runs.Request{}, bodyError(err)
		}
		body.Text = string(raw)
	}
	if m := c.QueryParam("mode"); m != "" {
		body.Mode = m
	}
	if s := c.QueryParam("source"); s != "" {
		body.Source = s
	}
	return runs.Request{Source: body.Source, Text: body.Text, Mode: body.Mode}, nil
}

func bodyError(err error) *echo.HTTPError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "document too large")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func resultStatus(res pipeline.Result) constants.RunStatus {
	if res.Empty() {
		return constants.RunStatusEmpty
	}
	return constants.RunStatusCompleted
}

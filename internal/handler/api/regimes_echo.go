package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	"FinRegime/internal/services/calendar"
	"FinRegime/internal/services/regime"
	"FinRegime/internal/usecase"
	xhttp "FinRegime/pkg/http"
	xlogger "FinRegime/pkg/logger"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RegimesEchoHandler serves runs, labeled rows and regime summaries.
type RegimesEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	queries  *usecase.Queries
	checks   map[string]HealthCheck
	runMW    []echo.MiddlewareFunc
}

func NewRegimesEchoHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline, queries *usecase.Queries, checks map[string]HealthCheck) *RegimesEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &RegimesEchoHandler{logger: logger, pipeline: pipeline, queries: queries, checks: checks}
}

// LimitRuns installs middleware in front of POST /api/runs only.
func (h *RegimesEchoHandler) LimitRuns(mw ...echo.MiddlewareFunc) *RegimesEchoHandler {
	h.runMW = append(h.runMW, mw...)
	return h
}

func (h *RegimesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.POST("/runs", h.CreateRun, h.runMW...)
	g.GET("/runs/latest", h.LatestRun)
	g.GET("/series", h.ListSeries)
	g.GET("/series/:name", h.SeriesRows)
	g.GET("/summaries/:name", h.Summary)
	g.GET("/calendar", h.Calendar)
	g.GET("/indices", h.Indices)
}

// CreateRun runs the pipeline synchronously and returns the run report.
func (h *RegimesEchoHandler) CreateRun(c echo.Context) error {
	req := &models.RunRequest{}
	if verrs := xhttp.Bind(c, req); verrs != nil {
		return xhttp.Invalid(c, verrs)
	}

	rep, err := h.pipeline.RunReport(c.Request().Context(), usecase.RunOptions{
		Series:           req.Series,
		Window:           req.Window,
		PreCrisisMonths:  req.PreCrisisMonths,
		PostCrisisMonths: req.PostCrisisMonths,
	})
	if err != nil {
		h.logger.Error("run usecase error", xlogger.Error(err))
		return writeErr(c, err)
	}
	return xhttp.Created(c, rep)
}

func (h *RegimesEchoHandler) LatestRun(c echo.Context) error {
	rep, err := h.pipeline.LatestReport()
	if err != nil {
		return writeErr(c, err)
	}
	return xhttp.OK(c, rep)
}

func (h *RegimesEchoHandler) ListSeries(c echo.Context) error {
	names, err := h.queries.SeriesNames()
	if err != nil {
		return writeErr(c, err)
	}
	return xhttp.List(c, names, int64(len(names)))
}

// SeriesRows returns labeled rows filtered by regime and an inclusive date range.
func (h *RegimesEchoHandler) SeriesRows(c echo.Context) error {
	req := &models.SeriesRowsRequest{}
	if verrs := xhttp.Bind(c, req); verrs != nil {
		return xhttp.Invalid(c, verrs)
	}

	f := usecase.RowFilter{Regime: models.Regime(req.Regime), Limit: req.Limit}
	// validated by the datetime tag
	if req.From != "" {
		f.From, _ = time.Parse(time.DateOnly, req.From)
	}
	if req.To != "" {
		f.To, _ = time.Parse(time.DateOnly, req.To)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return xhttp.Fail(c, xhttp.BadRequestError("to must not be before from").WithParam("from", req.From).WithParam("to", req.To))
	}

	rows, total, err := h.queries.Rows(req.Name, f)
	if err != nil {
		return writeErr(c, err)
	}
	return xhttp.List(c, rows, int64(total))
}

// Summary returns one series' regime summary; "combined" selects the all-series summary.
func (h *RegimesEchoHandler) Summary(c echo.Context) error {
	req := &models.SummaryRequest{}
	if verrs := xhttp.Bind(c, req); verrs != nil {
		return xhttp.Invalid(c, verrs)
	}

	sum, err := h.queries.Summary(c.Request().Context(), req.Name)
	if err != nil {
		return writeErr(c, err)
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=15")
	return xhttp.OK(c, summaryView(sum))
}

func (h *RegimesEchoHandler) Calendar(c echo.Context) error {
	ivs := h.queries.Calendar()
	specs := make([]calendar.IntervalSpec, 0, len(ivs))
	for _, iv := range ivs {
		specs = append(specs, calendar.IntervalSpec{
			Name:  iv.Name,
			Start: iv.Start.Format(time.DateOnly),
			End:   iv.End.Format(time.DateOnly),
		})
	}
	return xhttp.List(c, specs, int64(len(specs)))
}

func (h *RegimesEchoHandler) Indices(c echo.Context) error {
	idx := models.DefaultIndices()
	return xhttp.List(c, idx, int64(len(idx)))
}

// Health reports 503 when any registered dependency check fails.
func (h *RegimesEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.JSON(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.OK(c, status)
}

// regimeRow is the ordered JSON view of one regime's stats.
type regimeRow struct {
	Regime models.Regime `json:"regime"`
	models.RegimeStats
}

type summaryResponse struct {
	Name    string      `json:"name"`
	Regimes []regimeRow `json:"regimes"`
}

func summaryView(sum models.RegimeSummary) summaryResponse {
	rows := sum.Ordered()
	out := summaryResponse{Name: sum.Name, Regimes: make([]regimeRow, 0, len(rows))}
	for _, r := range rows {
		out.Regimes = append(out.Regimes, regimeRow{Regime: r.Regime, RegimeStats: r.Stats})
	}
	return out
}

func writeErr(c echo.Context, err error) error {
	return xhttp.Fail(c, toAppError(err))
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrNoRun):
		return xhttp.NotFoundError("no completed run yet").WithError(err)
	case errors.Is(err, domrepo.ErrSeriesNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrRunInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrNoSeries), errors.Is(err, regime.ErrNegativeBuffer), errors.Is(err, calendar.ErrInvalidInterval):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.NotReadyError("request cancelled").WithError(err)
	default:
		return err
	}
}

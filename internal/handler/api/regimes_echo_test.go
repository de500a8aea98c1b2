package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	"FinRegime/internal/service/ratelimit"
	"FinRegime/internal/services/analytics"
	"FinRegime/internal/services/calendar"
	"FinRegime/internal/usecase"
	"FinRegime/pkg/http/middleware"
	"FinRegime/pkg/util"
)

type mapSource map[string]models.Series

func (m mapSource) Load(_ context.Context, name string) (models.Series, error) {
	s, ok := m[name]
	if !ok {
		return models.Series{}, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, name)
	}
	return s, nil
}

func series(name, start string, n int) models.Series {
	d0 := util.MustParseDate(start)
	s := models.Series{Name: name}
	for i := 0; i < n; i++ {
		s.Observations = append(s.Observations, models.PriceObservation{
			Date:  d0.AddDate(0, 0, i),
			Close: models.Some(100 + float64(i%17)),
		})
	}
	return s
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type listData struct {
	Rows  json.RawMessage `json:"rows"`
	Total int64           `json:"total"`
}

func newTestServer(t *testing.T, checks map[string]HealthCheck, runMW ...echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	src := mapSource{
		"SP500":   series("SP500", "2006-06-01", 1200),
		"FTSE100": series("FTSE100", "2006-06-01", 1200),
	}
	p := usecase.NewPipeline(src, calendar.Default(), analytics.NewAggregator(), nil, nil, nil, usecase.PipelineConfig{
		Series:           []string{"SP500", "FTSE100"},
		Workers:          2,
		Window:           5,
		PreCrisisMonths:  6,
		PostCrisisMonths: 6,
	})
	h := NewRegimesEchoHandler(nil, p, usecase.NewQueries(p, nil, nil), checks)
	for _, mw := range runMW {
		h.LimitRuns(mw)
	}
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestLatestRunBeforeAnyRun(t *testing.T) {
	e := newTestServer(t, nil)

	rec, _ := do(t, e, http.MethodGet, "/api/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/series/SP500", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRun(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPost, "/api/runs", `{"series":["SP500","MISSING"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var rep models.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, models.RunCompletedWithSkips, rep.Status)
	require.Len(t, rep.Processed, 1)
	assert.Equal(t, "SP500", rep.Processed[0].Name)
	assert.Equal(t, 1200, rep.Processed[0].Rows)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "MISSING", rep.Skipped[0].Name)

	rec, env = do(t, e, http.MethodGet, "/api/runs/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest models.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &latest))
	assert.Equal(t, rep.ID, latest.ID)
}

func TestCreateRunRateLimited(t *testing.T) {
	e := newTestServer(t, nil, middleware.RateLimit(ratelimit.New(1, 0)))

	rec, _ := do(t, e, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are not limited
	rec, _ = do(t, e, http.MethodGet, "/api/runs/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRunValidation(t *testing.T) {
	e := newTestServer(t, nil)

	rec, _ := do(t, e, http.MethodPost, "/api/runs", `{"window":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/runs", `{"pre_crisis_months":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeriesEndpoints(t *testing.T) {
	e := newTestServer(t, nil)
	rec, _ := do(t, e, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("names", func(t *testing.T) {
		rec, env := do(t, e, http.MethodGet, "/api/series", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var ld listData
		require.NoError(t, json.Unmarshal(env.Data, &ld))
		var names []string
		require.NoError(t, json.Unmarshal(ld.Rows, &names))
		assert.Equal(t, []string{"SP500", "FTSE100"}, names)
	})

	t.Run("rows filtered by regime and range", func(t *testing.T) {
		rec, env := do(t, e, http.MethodGet, "/api/series/SP500?regime=crisis&from=2008-01-01&to=2008-01-31", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ld listData
		require.NoError(t, json.Unmarshal(env.Data, &ld))
		var rows []models.LabeledObservation
		require.NoError(t, json.Unmarshal(ld.Rows, &rows))
		assert.EqualValues(t, 31, ld.Total)
		require.Len(t, rows, 31)
		for _, r := range rows {
			assert.Equal(t, models.RegimeCrisis, r.Regime)
		}
	})

	t.Run("limit keeps total", func(t *testing.T) {
		rec, env := do(t, e, http.MethodGet, "/api/series/SP500?limit=10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var ld listData
		require.NoError(t, json.Unmarshal(env.Data, &ld))
		var rows []models.LabeledObservation
		require.NoError(t, json.Unmarshal(ld.Rows, &rows))
		assert.Len(t, rows, 10)
		assert.EqualValues(t, 1200, ld.Total)
	})

	t.Run("bad filters", func(t *testing.T) {
		rec, _ := do(t, e, http.MethodGet, "/api/series/SP500?regime=panic", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec, _ = do(t, e, http.MethodGet, "/api/series/SP500?from=2008-13-01", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec, _ = do(t, e, http.MethodGet, "/api/series/SP500?from=2008-02-01&to=2008-01-01", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown series", func(t *testing.T) {
		rec, _ := do(t, e, http.MethodGet, "/api/series/NIKKEI", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSummaryEndpoint(t *testing.T) {
	e := newTestServer(t, nil)
	rec, _ := do(t, e, http.MethodPost, "/api/runs", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, e, http.MethodGet, "/api/summaries/SP500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum summaryResponse
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, "SP500", sum.Name)
	require.Len(t, sum.Regimes, 4)
	for i, r := range models.AllRegimes() {
		assert.Equal(t, r, sum.Regimes[i].Regime)
	}

	rec, env = do(t, e, http.MethodGet, "/api/summaries/combined", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var combined summaryResponse
	require.NoError(t, json.Unmarshal(env.Data, &combined))
	days := 0
	for _, r := range combined.Regimes {
		days += r.Days
	}
	assert.Equal(t, 2400, days)

	rec, _ = do(t, e, http.MethodGet, "/api/summaries/NIKKEI", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalendarAndIndices(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodGet, "/api/calendar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ld listData
	require.NoError(t, json.Unmarshal(env.Data, &ld))
	var specs []calendar.IntervalSpec
	require.NoError(t, json.Unmarshal(ld.Rows, &specs))
	assert.Equal(t, calendar.DefaultSpecs(), specs)

	rec, env = do(t, e, http.MethodGet, "/api/indices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &ld))
	assert.EqualValues(t, len(models.DefaultIndices()), ld.Total)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, map[string]HealthCheck{
		"clickhouse": func(context.Context) error { return nil },
	})
	rec, _ := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e = newTestServer(t, map[string]HealthCheck{
		"clickhouse": func(context.Context) error { return nil },
		"redis":      func(context.Context) error { return errors.New("connection refused") },
	})
	rec, env := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "ok", status["clickhouse"])
	assert.Equal(t, "connection refused", status["redis"])
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{usecase.ErrNoRun, http.StatusNotFound},
		{fmt.Errorf("%w: X", domrepo.ErrSeriesNotFound), http.StatusNotFound},
		{usecase.ErrRunInProgress, http.StatusConflict},
		{usecase.ErrNoSeries, http.StatusBadRequest},
	}
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, writeErr(c, tc.err))
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeErr(c, errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

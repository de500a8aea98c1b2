package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	applogger "FinRegime/pkg/logger"
	"FinRegime/pkg/util"
)

const closeColumn = "Close"

// CSVSource loads yfinance-style CSV exports from <dir>/<NAME>.csv.
// The first column is the date; the close price column is located by header.
type CSVSource struct {
	dir string
	l   *applogger.Logger
}

// NewCSVSource creates a CSV backed series source.
func NewCSVSource(dir string, l *applogger.Logger) *CSVSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVSource{dir: dir, l: l}
}

// Path returns the file a series is read from.
func (s *CSVSource) Path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

func (s *CSVSource) Load(ctx context.Context, name string) (models.Series, error) {
	start := time.Now()
	path := s.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Series{}, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, path)
		}
		return models.Series{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	series, err := ParseCSV(ctx, name, f)
	if err != nil {
		return models.Series{}, fmt.Errorf("%s: %w", path, err)
	}
	s.l.Info("csv series loaded",
		applogger.String("series", name),
		applogger.String("path", path),
		applogger.Int("rows", series.Len()),
		applogger.Int("dropped_rows", series.DroppedRows),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// ParseCSV reads a dated close series. Rows whose date does not parse are
// dropped and counted, unparseable prices become missing values.
func ParseCSV(ctx context.Context, name string, r io.Reader) (models.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Series{}, fmt.Errorf("%w: empty file", domrepo.ErrMalformedSeries)
		}
		return models.Series{}, fmt.Errorf("%w: header: %v", domrepo.ErrMalformedSeries, err)
	}
	col := closeIndex(header)
	if col < 0 {
		return models.Series{}, fmt.Errorf("%w: no %s column", domrepo.ErrMalformedSeries, closeColumn)
	}

	out := models.Series{Name: name}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Series{}, fmt.Errorf("%w: line %d: %v", domrepo.ErrMalformedSeries, line, err)
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return models.Series{}, err
			}
		}
		if len(rec) == 0 {
			continue
		}

		date, ok := util.ParseDate(rec[0])
		if !ok {
			out.DroppedRows++
			continue
		}
		obs := models.PriceObservation{Date: date}
		if col < len(rec) {
			obs.Close = parsePrice(rec[col])
		}
		out.Observations = append(out.Observations, obs)
	}

	if len(out.Observations) == 0 {
		return models.Series{}, fmt.Errorf("%w: no dated rows (%d dropped)", domrepo.ErrMalformedSeries, out.DroppedRows)
	}
	out.SortByDate()
	return out, nil
}

// closeIndex prefers an exact "Close" header and falls back to a
// case-insensitive match.
func closeIndex(header []string) int {
	fallback := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == closeColumn {
			return i
		}
		if fallback < 0 && strings.EqualFold(h, closeColumn) {
			fallback = i
		}
	}
	return fallback
}

func parsePrice(s string) models.NullFloat {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return models.Missing()
	}
	return models.Some(v)
}

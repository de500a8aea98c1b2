package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinRegime/internal/domain/models"
	domrepo "FinRegime/internal/domain/repository"
	applogger "FinRegime/pkg/logger"
)

// CHSeriesSource reads daily closes from a ClickHouse table of (series, date, close).
type CHSeriesSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHSeriesSource creates a ClickHouse backed series source.
func NewCHSeriesSource(db *sql.DB, table string, l *applogger.Logger) *CHSeriesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesSource{db: db, table: table, l: l}
}

func (s *CHSeriesSource) Load(ctx context.Context, name string) (models.Series, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, close
        FROM %s
        WHERE series = ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, name)
	if err != nil {
		s.l.Error("clickhouse load_series query error",
			applogger.String("table", s.table),
			applogger.String("series", name),
			applogger.Error(err),
		)
		return models.Series{}, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	out := models.Series{Name: name}
	for rows.Next() {
		var (
			date  time.Time
			price sql.NullFloat64
		)
		if err := rows.Scan(&date, &price); err != nil {
			return models.Series{}, fmt.Errorf("scan price: %w", err)
		}
		obs := models.PriceObservation{Date: models.DateOnly(date)}
		if price.Valid {
			obs.Close = models.Some(price.Float64)
		}
		out.Observations = append(out.Observations, obs)
	}
	if err := rows.Err(); err != nil {
		return models.Series{}, fmt.Errorf("rows: %w", err)
	}
	if len(out.Observations) == 0 {
		return models.Series{}, fmt.Errorf("%w: %s in %s", domrepo.ErrSeriesNotFound, name, s.table)
	}
	out.SortByDate()

	s.l.Info("clickhouse load_series ok",
		applogger.String("table", s.table),
		applogger.String("series", name),
		applogger.Int("rows", len(out.Observations)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

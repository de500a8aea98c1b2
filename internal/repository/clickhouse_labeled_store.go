package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinRegime/internal/domain/models"
	applogger "FinRegime/pkg/logger"
)

const labeledInsertChunk = 5000

// LabeledSchema returns the idempotent DDL for the labeled panel and summary tables.
func LabeledSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.labeled_rows (
            run_id        String,
            series        LowCardinality(String),
            date          Date,
            close         Nullable(Float64),
            log_return    Nullable(Float64),
            vol_30d       Nullable(Float64),
            peak          Nullable(Float64),
            drawdown      Nullable(Float64),
            regime        LowCardinality(String),
            crisis_name   Nullable(String),
            is_crisis     UInt8,
            is_pre_crisis UInt8,
            is_high_risk  UInt8
        ) ENGINE = ReplacingMergeTree
        ORDER BY (series, date, run_id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.regime_summaries (
            run_id      String,
            series      LowCardinality(String),
            regime      LowCardinality(String),
            feature     LowCardinality(String),
            days        UInt32,
            count       UInt32,
            mean        Nullable(Float64),
            std         Nullable(Float64),
            min         Nullable(Float64),
            max         Nullable(Float64),
            created_at  DateTime
        ) ENGINE = ReplacingMergeTree(created_at)
        ORDER BY (series, regime, feature, run_id)`, database),
	}
}

// CHLabeledStore implements LabeledStore backed by ClickHouse.
type CHLabeledStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

// NewCHLabeledStore creates a labeled store writing into database.
func NewCHLabeledStore(db *sql.DB, database string, l *applogger.Logger) *CHLabeledStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHLabeledStore{db: db, database: database, l: l}
}

// StoreLabeled inserts every labeled row of s in chunked batches.
func (s *CHLabeledStore) StoreLabeled(ctx context.Context, runID string, ls models.LabeledSeries) error {
	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s.labeled_rows
        (run_id, series, date, close, log_return, vol_30d, peak, drawdown, regime, crisis_name, is_crisis, is_pre_crisis, is_high_risk)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)

	rows := ls.Observations
	for from := 0; from < len(rows); from += labeledInsertChunk {
		to := from + labeledInsertChunk
		if to > len(rows) {
			to = len(rows)
		}
		err := s.batch(ctx, q, func(stmt *sql.Stmt) error {
			for _, o := range rows[from:to] {
				if _, err := stmt.ExecContext(ctx,
					runID,
					ls.Name,
					o.Date,
					nullable(o.Close),
					nullable(o.LogReturn),
					nullable(o.RollingVolatility),
					nullable(o.RunningPeak),
					nullable(o.Drawdown),
					string(o.Regime),
					o.CrisisName,
					flag(o.IsCrisis),
					flag(o.IsPreCrisis),
					flag(o.IsHighRisk),
				); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.l.Error("clickhouse store_labeled error",
				applogger.String("series", ls.Name),
				applogger.String("run_id", runID),
				applogger.Int("offset", from),
				applogger.Error(err),
			)
			return fmt.Errorf("store labeled %s: %w", ls.Name, err)
		}
	}

	s.l.Info("clickhouse store_labeled ok",
		applogger.String("series", ls.Name),
		applogger.String("run_id", runID),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// StoreSummary writes one row per (regime, feature).
func (s *CHLabeledStore) StoreSummary(ctx context.Context, runID string, sum models.RegimeSummary) error {
	q := fmt.Sprintf(`INSERT INTO %s.regime_summaries
        (run_id, series, regime, feature, days, count, mean, std, min, max, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	now := time.Now().UTC()

	err := s.batch(ctx, q, func(stmt *sql.Stmt) error {
		for _, row := range sum.Ordered() {
			for _, f := range featureStats(row.Stats) {
				if _, err := stmt.ExecContext(ctx,
					runID,
					sum.Name,
					string(row.Regime),
					f.name,
					uint32(row.Stats.Days),
					uint32(f.stats.Count),
					nullable(f.stats.Mean),
					nullable(f.stats.Std),
					nullable(f.stats.Min),
					nullable(f.stats.Max),
					now,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store summary %s: %w", sum.Name, err)
	}
	return nil
}

// Health pings the database.
func (s *CHLabeledStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// batch runs fn inside a transaction with a prepared statement, which the
// ClickHouse driver sends as a single block insert.
func (s *CHLabeledStore) batch(ctx context.Context, q string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type namedStats struct {
	name  string
	stats models.Stats
}

func featureStats(st models.RegimeStats) []namedStats {
	return []namedStats{
		{"log_return", st.LogReturn},
		{"vol_30d", st.RollingVolatility},
		{"drawdown", st.Drawdown},
	}
}

func nullable(n models.NullFloat) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// ErrNoHost is returned by NewClient when Config.Host is empty.
var ErrNoHost = errors.New("clickhouse: host is required")

// Client owns a database/sql pool backed by the clickhouse-go driver.
type Client struct {
	db       *sql.DB
	database string
}

// NewClient opens a pool for cfg and pings it once within the dial timeout.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, ErrNoHost
	}
	cfg = cfg.withDefaults()

	db := ch.OpenDB(cfg.options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", cfg.Addr(), err)
	}

	return &Client{db: db, database: cfg.Database}, nil
}

func (c *Client) DB() *sql.DB { return c.db }

// Database returns the database tables are created in.
func (c *Client) Database() string { return c.database }

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs idempotent DDL statements in order and stops at the first failure.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema statement %d: %w", i, err)
		}
	}
	return nil
}

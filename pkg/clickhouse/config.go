package clickhouse

import (
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Config describes one ClickHouse endpoint. Zero values take the defaults
// listed on each field.
type Config struct {
	Host     string
	Port     int // 9000
	Database string
	User     string
	Password string
	UseHTTP  bool

	// Server side insert and query settings.
	AsyncInsert      bool
	WaitForAsync     bool
	MaxExecutionTime time.Duration

	DialTimeout     time.Duration // 5s
	ReadTimeout     time.Duration // 10s
	MaxOpenConns    int           // 10
	MaxIdleConns    int           // 5
	ConnMaxLifetime time.Duration // 5m
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	return c
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) settings() ch.Settings {
	s := ch.Settings{}
	if c.MaxExecutionTime > 0 {
		s["max_execution_time"] = int(c.MaxExecutionTime.Seconds())
	}
	if c.AsyncInsert {
		s["async_insert"] = 1
		if c.WaitForAsync {
			s["wait_for_async_insert"] = 1
		}
	}
	return s
}

func (c Config) options() *ch.Options {
	protocol := ch.Native
	if c.UseHTTP {
		protocol = ch.HTTP
	}
	return &ch.Options{
		Addr:     []string{c.Addr()},
		Protocol: protocol,
		Auth: ch.Auth{
			Database: c.Database,
			Username: c.User,
			Password: c.Password,
		},
		Settings:        c.settings(),
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	cfg := Config{
		Host:             "ch.local",
		Database:         "finregime",
		User:             "default",
		Password:         "secret",
		UseHTTP:          true,
		AsyncInsert:      true,
		WaitForAsync:     true,
		MaxExecutionTime: 90 * time.Second,
		ReadTimeout:      20 * time.Second,
	}.withDefaults()

	o := cfg.options()
	assert.Equal(t, []string{"ch.local:9000"}, o.Addr)
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, "finregime", o.Auth.Database)
	assert.Equal(t, "secret", o.Auth.Password)
	assert.Equal(t, 90, o.Settings["max_execution_time"])
	assert.Equal(t, 1, o.Settings["async_insert"])
	assert.Equal(t, 1, o.Settings["wait_for_async_insert"])
	assert.Equal(t, 5*time.Second, o.DialTimeout)
	assert.Equal(t, 20*time.Second, o.ReadTimeout)
	assert.Equal(t, 10, o.MaxOpenConns)
}

func TestSettingsOmitUnset(t *testing.T) {
	s := Config{Host: "h", WaitForAsync: true}.settings()
	assert.Empty(t, s)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNoHost)
}

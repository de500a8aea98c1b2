package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheSetGet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "finregime")

	mock.ExpectSet("finregime:summary:SP500", []byte(`{"name":"SP500","mean":1}`), time.Hour).SetVal("OK")
	mock.ExpectGet("finregime:summary:SP500").SetVal(`{"name":"SP500","mean":1}`)
	mock.ExpectGet("finregime:summary:NASDAQ").RedisNil()

	require.NoError(t, c.Set(ctx, "summary:SP500", payload{Name: "SP500", Mean: 1}, time.Hour))

	var got payload
	require.NoError(t, c.Get(ctx, "summary:SP500", &got))
	assert.Equal(t, payload{Name: "SP500", Mean: 1}, got)

	assert.ErrorIs(t, c.Get(ctx, "summary:NASDAQ", &got), ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheExists(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "p")

	mock.ExpectExists("p:a", "p:b").SetVal(1)

	ok, err := c.Exists(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

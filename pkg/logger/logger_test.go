package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.With(String("run_id", "r1")).Info("series done",
		String("series", "SP500"),
		Int("rows", 42),
		Duration("took", 1500*time.Millisecond),
		Strings("regimes", []string{"crisis", "normal"}),
	)
	l.Debug("dropped")
	l.Warn("careful", Error(errors.New("late")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "series done", first["message"])
	assert.Equal(t, "r1", first["run_id"])
	assert.Equal(t, "SP500", first["series"])
	assert.EqualValues(t, 42, first["rows"])
	assert.EqualValues(t, 1500, first["took"])
	assert.Equal(t, "crisis, normal", first["regimes"])
	assert.Contains(t, first["caller"], "logger_test.go")

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "late", second["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

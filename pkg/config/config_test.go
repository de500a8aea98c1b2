package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRegime/internal/services/calendar"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, []string{"SP500", "NASDAQ", "STOXX50", "FTSE100"}, c.Pipeline.Series)
	assert.Equal(t, 30, c.Pipeline.VolatilityWindow)
	assert.Equal(t, 6, c.Pipeline.PreCrisisMonths)
	assert.Equal(t, 6, c.Pipeline.PostCrisisMonths)
	assert.Equal(t, "csv", c.Source.Type)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, 256, c.Cache.MaxEntries)
	assert.Equal(t, 10, c.Cache.Redis.PoolSize)

	cal, err := c.CrisisCalendar()
	require.NoError(t, err)
	assert.Equal(t, calendar.DefaultSpecs(), cal.Specs())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
pipeline:
  series: [SP500]
  pre_crisis_months: 1
  post_crisis_months: 0
calendar:
  - name: synthetic
    start: "2020-03-01"
    end: "2020-03-31"
`))
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, []string{"SP500"}, c.Pipeline.Series)
	assert.Equal(t, 1, c.Pipeline.PreCrisisMonths)
	assert.Equal(t, 0, c.Pipeline.PostCrisisMonths)
	assert.Equal(t, 4, c.Pipeline.Workers)

	cal, err := c.CrisisCalendar()
	require.NoError(t, err)
	require.Equal(t, 1, cal.Len())
	assert.Equal(t, "synthetic", cal.Intervals()[0].Name)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"reversed calendar": `
calendar:
  - {name: bad, start: "2020-05-01", end: "2020-03-31"}
`,
		"unparseable calendar date": `
calendar:
  - {name: bad, start: "March 2020", end: "2020-03-31"}
`,
		"negative buffer": `
pipeline:
  pre_crisis_months: -1
`,
		"window too small": `
pipeline:
  volatility_window: 1
`,
		"unknown source": `
source:
  type: yahoo
`,
		"kafka without brokers": `
kafka:
  enabled: true
`,
		"duplicate series": `
pipeline:
  series: [SP500, SP500]
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: dev\n"), 0o644))

	t.Setenv("SERIES", "SP500, FTSE100")
	t.Setenv("PRE_CRISIS_MONTHS", "3")
	t.Setenv("DATA_DIR", "/srv/data")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SP500", "FTSE100"}, c.Pipeline.Series)
	assert.Equal(t, 3, c.Pipeline.PreCrisisMonths)
	assert.Equal(t, "/srv/data", c.Source.DataDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

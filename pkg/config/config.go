package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FinRegime/internal/services/calendar"
	"FinRegime/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
		Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output    string `yaml:"output" default:"stdout" validate:"required"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"finregime.logs"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100" validate:"gte=1"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host"`
		RunOnStart      bool          `yaml:"run_on_start"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// RunRateLimit throttles POST /api/runs per client IP; burst 0 disables it.
		RunRateLimit struct {
			Burst        float64 `yaml:"burst" default:"3" validate:"gte=0"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"0.05" validate:"gte=0"`
		} `yaml:"run_rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline struct {
		Series           []string `yaml:"series" default:"[\"SP500\",\"NASDAQ\",\"STOXX50\",\"FTSE100\"]" validate:"min=1,unique,dive,required"`
		Workers          int      `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		VolatilityWindow int      `yaml:"volatility_window" default:"30" validate:"gte=2"`
		PreCrisisMonths  int      `yaml:"pre_crisis_months" default:"6" validate:"gte=0,lte=120"`
		PostCrisisMonths int      `yaml:"post_crisis_months" default:"6" validate:"gte=0,lte=120"`
	} `yaml:"pipeline"`
	// Calendar overrides the built-in crisis list when non-empty.
	Calendar []calendar.IntervalSpec `yaml:"calendar"`
	Source   struct {
		Type    string `yaml:"type" default:"csv" validate:"oneof=csv clickhouse"`
		DataDir string `yaml:"data_dir" default:"data/raw"`
		Table   string `yaml:"table" default:"index_prices"`
	} `yaml:"source"`
	Export struct {
		Enabled bool   `yaml:"enabled"`
		OutDir  string `yaml:"out_dir" default:"results"`
		XLSX    bool   `yaml:"xlsx"`
	} `yaml:"export"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finregime"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"finregime.runs"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	Cache struct {
		Type            string        `yaml:"type" default:"memory" validate:"oneof=memory redis layered none"`
		TTL             time.Duration `yaml:"ttl" default:"24h"`
		MaxEntries      int           `yaml:"max_entries" default:"256" validate:"gte=1"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
		Redis           struct {
			Addr        string        `yaml:"addr" default:"localhost:6379"`
			Password    string        `yaml:"password"`
			DB          int           `yaml:"db"`
			Prefix      string        `yaml:"prefix" default:"finregime"`
			PoolSize    int           `yaml:"pool_size" default:"10"`
			MinIdle     int           `yaml:"min_idle" default:"2"`
			PoolTimeout time.Duration `yaml:"pool_timeout" default:"4s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Parse applies defaults, then the YAML document on top, then validates.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment lookup function.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("SERIES"); v != "" {
		c.Pipeline.Series = util.SplitList(v)
	}
	if v := getenv("DATA_DIR"); v != "" {
		c.Source.DataDir = v
	}
	if v := getenv("PRE_CRISIS_MONTHS"); v != "" {
		c.Pipeline.PreCrisisMonths = util.ParseIntDefault(v, c.Pipeline.PreCrisisMonths)
	}
	if v := getenv("POST_CRISIS_MONTHS"); v != "" {
		c.Pipeline.PostCrisisMonths = util.ParseIntDefault(v, c.Pipeline.PostCrisisMonths)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
}

// Validate checks struct tags and cross-field rules, including the crisis calendar.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Source.Type == "csv" && c.Source.DataDir == "" {
		return fmt.Errorf("source.data_dir is required for csv source")
	}
	if c.Source.Type == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("source.type clickhouse requires clickhouse.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	if c.Export.Enabled && c.Export.OutDir == "" {
		return fmt.Errorf("export.out_dir is required when export is enabled")
	}
	if _, err := c.CrisisCalendar(); err != nil {
		return err
	}
	return nil
}

// CrisisCalendar builds the configured calendar, falling back to the built-in one.
func (c *Config) CrisisCalendar() (*calendar.Calendar, error) {
	if len(c.Calendar) == 0 {
		return calendar.Default(), nil
	}
	cal, err := calendar.Parse(c.Calendar)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	return cal, nil
}

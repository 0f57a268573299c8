// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/jorei-crawler/internal/jorei"
	"github.com/JakeFAU/jorei-crawler/internal/query"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Output  OutputConfig  `mapstructure:"output"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig controls how the search API is reached.
type APIConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	MaxBodyBytes       int           `mapstructure:"max_body_bytes"`
}

// CrawlConfig governs pagination and pacing.
type CrawlConfig struct {
	Rows int `mapstructure:"rows"`
	// Sleep is decoded from crawl.sleep by Load: a bare integer is
	// milliseconds, anything else a Go duration.
	Sleep time.Duration `mapstructure:"-"`
	Start string        `mapstructure:"start"`
	End   string        `mapstructure:"end"`
}

// OutputConfig sets where records and the index are written.
type OutputConfig struct {
	// Dir is a local directory or gs://bucket/prefix.
	Dir   string `mapstructure:"dir"`
	Index string `mapstructure:"index"`
}

// CatalogConfig enables the Postgres index mirror when DSN is set.
type CatalogConfig struct {
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
	RunsTable string `mapstructure:"runs_table"`
	MaxConns  int32  `mapstructure:"max_conns"`
}

// MetricsConfig enables the metrics listener when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"output":     "output.dir",
	"index":      "output.index",
	"start":      "crawl.start",
	"end":        "crawl.end",
	"rows":       "crawl.rows",
	"sleep-time": "crawl.sleep",
}

// Load builds a Config from defaults, an optional file, CRAWLER_* environment
// variables and, when flags is non-nil, any flags the user set.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	sleep, err := parseSleep(v.GetString("crawl.sleep"))
	if err != nil {
		return Config{}, err
	}
	cfg.Crawl.Sleep = sleep

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", query.DefaultBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "jorei-crawler/1.0 (+https://github.com/JakeFAU/jorei-crawler)")
	v.SetDefault("api.insecure_skip_verify", true)
	v.SetDefault("api.requests_per_second", 0)
	v.SetDefault("api.max_body_bytes", 32*1024*1024)
	v.SetDefault("crawl.rows", 50)
	v.SetDefault("crawl.sleep", "500")
	v.SetDefault("crawl.start", "")
	v.SetDefault("crawl.end", "")
	v.SetDefault("output.dir", "")
	v.SetDefault("output.index", "")
	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.table", "jorei_index")
	v.SetDefault("catalog.runs_table", "jorei_runs")
	v.SetDefault("catalog.max_conns", 4)
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

func parseSleep(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("crawl.sleep: %q is neither milliseconds nor a duration", raw)
	}
	return d, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	if strings.TrimSpace(c.Output.Index) == "" {
		return fmt.Errorf("output.index is required")
	}
	if c.Crawl.Rows <= 0 {
		return fmt.Errorf("crawl.rows must be > 0")
	}
	if c.Crawl.Sleep < 0 {
		return fmt.Errorf("crawl.sleep must be >= 0")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must be >= 0")
	}
	if _, err := c.Range(); err != nil {
		return err
	}
	return nil
}

// Range parses the configured announcement-date bounds.
func (c Config) Range() (jorei.DateRange, error) {
	start, err := jorei.ParseBound(c.Crawl.Start)
	if err != nil {
		return jorei.DateRange{}, fmt.Errorf("crawl.start: %w", err)
	}
	end, err := jorei.ParseBound(c.Crawl.End)
	if err != nil {
		return jorei.DateRange{}, fmt.Errorf("crawl.end: %w", err)
	}
	r := jorei.DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return jorei.DateRange{}, err
	}
	return r, nil
}

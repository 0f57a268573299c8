package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/JakeFAU/jorei-crawler/internal/query"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
api:
  base_url: http://127.0.0.1:9999/select
  timeout: 45s
  user_agent: test-agent
  insecure_skip_verify: false
  requests_per_second: 2.5
crawl:
  rows: 25
  sleep: 1s
  start: "2020"
  end: "2021"
output:
  dir: gs://bucket/jorei
  index: /tmp/index.json
catalog:
  dsn: postgres://localhost/jorei
  table: jorei_catalog
metrics:
  listen_addr: ":9100"
logging:
  development: true
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://127.0.0.1:9999/select" || cfg.API.Timeout != 45*time.Second {
		t.Fatalf("expected api overrides to apply: %+v", cfg.API)
	}
	if cfg.API.InsecureSkipVerify || cfg.API.RequestsPerSecond != 2.5 {
		t.Fatalf("expected transport overrides to apply: %+v", cfg.API)
	}
	if cfg.Crawl.Rows != 25 || cfg.Crawl.Sleep != time.Second {
		t.Fatalf("expected crawl overrides to apply: %+v", cfg.Crawl)
	}
	if cfg.Output.Dir != "gs://bucket/jorei" || cfg.Catalog.Table != "jorei_catalog" {
		t.Fatalf("expected output/catalog overrides: %+v %+v", cfg.Output, cfg.Catalog)
	}
	if cfg.Metrics.ListenAddr != ":9100" || !cfg.Logging.Development {
		t.Fatalf("expected metrics/logging overrides")
	}

	r, err := cfg.Range()
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if r.Start.String() != "2020-01-01" || r.End.String() != "2021-01-01" {
		t.Fatalf("unexpected range %s..%s", r.Start, r.End)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "output:\n  dir: out\n  index: index.json\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != query.DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.API.BaseURL)
	}
	if cfg.Crawl.Rows != 50 || cfg.Crawl.Sleep != 500*time.Millisecond {
		t.Fatalf("expected rows=50 sleep=500ms, got %+v", cfg.Crawl)
	}
	if !cfg.API.InsecureSkipVerify || cfg.API.Timeout != 30*time.Second {
		t.Fatalf("unexpected api defaults: %+v", cfg.API)
	}
	if cfg.Catalog.Table != "jorei_index" || cfg.Catalog.DSN != "" {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	r, err := cfg.Range()
	if err != nil || !r.Unbounded() {
		t.Fatalf("expected unbounded range, got %+v err=%v", r, err)
	}
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "output:\n  dir: from-file\n  index: index.json\ncrawl:\n  rows: 10\n")
	flags := pflag.NewFlagSet("crawl", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.String("index", "", "")
	flags.String("start", "", "")
	flags.String("end", "", "")
	flags.Int("rows", 50, "")
	flags.String("sleep-time", "500", "")
	if err := flags.Parse([]string{"--output", "from-flag", "--sleep-time", "1500", "--start", "2019"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Dir != "from-flag" {
		t.Fatalf("expected flag to win, got %q", cfg.Output.Dir)
	}
	if cfg.Crawl.Rows != 10 {
		t.Fatalf("expected unset flag to defer to file, got %d", cfg.Crawl.Rows)
	}
	if cfg.Crawl.Sleep != 1500*time.Millisecond {
		t.Fatalf("expected 1500ms, got %v", cfg.Crawl.Sleep)
	}
	if cfg.Crawl.Start != "2019" {
		t.Fatalf("expected start 2019, got %q", cfg.Crawl.Start)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CRAWLER_CRAWL_ROWS", "7")
	t.Setenv("CRAWLER_CRAWL_SLEEP", "2s")

	cfg, err := Load(writeConfig(t, "output:\n  dir: out\n  index: index.json\n"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.Rows != 7 || cfg.Crawl.Sleep != 2*time.Second {
		t.Fatalf("expected env overrides, got %+v", cfg.Crawl)
	}
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing output", "output:\n  index: i.json\n", "output.dir"},
		{"missing index", "output:\n  dir: out\n", "output.index"},
		{"zero rows", "output:\n  dir: out\n  index: i.json\ncrawl:\n  rows: 0\n", "crawl.rows"},
		{"bad sleep", "output:\n  dir: out\n  index: i.json\ncrawl:\n  sleep: soon\n", "crawl.sleep"},
		{"negative sleep", "output:\n  dir: out\n  index: i.json\ncrawl:\n  sleep: -1s\n", "crawl.sleep"},
		{"bad start", "output:\n  dir: out\n  index: i.json\ncrawl:\n  start: twenty\n", "crawl.start"},
		{"full date end", "output:\n  dir: out\n  index: i.json\ncrawl:\n  end: \"2022-06-15\"\n", "crawl.end"},
		{"inverted range", "output:\n  dir: out\n  index: i.json\ncrawl:\n  start: \"2023\"\n  end: \"2022\"\n", "after end"},
		{"negative rps", "output:\n  dir: out\n  index: i.json\napi:\n  requests_per_second: -1\n", "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.body), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

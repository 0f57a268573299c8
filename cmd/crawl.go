package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jorei-crawler/internal/apiclient"
	"github.com/JakeFAU/jorei-crawler/internal/clock/system"
	"github.com/JakeFAU/jorei-crawler/internal/config"
	"github.com/JakeFAU/jorei-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/jorei-crawler/internal/fetcher/colly"
	idgen "github.com/JakeFAU/jorei-crawler/internal/id/uuid"
	"github.com/JakeFAU/jorei-crawler/internal/logging"
	"github.com/JakeFAU/jorei-crawler/internal/metrics"
	"github.com/JakeFAU/jorei-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/jorei-crawler/internal/progress"
	"github.com/JakeFAU/jorei-crawler/internal/progress/sinks"
	"github.com/JakeFAU/jorei-crawler/internal/query"
	"github.com/JakeFAU/jorei-crawler/internal/sink"
	"github.com/JakeFAU/jorei-crawler/internal/storage/gcs"
	"github.com/JakeFAU/jorei-crawler/internal/storage/local"
	"github.com/JakeFAU/jorei-crawler/internal/storage/postgres"
)

const shutdownTimeout = 5 * time.Second

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the jorei API and writes records plus an index",
		Long: `Queries the search API once to learn the total record count, then visits
every result page in order, fetching each record's detail document. Records are
written to --output as <id>.json (a local directory or gs://bucket/prefix) and
the index of all records is written to --index when the crawl completes.`,
		Example: `  jorei-crawler crawl --output data --index index.json --start 2020 --end 2022`,
		RunE:    runCrawlCommand,
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "directory (or gs://bucket/prefix) for record JSON files")
	flags.StringP("index", "i", "", "path of the JSON index written at the end of the crawl")
	flags.StringP("start", "s", "", "first announcement year (YYYY); only the year is queried")
	flags.StringP("end", "e", "", "last announcement year (YYYY); only the year is queried")
	flags.IntP("rows", "r", 50, "records per list page")
	flags.String("sleep-time", "500", "pause after each page, in milliseconds or as a duration")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx := cmd.Context()
	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("crawl interrupted; index not written")
		}
		return fmt.Errorf("crawl: %w", err)
	}
	logger.Info("crawl finished",
		zap.Stringer("run_id", summary.RunID),
		zap.Int("total", summary.Total),
		zap.Int("pages", summary.Pages),
		zap.Int("records", summary.Records),
	)
	return nil
}

// buildEngine wires the crawl pipeline. cleanup is always non-nil and releases
// whatever was opened, in reverse order.
func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*crawler.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, cleanup, err
	}
	progressSinks := []progress.Sink{sinks.NewLogSink(logger), promSink}

	sinkCfg := sink.Config{IndexPath: cfg.Output.Index}
	if cfg.Catalog.DSN != "" {
		catalog, err := postgres.NewIndexStore(ctx, postgres.IndexStoreConfig{
			DSN:      cfg.Catalog.DSN,
			Table:    cfg.Catalog.Table,
			MaxConns: cfg.Catalog.MaxConns,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("open catalog: %w", err)
		}
		closers = append(closers, catalog.Close)
		runs, err := catalog.RunStore(cfg.Catalog.RunsTable)
		if err != nil {
			return nil, cleanup, err
		}
		sinkCfg.Catalog = catalog
		progressSinks = append(progressSinks, runs)
	}

	// Sinks outlive cancellation so an interrupted run is still recorded.
	dispatcher := progress.NewDispatcher(context.WithoutCancel(ctx), logger, progressSinks...)
	closers = append(closers, func() {
		if err := dispatcher.Close(context.Background()); err != nil {
			logger.Warn("failed to close progress sinks", zap.Error(err))
		}
	})

	if cfg.Metrics.ListenAddr != "" {
		httpMetrics, err := metrics.NewHTTPMetrics(reg)
		if err != nil {
			return nil, cleanup, err
		}
		srv := metrics.NewServer(cfg.Metrics.ListenAddr, metrics.NewRouter(reg, httpMetrics), logger)
		if _, err := srv.Start(); err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to stop metrics server", zap.Error(err))
			}
		})
	}

	fetcherCfg := collyfetcher.Config{
		UserAgent:          cfg.API.UserAgent,
		Timeout:            cfg.API.Timeout,
		MaxBodyBytes:       cfg.API.MaxBodyBytes,
		InsecureSkipVerify: cfg.API.InsecureSkipVerify,
	}
	if cfg.API.RequestsPerSecond > 0 {
		fetcherCfg.Limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.API.RequestsPerSecond,
			DefaultBurst: 1,
			OnDelay:      promSink.ObserveRateLimitDelay,
		})
	}
	client, err := apiclient.New(collyfetcher.New(fetcherCfg))
	if err != nil {
		return nil, cleanup, err
	}
	builder, err := query.NewBuilder(cfg.API.BaseURL)
	if err != nil {
		return nil, cleanup, fmt.Errorf("api.base_url: %w", err)
	}

	store, closeStore, err := openBlobStore(ctx, cfg.Output.Dir)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeStore)

	out, err := sink.New(store, sinkCfg)
	if err != nil {
		return nil, cleanup, err
	}

	r, err := cfg.Range()
	if err != nil {
		return nil, cleanup, err
	}
	clock := system.New()
	engine, err := crawler.New(crawler.Config{Range: r, Rows: cfg.Crawl.Rows}, crawler.Deps{
		API:      client,
		URLs:     builder,
		Sink:     out,
		Pause:    ratelimit.NewPause(cfg.Crawl.Sleep, clock),
		Clock:    clock,
		IDs:      idgen.New(),
		Progress: dispatcher,
	})
	if err != nil {
		return nil, cleanup, err
	}

	logger.Debug("crawl configured",
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("output", cfg.Output.Dir),
		zap.String("index", cfg.Output.Index),
		zap.Int("rows", cfg.Crawl.Rows),
		zap.Duration("sleep", cfg.Crawl.Sleep),
		zap.Bool("catalog", cfg.Catalog.DSN != ""),
	)
	return engine, cleanup, nil
}

// openBlobStore picks GCS for gs:// locations and the local filesystem
// otherwise.
func openBlobStore(ctx context.Context, location string) (sink.BlobStore, func(), error) {
	if !gcs.IsURI(location) {
		store, err := local.New(local.Config{BaseDir: location})
		if err != nil {
			return nil, nil, fmt.Errorf("open output dir: %w", err)
		}
		return store, func() {}, nil
	}

	gcsCfg, err := gcs.ParseURI(location)
	if err != nil {
		return nil, nil, err
	}
	client, err := gcsstorage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create gcs client: %w", err)
	}
	store, err := gcs.New(client, gcsCfg)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

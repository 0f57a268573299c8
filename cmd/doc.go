// Package cmd hosts the jorei-crawler CLI.
//
// Architecture overview:
//   - Query builder (internal/query) renders list and detail URLs for the reiki select endpoint.
//   - API client (internal/apiclient) decodes responses fetched by a dedicated Colly collector
//     (internal/fetcher/colly) whose transport skips certificate checks for the jorei host only.
//   - Engine (internal/crawler) runs bootstrap, then pages 0..total/rows in order, one detail query per
//     listed id, with a fixed pause (internal/policy/ratelimit) after each page.
//   - Output (internal/sink) writes <id>.json through a local or GCS blob store and writes the index
//     atomically once the last page is done. An aborted run leaves no index.
//   - Progress events fan out to zap log lines and Prometheus collectors (internal/progress/sinks);
//     metrics.listen_addr exposes them with /healthz while the crawl runs.
//
// Quick checklist:
//   - Run locally: go run . crawl --output data --index index.json --start 2020 --end 2022
//   - Every flag has a CRAWLER_* environment equivalent (CRAWLER_OUTPUT_DIR, CRAWLER_CRAWL_ROWS, ...).
//   - Set CRAWLER_CATALOG_DSN to mirror the index into Postgres.
package cmd

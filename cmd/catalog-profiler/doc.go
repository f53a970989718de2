// Package main hosts the catalog-profiler entrypoint, for `go install ./cmd/catalog-profiler`.
//
// Architecture overview:
//   - Collect: internal/source runs one package_search against the catalog (internal/catalog over the Colly
//     fetcher) and writes the returned ids, in order, to the identifier list file. A catalog failure is fatal.
//   - Acquire: internal/acquire walks the list. Datasets whose sample slot exists are skipped before any network
//     call; otherwise package_show picks the first CSV resource and its first rows (100 by default) are written
//     create-only to the configured SampleStore (local dir, GCS, or S3 via minio).
//   - Profile: internal/worker walks the list again. For each dataset it re-reads metadata, profiles the stored
//     sample through internal/profile and the internal/inference model, appends one report row per column, then
//     records the dataset in the optional ledger (SQLite or Postgres) and publishes a Pub/Sub event when a topic is
//     configured.
//   - Configuration & plumbing: Viper populates config from a YAML file and PROFILER_* env vars; zap writes per-item
//     status lines to stdout; Prometheus counters are exported to a node-exporter textfile when configured.
//
// Operational notes:
//   - Everything runs sequentially in one goroutine. Two operators sharing the same storage can race.
//   - http.requests_per_second paces requests per host; http.blocked_hosts refuses hosts outright, so their
//     resources fail as records_unavailable.
//   - Failures for one dataset are logged with its id and a reason, then skipped. Catalog, report and ledger
//     failures stop the run.
//   - Without a ledger the report is never deduplicated across runs: re-running profile appends the same rows again.
//
// Quick checklist:
//   - Configure env vars: PROFILER_CATALOG_BASE_URL, PROFILER_CATALOG_QUERY, PROFILER_STORAGE_BACKEND and friends,
//     PROFILER_LEDGER_BACKEND/PROFILER_LEDGER_DSN for cross-run dedup, PROFILER_PUBSUB_* for events.
//   - Run locally: go run ./cmd/catalog-profiler run --config config.yaml
package main

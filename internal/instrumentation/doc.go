// Package instrumentation provides OpenTelemetry metrics and tracing for
// gmail-file-downloader.
//
// Instrumentation is off by default. It is turned on with
// INSTRUMENTATION_ENABLED=true or by passing --metrics-addr, which also serves
// the Prometheus registry over HTTP for the duration of a download run.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Gmail API calls by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Gmail API call durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of authorization bootstraps by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Download Metrics:
//   - pages_fetched_total: Counter of message list pages
//   - messages_processed_total: Counter of messages inspected
//   - attachments_total: Counter of attachments by result (saved, skipped)
//   - attachment_bytes_total: Counter of bytes written to disk
//
// # Tracing
//
// Spans are created for the download run (download.run) and for every Gmail
// API call (google.gmail.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: Use plain HTTP for OTLP export
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: gmail-file-downloader)
package instrumentation

// Package server runs the metrics endpoint that is exposed while a download
// is in progress.
//
// MetricsServer serves /metrics from a Prometheus gatherer, by default the
// global registry the OpenTelemetry Prometheus exporter registers with, and
// /healthz for liveness checks. It only exists when instrumentation is
// enabled with the Prometheus exporter.
package server

// Package metrics records build, stage and per-document metrics.
//
// Components receive a Recorder; NoopRecorder is the default so callers never
// nil-check. PrometheusRecorder backs the real implementation and can write
// its registry as a node-exporter textfile after each build.
package metrics

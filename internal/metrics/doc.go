// Package metrics provides counters and timings for generation runs.
//
// Components receive a Recorder through their options and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	gen := pipeline.New(pipeline.Options{Recorder: metrics.NoopRecorder{}})
//
// A batch CLI has no scrape endpoint. When a textfile path is configured the
// CLI uses a PrometheusRecorder and writes its registry after each run for the
// node-exporter textfile collector.
package metrics

// Package metrics records stage and step timings.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing has to check for nil:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Metrics.Textfile != "" {
//	    rec = metrics.NewPrometheusRecorder(nil)
//	}
//
// A CI job is too short-lived to be scraped, so the Prometheus recorder is
// flushed once at exit in the text exposition format, ready for the node
// exporter's textfile collector.
package metrics

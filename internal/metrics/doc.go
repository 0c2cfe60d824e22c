// Package metrics records what each evaluation run decided.
//
// Components depend on the Recorder interface and default to NoopRecorder, so
// metrics cost nothing unless a PrometheusRecorder is injected:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics

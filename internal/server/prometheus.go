// prometheus.go - Prometheus text-format exporter for the internal
// metrics counters.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// PrometheusExporter converts internal metrics to Prometheus format
type PrometheusExporter struct {
	version string
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(version string) *PrometheusExporter {
	if version == "" {
		version = "dev"
	}
	return &PrometheusExporter{version: version}
}

// Handler returns an HTTP handler for the /metrics endpoint
func (p *PrometheusExporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := GetMetrics().Snapshot()

		var output strings.Builder

		output.WriteString("# HELP prep_info Application version info\n")
		output.WriteString("# TYPE prep_info gauge\n")
		output.WriteString(fmt.Sprintf("prep_info{version=%q} 1\n\n", p.version))

		counter := func(name, help string, value int64) {
			output.WriteString(fmt.Sprintf("# HELP %s %s\n", name, help))
			output.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
			output.WriteString(fmt.Sprintf("%s %d\n\n", name, value))
		}

		counter("prep_requests_total", "Total number of HTTP requests", snapshot.RequestsTotal)
		counter("prep_request_errors_4xx_total", "Total number of 4xx responses", snapshot.RequestErrors4xx)
		counter("prep_request_errors_5xx_total", "Total number of 5xx responses", snapshot.RequestErrors5xx)

		counter("prep_kv_pulls_total", "Total number of key-value mapping pulls", snapshot.KVPullsTotal)
		counter("prep_kv_pushes_total", "Total number of key-value push batches", snapshot.KVPushesTotal)
		counter("prep_kv_keys_saved_total", "Total number of keys upserted", snapshot.KVKeysSavedTotal)
		counter("prep_kv_deletes_total", "Total number of key deletions", snapshot.KVDeletesTotal)

		counter("prep_uploads_total", "Total number of blob uploads", snapshot.UploadsTotal)
		counter("prep_upload_bytes_total", "Total bytes uploaded", snapshot.UploadBytesTotal)
		counter("prep_downloads_total", "Total number of blob downloads", snapshot.DownloadsTotal)
		counter("prep_download_bytes_total", "Total bytes downloaded", snapshot.DownloadBytesTotal)

		counter("prep_login_attempts_total", "Total number of login attempts", snapshot.LoginAttemptsTotal)
		counter("prep_login_failures_total", "Total number of failed logins", snapshot.LoginFailuresTotal)

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(output.String()))
	}
}

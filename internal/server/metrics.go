package server

import "sync"

// Metrics holds application metrics
type Metrics struct {
	mu sync.RWMutex

	// KV sync metrics
	kvPullsTotal     int64
	kvPushesTotal    int64
	kvKeysSavedTotal int64
	kvDeletesTotal   int64

	// Blob metrics (PDF + general repositories)
	uploadsTotal       int64
	uploadBytesTotal   int64
	downloadsTotal     int64
	downloadBytesTotal int64

	// Auth metrics
	loginAttemptsTotal int64
	loginSuccessTotal  int64
	loginFailuresTotal int64

	// System metrics
	requestsTotal    int64
	requestErrors5xx int64
	requestErrors4xx int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordKVPull records a full mapping pull
func (m *Metrics) RecordKVPull() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kvPullsTotal++
}

// RecordKVPush records a push batch and how many keys it saved
func (m *Metrics) RecordKVPush(saved int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kvPushesTotal++
	m.kvKeysSavedTotal += int64(saved)
}

// RecordKVDelete records a key deletion
func (m *Metrics) RecordKVDelete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kvDeletesTotal++
}

// RecordUpload records a successful blob upload
func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

// RecordDownload records a successful blob download
func (m *Metrics) RecordDownload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
}

// RecordLoginAttempt records a login attempt
func (m *Metrics) RecordLoginAttempt(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginAttemptsTotal++
	if success {
		m.loginSuccessTotal++
	} else {
		m.loginFailuresTotal++
	}
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++

	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		KVPullsTotal:       m.kvPullsTotal,
		KVPushesTotal:      m.kvPushesTotal,
		KVKeysSavedTotal:   m.kvKeysSavedTotal,
		KVDeletesTotal:     m.kvDeletesTotal,
		UploadsTotal:       m.uploadsTotal,
		UploadBytesTotal:   m.uploadBytesTotal,
		DownloadsTotal:     m.downloadsTotal,
		DownloadBytesTotal: m.downloadBytesTotal,
		LoginAttemptsTotal: m.loginAttemptsTotal,
		LoginSuccessTotal:  m.loginSuccessTotal,
		LoginFailuresTotal: m.loginFailuresTotal,
		RequestsTotal:      m.requestsTotal,
		RequestErrors5xx:   m.requestErrors5xx,
		RequestErrors4xx:   m.requestErrors4xx,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	// KV sync metrics
	KVPullsTotal     int64 `json:"kv_pulls_total"`
	KVPushesTotal    int64 `json:"kv_pushes_total"`
	KVKeysSavedTotal int64 `json:"kv_keys_saved_total"`
	KVDeletesTotal   int64 `json:"kv_deletes_total"`

	// Blob metrics
	UploadsTotal       int64 `json:"uploads_total"`
	UploadBytesTotal   int64 `json:"upload_bytes_total"`
	DownloadsTotal     int64 `json:"downloads_total"`
	DownloadBytesTotal int64 `json:"download_bytes_total"`

	// Auth metrics
	LoginAttemptsTotal int64 `json:"login_attempts_total"`
	LoginSuccessTotal  int64 `json:"login_success_total"`
	LoginFailuresTotal int64 `json:"login_failures_total"`

	// System metrics
	RequestsTotal    int64 `json:"requests_total"`
	RequestErrors5xx int64 `json:"request_errors_5xx"`
	RequestErrors4xx int64 `json:"request_errors_4xx"`
}

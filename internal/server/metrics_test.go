package server

import "testing"

func TestMetricsSnapshot(t *testing.T) {
	m := &Metrics{}

	m.RecordKVPull()
	m.RecordKVPush(3)
	m.RecordKVPush(1)
	m.RecordKVDelete()
	m.RecordUpload(1024)
	m.RecordDownload(2048)
	m.RecordLoginAttempt(true)
	m.RecordLoginAttempt(false)
	m.RecordRequest(200)
	m.RecordRequest(404)
	m.RecordRequest(500)

	snap := m.Snapshot()

	if snap.KVPullsTotal != 1 {
		t.Errorf("KVPullsTotal = %d, want 1", snap.KVPullsTotal)
	}
	if snap.KVPushesTotal != 2 {
		t.Errorf("KVPushesTotal = %d, want 2", snap.KVPushesTotal)
	}
	if snap.KVKeysSavedTotal != 4 {
		t.Errorf("KVKeysSavedTotal = %d, want 4", snap.KVKeysSavedTotal)
	}
	if snap.KVDeletesTotal != 1 {
		t.Errorf("KVDeletesTotal = %d, want 1", snap.KVDeletesTotal)
	}
	if snap.UploadsTotal != 1 || snap.UploadBytesTotal != 1024 {
		t.Errorf("uploads = (%d, %d), want (1, 1024)", snap.UploadsTotal, snap.UploadBytesTotal)
	}
	if snap.DownloadsTotal != 1 || snap.DownloadBytesTotal != 2048 {
		t.Errorf("downloads = (%d, %d), want (1, 2048)", snap.DownloadsTotal, snap.DownloadBytesTotal)
	}
	if snap.LoginAttemptsTotal != 2 || snap.LoginSuccessTotal != 1 || snap.LoginFailuresTotal != 1 {
		t.Errorf("logins = (%d, %d, %d), want (2, 1, 1)",
			snap.LoginAttemptsTotal, snap.LoginSuccessTotal, snap.LoginFailuresTotal)
	}
	if snap.RequestsTotal != 3 || snap.RequestErrors4xx != 1 || snap.RequestErrors5xx != 1 {
		t.Errorf("requests = (%d, %d, %d), want (3, 1, 1)",
			snap.RequestsTotal, snap.RequestErrors4xx, snap.RequestErrors5xx)
	}
}

func TestMetricsConcurrentAccess(t *testing.T) {
	m := &Metrics{}
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				m.RecordRequest(200)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if snap := m.Snapshot(); snap.RequestsTotal != 1000 {
		t.Errorf("RequestsTotal = %d, want 1000", snap.RequestsTotal)
	}
}

package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// multipartUpload builds a multipart body with a single "file" field.
func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPDFUploadRejectsNonPDF(t *testing.T) {
	cfg, cookie := testConfig(t)
	handler := cfg.pdfUploadHandler()

	for _, filename := range []string{"notes.txt", "archive.zip", "noextension"} {
		t.Run(filename, func(t *testing.T) {
			body, contentType := multipartUpload(t, filename, []byte("hello"))
			req := httptest.NewRequest(http.MethodPost, "/pdfs/upload", body)
			req.Header.Set("Content-Type", contentType)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for %q, got %d", filename, rr.Code)
			}
		})
	}
}

func TestPDFUploadRejectsMissingFile(t *testing.T) {
	cfg, cookie := testConfig(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/pdfs/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.pdfUploadHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestPDFUploadMethodNotAllowed(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodGet, "/pdfs/upload", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.pdfUploadHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestPDFFileHandlerRequiresFilename(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodGet, "/pdfs/", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.pdfFileHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty filename, got %d", rr.Code)
	}
}

func TestPDFFileHandlerMethodNotAllowed(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodPost, "/pdfs/notes.pdf", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.pdfFileHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestPDFHandlersRequireSession(t *testing.T) {
	cfg, _ := testConfig(t)

	tests := []struct {
		name    string
		method  string
		path    string
		handler http.Handler
	}{
		{name: "list", method: http.MethodGet, path: "/pdfs", handler: cfg.pdfListHandler()},
		{name: "upload", method: http.MethodPost, path: "/pdfs/upload", handler: cfg.pdfUploadHandler()},
		{name: "get", method: http.MethodGet, path: "/pdfs/notes.pdf", handler: cfg.pdfFileHandler()},
		{name: "meta", method: http.MethodGet, path: "/pdfs/notes.pdf/meta", handler: cfg.pdfFileHandler()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 without session, got %d", rr.Code)
			}
		})
	}
}

func TestMaxUploadBytes(t *testing.T) {
	t.Setenv("PREP_MAX_UPLOAD_BYTES", "")
	if n, err := maxUploadBytes(); err != nil || n != 0 {
		t.Errorf("unset: got (%d, %v), want (0, nil)", n, err)
	}

	t.Setenv("PREP_MAX_UPLOAD_BYTES", "1048576")
	if n, err := maxUploadBytes(); err != nil || n != 1048576 {
		t.Errorf("1048576: got (%d, %v), want (1048576, nil)", n, err)
	}

	t.Setenv("PREP_MAX_UPLOAD_BYTES", "not-a-number")
	if _, err := maxUploadBytes(); err == nil {
		t.Error("expected parse error for non-numeric value")
	}
}

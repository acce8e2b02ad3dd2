package server

import "testing"

func TestValidateUploadMimeType(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		shouldError bool
	}{
		{name: "pdf", filename: "notes.pdf", contentType: "application/pdf", shouldError: false},
		{name: "png", filename: "diagram.png", contentType: "image/png", shouldError: false},
		{name: "charset parameter stripped", filename: "notes.txt", contentType: "text/plain; charset=utf-8", shouldError: false},
		{name: "octet-stream fallback", filename: "data.bin", contentType: "application/octet-stream", shouldError: false},
		{name: "executable blocked", filename: "setup.exe", contentType: "application/octet-stream", shouldError: true},
		{name: "dll blocked", filename: "lib.DLL", contentType: "application/octet-stream", shouldError: true},
		{name: "disallowed mime", filename: "page.php", contentType: "application/x-httpd-php", shouldError: true},
		{name: "missing content type", filename: "notes.txt", contentType: "", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadMimeType(tt.filename, tt.contentType)
			if tt.shouldError && err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error for %s: %v", tt.name, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "notes.pdf", want: "notes.pdf"},
		{name: "path traversal", in: "../../etc/passwd", want: "_.._etc_passwd"},
		{name: "backslashes", in: `..\..\boot.ini`, want: "_.._boot.ini"},
		{name: "null bytes", in: "a\x00b.pdf", want: "ab.pdf"},
		{name: "leading dots trimmed", in: "...hidden", want: "hidden"},
		{name: "empty becomes unnamed", in: "", want: "unnamed"},
		{name: "only dots becomes unnamed", in: "...", want: "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

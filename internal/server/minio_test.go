package server

import "testing"

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		want       string
		wantSecure bool
		wantErr    bool
	}{
		{name: "bare host port", in: "minio:9000", want: "minio:9000", wantSecure: false},
		{name: "http scheme", in: "http://minio:9000", want: "minio:9000", wantSecure: false},
		{name: "https scheme", in: "https://s3.example.com", want: "s3.example.com", wantSecure: true},
		{name: "whitespace trimmed", in: "  minio:9000  ", want: "minio:9000", wantSecure: false},
		{name: "empty", in: "", wantErr: true},
		{name: "path rejected", in: "http://minio:9000/bucket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, secure, err := normaliseEndpoint(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || secure != tt.wantSecure {
				t.Errorf("normaliseEndpoint(%q) = (%q, %v), want (%q, %v)",
					tt.in, got, secure, tt.want, tt.wantSecure)
			}
		})
	}
}

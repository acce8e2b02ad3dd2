// compression.go - HTTP compression middleware.
//
// Gzips JSON responses; blob downloads and already-compressed content
// pass through untouched.
package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// compressionResponseWriter wraps http.ResponseWriter to compress responses.
type compressionResponseWriter struct {
	http.ResponseWriter
	writer io.Writer
}

// Write compresses data before writing to the underlying writer.
func (crw *compressionResponseWriter) Write(b []byte) (int, error) {
	return crw.writer.Write(b)
}

// compressionMiddleware returns middleware that gzips HTTP responses
// for clients that accept it.
func compressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		if shouldSkipCompression(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzip.NewWriter(w)
		defer func() { _ = gz.Close() }()

		w.Header().Set("Content-Encoding", "gzip")
		// Content-Length no longer matches the compressed body.
		w.Header().Del("Content-Length")

		next.ServeHTTP(&compressionResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

// shouldSkipCompression reports whether the route serves raw blob
// bytes, where re-compressing wastes CPU and breaks Content-Length.
func shouldSkipCompression(r *http.Request) bool {
	p := r.URL.Path
	if strings.HasPrefix(p, "/pdfs/") && !strings.HasSuffix(p, "/meta") && p != "/pdfs/upload" {
		return r.Method == http.MethodGet
	}
	if strings.HasPrefix(p, "/files/") && !strings.HasSuffix(p, "/meta") {
		return r.Method == http.MethodGet
	}
	return false
}

// validation.go - Input validation and sanitization helpers for file
// uploads.
package server

import (
	"fmt"
	"path/filepath"
	"strings"
)

// allowedMimeTypes defines the file types the general repository
// accepts. The portal serves study material, so the list leans toward
// documents and media.
var allowedMimeTypes = map[string]bool{
	// Documents
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":       true,
	"text/csv":         true,
	"text/html":        true,
	"application/json": true,

	// Images
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,

	// Audio/video lecture recordings
	"audio/mpeg": true,
	"audio/ogg":  true,
	"video/mp4":  true,
	"video/webm": true,

	// Archives
	"application/zip":  true,
	"application/gzip": true,

	// Generic binary fallback
	"application/octet-stream": true,
}

// dangerousExtensions lists file extensions that are rejected outright
// regardless of the declared mimetype.
var dangerousExtensions = map[string]bool{
	".exe":   true,
	".bat":   true,
	".cmd":   true,
	".com":   true,
	".scr":   true,
	".vbs":   true,
	".jar":   true,
	".msi":   true,
	".dll":   true,
	".so":    true,
	".dylib": true,
}

// ValidateUploadMimeType checks an uploaded file against the extension
// blocklist and the mimetype allowlist. The client-declared type is
// trusted after normalization; content sniffing is left to the browser
// on delivery (responses carry X-Content-Type-Options: nosniff).
func ValidateUploadMimeType(filename, clientContentType string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if dangerousExtensions[ext] {
		return fmt.Errorf("file type not allowed: %s", ext)
	}

	mimeType := strings.TrimSpace(strings.ToLower(clientContentType))
	if idx := strings.Index(mimeType, ";"); idx > 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		return fmt.Errorf("content type is required")
	}
	if !allowedMimeTypes[mimeType] {
		return fmt.Errorf("MIME type not allowed: %s", mimeType)
	}
	return nil
}

// SanitizeFilename removes potentially dangerous characters from filenames.
func SanitizeFilename(filename string) string {
	// Remove path separators
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	// Remove null bytes
	filename = strings.ReplaceAll(filename, "\x00", "")

	// Trim spaces and dots from start/end
	filename = strings.Trim(filename, " .")

	// Limit length
	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		nameWithoutExt := filename[:len(filename)-len(ext)]
		filename = nameWithoutExt[:255-len(ext)] + ext
	}

	if filename == "" {
		filename = "unnamed"
	}

	return filename
}

// pdfs.go - PDF repository: course material stored as BYTEA rows keyed
// by filename. Re-uploading a filename replaces the stored bytes and
// metadata.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// pdfRecord is the metadata half of a stored PDF; bytes travel
// separately so existence probes stay cheap.
type pdfRecord struct {
	Filename   string    `json:"filename"`
	Mimetype   string    `json:"mimetype"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type pdfStore struct {
	db *sql.DB
}

func (s pdfStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename FROM pdf_files ORDER BY filename ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Get returns the stored bytes plus metadata. sql.ErrNoRows is passed
// through for the caller to turn into a 404.
func (s pdfStore) Get(ctx context.Context, filename string) ([]byte, pdfRecord, error) {
	var data []byte
	var rec pdfRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT filename, mimetype, data, size_bytes, uploaded_at
		FROM pdf_files WHERE filename = $1
	`, filename).Scan(&rec.Filename, &rec.Mimetype, &data, &rec.SizeBytes, &rec.UploadedAt)
	return data, rec, err
}

// Meta returns metadata without transferring the bytes. Used as a
// non-fatal existence probe.
func (s pdfStore) Meta(ctx context.Context, filename string) (pdfRecord, error) {
	var rec pdfRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT filename, mimetype, size_bytes, uploaded_at
		FROM pdf_files WHERE filename = $1
	`, filename).Scan(&rec.Filename, &rec.Mimetype, &rec.SizeBytes, &rec.UploadedAt)
	return rec, err
}

// Upsert inserts or replaces the row for filename.
func (s pdfStore) Upsert(ctx context.Context, filename, mimetype string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pdf_files (filename, mimetype, data, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (filename)
		DO UPDATE SET mimetype = EXCLUDED.mimetype,
		              data = EXCLUDED.data,
		              size_bytes = EXCLUDED.size_bytes,
		              uploaded_at = NOW()
	`, filename, mimetype, data, int64(len(data)))
	return err
}

// Delete removes the row and reports whether one matched.
func (s pdfStore) Delete(ctx context.Context, filename string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pdf_files WHERE filename = $1`, filename)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// maxUploadBytes reads the PREP_MAX_UPLOAD_BYTES environment variable
// and returns the maximum allowed upload size in bytes. Returns 0 if
// not set (meaning no limit). Returns an error if the value cannot be
// parsed.
func maxUploadBytes() (int64, error) {
	raw := os.Getenv("PREP_MAX_UPLOAD_BYTES")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// pdfListHandler handles GET /pdfs: stored filenames ascending.
func (cfg Config) pdfListHandler() http.Handler {
	store := pdfStore{db: cfg.DB}
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		names, err := store.List(r.Context())
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=pdf_list err=%v", rid, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(names)
	}))
}

// pdfUploadHandler handles POST /pdfs/upload: a multipart "file" field
// whose filename must end in .pdf. Same filename replaces the prior
// upload.
func (cfg Config) pdfUploadHandler() http.Handler {
	store := pdfStore{db: cfg.DB}
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit, err := maxUploadBytes()
		if err != nil {
			http.Error(w, "server misconfigured", http.StatusInternalServerError)
			return
		}
		if limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			if _, ok := err.(*http.MaxBytesError); ok {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		filename := SanitizeFilename(header.Filename)
		if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			http.Error(w, "only PDF files are accepted", http.StatusBadRequest)
			return
		}

		mimetype := header.Header.Get("Content-Type")
		if mimetype == "" {
			mimetype = "application/pdf"
		}

		data, err := io.ReadAll(file)
		if err != nil {
			if _, ok := err.(*http.MaxBytesError); ok {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}

		if err := store.Upsert(r.Context(), filename, mimetype, data); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=pdf_upsert filename=%q err=%v", rid, filename, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		user, _ := cfg.Auth.getCurrentUser(r)
		GetMetrics().RecordUpload(int64(len(data)))
		recordAudit(cfg.DB, auditEntry{
			Action:   auditActionUpload,
			Username: user,
			IP:       getClientIP(r),
			Resource: filename,
			Success:  true,
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":       true,
			"filename": filename,
			"size":     len(data),
		})
	}))
}

// pdfFileHandler dispatches /pdfs/{filename} and /pdfs/{filename}/meta.
func (cfg Config) pdfFileHandler() http.Handler {
	store := pdfStore{db: cfg.DB}
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/pdfs/")
		if rest == "" {
			http.Error(w, "filename required", http.StatusBadRequest)
			return
		}

		if name, ok := strings.CutSuffix(rest, "/meta"); ok {
			cfg.servePDFMeta(store, w, r, name)
			return
		}

		switch r.Method {
		case http.MethodGet:
			cfg.servePDF(store, w, r, rest)
		case http.MethodDelete:
			cfg.deletePDF(store, w, r, rest)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
}

func (cfg Config) servePDF(store pdfStore, w http.ResponseWriter, r *http.Request, filename string) {
	data, rec, err := store.Get(r.Context(), filename)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=pdf_get filename=%q err=%v", rid, filename, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	GetMetrics().RecordDownload(rec.SizeBytes)

	w.Header().Set("Content-Type", rec.Mimetype)
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(data)), 10))
	// Inline: the portal renders PDFs in the browser.
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, rec.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (cfg Config) servePDFMeta(store pdfStore, w http.ResponseWriter, r *http.Request, filename string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec, err := store.Meta(r.Context(), filename)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		if err == sql.ErrNoRows {
			// Existence probe: absence is an answer, not an error.
			_ = json.NewEncoder(w).Encode(map[string]any{"exists": false})
			return
		}
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=pdf_meta filename=%q err=%v", rid, filename, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"exists":      true,
		"filename":    rec.Filename,
		"mimetype":    rec.Mimetype,
		"size":        rec.SizeBytes,
		"uploaded_at": rec.UploadedAt,
	})
}

func (cfg Config) deletePDF(store pdfStore, w http.ResponseWriter, r *http.Request, filename string) {
	matched, err := store.Delete(r.Context(), filename)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=pdf_delete filename=%q err=%v", rid, filename, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if !matched {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	user, _ := cfg.Auth.getCurrentUser(r)
	recordAudit(cfg.DB, auditEntry{
		Action:   auditActionDelete,
		Username: user,
		IP:       getClientIP(r),
		Resource: filename,
		Success:  true,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

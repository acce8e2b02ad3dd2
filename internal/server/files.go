// files.go - General file repository: metadata rows in Postgres, bytes
// in MinIO under files/{uuid}. Unlike the PDF repository, identifiers
// are opaque ids and no extension restriction applies beyond the
// mimetype policy in validation.go.
package server

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// generalFile mirrors one row of the general_files table.
type generalFile struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Mimetype   string    `json:"mimetype"`
	SizeBytes  int64     `json:"size_bytes"`
	SHA256Hex  string    `json:"sha256_hex,omitempty"`
	ObjectKey  string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// uploadFileResp is the JSON response returned after a successful
// general file upload.
type uploadFileResp struct {
	OK       bool   `json:"ok"`
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

func queryGeneralFile(ctx context.Context, db *sql.DB, id uuid.UUID) (generalFile, error) {
	var f generalFile
	err := db.QueryRowContext(ctx, `
		SELECT id, filename, mimetype, size_bytes, COALESCE(sha256_hex, ''), object_key, uploaded_at
		FROM general_files WHERE id = $1
	`, id).Scan(&f.ID, &f.Filename, &f.Mimetype, &f.SizeBytes, &f.SHA256Hex, &f.ObjectKey, &f.UploadedAt)
	return f, err
}

// filesListHandler handles GET /files: all stored general files,
// newest first.
func (cfg Config) filesListHandler() http.Handler {
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rows, err := cfg.DB.QueryContext(r.Context(), `
			SELECT id, filename, mimetype, size_bytes, COALESCE(sha256_hex, ''), object_key, uploaded_at
			FROM general_files
			ORDER BY uploaded_at DESC
		`)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=files_list err=%v", rid, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		files := []generalFile{}
		for rows.Next() {
			var f generalFile
			if err := rows.Scan(&f.ID, &f.Filename, &f.Mimetype, &f.SizeBytes,
				&f.SHA256Hex, &f.ObjectKey, &f.UploadedAt); err != nil {
				rid := RequestIDFromContext(r.Context())
				log.Printf("rid=%s msg=files_list_scan err=%v", rid, err)
				continue
			}
			files = append(files, f)
		}
		if err := rows.Err(); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(files)
	}))
}

// filesUploadHandler handles POST /files/upload: streams the multipart
// "file" part to MinIO while hashing it, then records the metadata row.
// The object key is "files/" + UUID to keep keys non-guessable and free
// of path traversal.
func (cfg Config) filesUploadHandler() http.Handler {
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

		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}

		var filePart io.Reader
		var filename, contentType string
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}
			defer func() { _ = part.Close() }()

			if part.FormName() != "file" {
				continue
			}
			filePart = part
			filename = SanitizeFilename(part.FileName())
			contentType = part.Header.Get("Content-Type")
			break
		}
		if filePart == nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		if err := ValidateUploadMimeType(filename, contentType); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id := uuid.New()
		objectKey := "files/" + id.String()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		hasher := sha256.New()
		info, err := cfg.Minio.PutObject(
			ctx,
			cfg.Bucket,
			objectKey,
			io.TeeReader(filePart, hasher),
			-1,
			minio.PutObjectOptions{ContentType: contentType},
		)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=putobject err=%v", rid, err)
			if _, ok := err.(*http.MaxBytesError); ok {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "upload failed", http.StatusBadGateway)
			return
		}

		shaHex := hex.EncodeToString(hasher.Sum(nil))

		_, err = cfg.DB.ExecContext(ctx, `
			INSERT INTO general_files (id, filename, mimetype, size_bytes, sha256_hex, object_key, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, id, filename, contentType, info.Size, shaHex, objectKey)
		if err != nil {
			// Orphaned object: remove it so storage and metadata stay in step.
			_ = cfg.Minio.RemoveObject(ctx, cfg.Bucket, objectKey, minio.RemoveObjectOptions{})
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=files_insert err=%v", rid, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		user, _ := cfg.Auth.getCurrentUser(r)
		GetMetrics().RecordUpload(info.Size)
		recordAudit(cfg.DB, auditEntry{
			Action:   auditActionUpload,
			Username: user,
			IP:       getClientIP(r),
			Resource: id.String(),
			Success:  true,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(uploadFileResp{
			OK:       true,
			ID:       id.String(),
			Filename: filename,
			Size:     info.Size,
		})
	}))
}

// filesByIDHandler dispatches /files/{id} and /files/{id}/meta.
func (cfg Config) filesByIDHandler() http.Handler {
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/files/")
		if rest == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}

		idStr, meta := strings.CutSuffix(rest, "/meta")
		id, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}

		if meta {
			cfg.serveFileMeta(w, r, id)
			return
		}

		switch r.Method {
		case http.MethodGet:
			cfg.serveFile(w, r, id)
		case http.MethodDelete:
			cfg.deleteFile(w, r, id)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
}

func (cfg Config) serveFile(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	f, err := queryGeneralFile(r.Context(), cfg.DB, id)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	obj, err := cfg.Minio.GetObject(ctx, cfg.Bucket, f.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		http.Error(w, "storage error", http.StatusBadGateway)
		return
	}
	defer func() { _ = obj.Close() }()

	// Force an early error for missing object / auth issues.
	if _, statErr := obj.Stat(); statErr != nil {
		http.Error(w, "storage error", http.StatusBadGateway)
		return
	}

	GetMetrics().RecordDownload(f.SizeBytes)

	if f.Mimetype != "" {
		w.Header().Set("Content-Type", f.Mimetype)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if f.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj)
}

func (cfg Config) serveFileMeta(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f, err := queryGeneralFile(r.Context(), cfg.DB, id)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		if err == sql.ErrNoRows {
			_ = json.NewEncoder(w).Encode(map[string]any{"exists": false})
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"exists":      true,
		"id":          f.ID,
		"filename":    f.Filename,
		"mimetype":    f.Mimetype,
		"size":        f.SizeBytes,
		"sha256_hex":  f.SHA256Hex,
		"uploaded_at": f.UploadedAt,
	})
}

func (cfg Config) deleteFile(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	f, err := queryGeneralFile(r.Context(), cfg.DB, id)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// The row is authoritative; a failed object removal is logged and the
	// delete still proceeds.
	if err := cfg.Minio.RemoveObject(ctx, cfg.Bucket, f.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=removeobject id=%s err=%v", rid, id, err)
	}

	res, err := cfg.DB.ExecContext(ctx, `DELETE FROM general_files WHERE id = $1`, id)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	user, _ := cfg.Auth.getCurrentUser(r)
	recordAudit(cfg.DB, auditEntry{
		Action:   auditActionDelete,
		Username: user,
		IP:       getClientIP(r),
		Resource: id.String(),
		Success:  true,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

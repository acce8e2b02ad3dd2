// announcements.go - Site-wide announcements shown on the portal
// landing page. Plain CRUD over the site_announcements table.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Announcement is one row of site_announcements.
type Announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// announcementsHandler dispatches GET/POST /announcements.
func (cfg Config) announcementsHandler() http.Handler {
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.listAnnouncements(w, r)
		case http.MethodPost:
			cfg.createAnnouncement(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
}

func (cfg Config) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	rows, err := cfg.DB.QueryContext(r.Context(), `
		SELECT id, title, body, created_at
		FROM site_announcements
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=announcements_list err=%v", rid, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	items := []Announcement{}
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.CreatedAt); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=announcements_scan err=%v", rid, err)
			continue
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (cfg Config) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	var a Announcement
	err := cfg.DB.QueryRowContext(r.Context(), `
		INSERT INTO site_announcements (title, body)
		VALUES ($1, $2)
		RETURNING id, title, body, created_at
	`, body.Title, body.Body).Scan(&a.ID, &a.Title, &a.Body, &a.CreatedAt)
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=announcement_insert err=%v", rid, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(a)
}

// announcementByIDHandler handles DELETE /announcements/{id}.
func (cfg Config) announcementByIDHandler() http.Handler {
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/announcements/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}

		res, err := cfg.DB.ExecContext(r.Context(),
			`DELETE FROM site_announcements WHERE id = $1`, id)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=announcement_delete id=%d err=%v", rid, id, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
}

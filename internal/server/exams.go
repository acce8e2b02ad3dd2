// exams.go - Per-user exam lists. One row per username holding the
// list as an opaque JSON string; the client owns the shape.
package server

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
)

// examsHandler dispatches GET/POST /exams for the current session user.
func (cfg Config) examsHandler() http.Handler {
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := cfg.Auth.getCurrentUser(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			cfg.getExams(w, r, user)
		case http.MethodPost:
			cfg.saveExams(w, r, user)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
}

func (cfg Config) getExams(w http.ResponseWriter, r *http.Request, user string) {
	var exams string
	err := cfg.DB.QueryRowContext(r.Context(),
		`SELECT exams FROM user_exams WHERE username = $1`, user).Scan(&exams)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		if err == sql.ErrNoRows {
			_ = json.NewEncoder(w).Encode(map[string]any{"exams": nil})
			return
		}
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=exams_get user=%q err=%v", rid, user, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	// Stored value is JSON produced by the client; echo it verbatim.
	_, _ = w.Write([]byte(`{"exams":` + exams + `}`))
}

func (cfg Config) saveExams(w http.ResponseWriter, r *http.Request, user string) {
	var body struct {
		Exams json.RawMessage `json:"exams"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if len(body.Exams) == 0 {
		http.Error(w, "exams is required", http.StatusBadRequest)
		return
	}

	_, err := cfg.DB.ExecContext(r.Context(), `
		INSERT INTO user_exams (username, exams, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (username)
		DO UPDATE SET exams = EXCLUDED.exams, updated_at = NOW()
	`, user, string(body.Exams))
	if err != nil {
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=exams_save user=%q err=%v", rid, user, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

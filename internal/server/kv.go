// kv.go - Key-value sync service: the server-side mirror of the
// client's local storage. Pull returns the whole mapping, push upserts
// a batch of keys, delete removes one key.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
)

// kvStore persists opaque string key/value pairs in the kv_store table.
// The table's per-row upsert atomicity is the entire consistency
// mechanism: last write wins by commit order.
type kvStore struct {
	db *sql.DB
}

// Pull returns the full mapping, ordered by key ascending. The mapping
// is assumed small enough to transfer whole; there is no pagination.
func (s kvStore) Pull(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_store ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		entries[k] = v
	}
	return entries, rows.Err()
}

// Push upserts each entry independently and returns how many were
// written. Keys are committed one statement at a time, so a mid-batch
// failure leaves earlier keys persisted. Batches are not transactional;
// last write wins per key.
func (s kvStore) Push(ctx context.Context, entries map[string]string) (int, error) {
	saved := 0
	for k, v := range entries {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO kv_store (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, k, v)
		if err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// Delete removes the row for key. Deleting an absent key is not an
// error; the operation is idempotent.
func (s kvStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

// stringifyValue renders a decoded JSON value as the stored string.
// String values are stored verbatim; everything else keeps its JSON
// text form so the client can round-trip it.
func stringifyValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// kvPullHandler handles GET /progress: the full key-value mapping as a
// single JSON object. Clients hydrate local storage from this on boot
// and treat failure as "work offline".
func (cfg Config) kvPullHandler() http.Handler {
	store := kvStore{db: cfg.DB}
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		entries, err := store.Pull(r.Context())
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=kv_pull err=%v", rid, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		GetMetrics().RecordKVPull()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	}))
}

// kvPushHandler handles POST /progress: a JSON object of key/value
// pairs, each upserted independently.
func (cfg Config) kvPushHandler() http.Handler {
	store := kvStore{db: cfg.DB}
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if len(body) == 0 {
			http.Error(w, "at least one entry is required", http.StatusBadRequest)
			return
		}

		entries := make(map[string]string, len(body))
		for k, v := range body {
			entries[k] = stringifyValue(v)
		}

		saved, err := store.Push(r.Context(), entries)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=kv_push saved=%d err=%v", rid, saved, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		GetMetrics().RecordKVPush(saved)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":    true,
			"saved": saved,
		})
	}))
}

// kvDeleteHandler handles POST /progress/delete with body {"key": "..."}.
// A missing key field is a validation error; deleting a key that was
// never pushed succeeds.
func (cfg Config) kvDeleteHandler() http.Handler {
	store := kvStore{db: cfg.DB}
	return cfg.Auth.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Key string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if body.Key == "" {
			http.Error(w, "key is required", http.StatusBadRequest)
			return
		}

		if err := store.Delete(r.Context(), body.Key); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=kv_delete err=%v", rid, err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		GetMetrics().RecordKVDelete()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
}

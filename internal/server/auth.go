// auth.go - Stateless session cookies and authentication helpers.
//
// Implements HMAC-signed cookie sessions, login/logout/whoami handlers,
// and DB-backed credential checks against the users table.
package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds authentication-related configuration used by HTTP
// handlers (session secret, cookie settings, and the DB the user table
// lives in). Unit tests can construct this directly.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	SecureCookie  bool
	DB            *sql.DB
}

type sessionPayload struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

func (a AuthConfig) cookieName() string {
	if a.CookieName == "" {
		return "prep_session"
	}
	return a.CookieName
}

func (a AuthConfig) ttl() time.Duration {
	if a.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return a.SessionTTL
}

func (a AuthConfig) secretBytes() []byte {
	return []byte(a.SessionSecret)
}

func signPayload(secret []byte, msg string) string {
	m := hmac.New(sha256.New, secret)
	_, _ = m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}

func encodeSession(p sessionPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeSession(token string) (sessionPayload, error) {
	var p sessionPayload
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, err
	}
	return p, nil
}

// makeToken returns "payload.signature"
func (a AuthConfig) makeToken(sub string) (string, time.Time, error) {
	exp := time.Now().Add(a.ttl())
	p := sessionPayload{Sub: sub, Exp: exp.Unix()}
	payload, err := encodeSession(p)
	if err != nil {
		return "", time.Time{}, err
	}
	sig := signPayload(a.secretBytes(), payload)
	return payload + "." + sig, exp, nil
}

func (a AuthConfig) verifyToken(tok string) (sessionPayload, error) {
	var p sessionPayload
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return p, errors.New("invalid token format")
	}
	payload := parts[0]
	sig := parts[1]
	want := signPayload(a.secretBytes(), payload)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return p, errors.New("invalid signature")
	}
	decoded, err := decodeSession(payload)
	if err != nil {
		return p, err
	}
	if decoded.Exp <= time.Now().Unix() {
		return p, errors.New("expired")
	}
	return decoded, nil
}

// sha256Hex returns the hex digest of the given string. The legacy seed
// user is stored this way; see verifyPassword.
func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// verifyPassword checks a cleartext password against a stored hash.
// Hashes created by provisioning tooling are bcrypt; the startup seed
// user carries an unsalted SHA-256 hex digest inherited from the
// original deployment. The unsalted form is a known weakness and is
// kept only for that seed row.
func verifyPassword(password, storedHash string) bool {
	if strings.HasPrefix(storedHash, "$2a$") || strings.HasPrefix(storedHash, "$2b$") || strings.HasPrefix(storedHash, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
	}
	digest := sha256Hex(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedHash)) == 1
}

// authenticateUser checks credentials against the users table.
func authenticateUser(db *sql.DB, username, password string) bool {
	var storedHash string
	err := db.QueryRow(
		"SELECT password_hash FROM users WHERE username = $1",
		username,
	).Scan(&storedHash)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("auth: db query failed: %v", err)
		}
		return false
	}
	return verifyPassword(password, storedHash)
}

// SeedDefaultUser inserts the default portal user if it does not exist.
// Called once at startup; an existing row is left untouched.
func SeedDefaultUser(db *sql.DB, username, password string) error {
	if username == "" || password == "" {
		return errors.New("default user credentials are empty")
	}
	_, err := db.Exec(`
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, sha256Hex(password))
	return err
}

// loginHandler authenticates against the users table and, on success,
// issues a signed session cookie (HttpOnly, SameSite=Lax).
func (a AuthConfig) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		body.Username = strings.TrimSpace(body.Username)
		if body.Username == "" || body.Password == "" {
			http.Error(w, "username and password are required", http.StatusBadRequest)
			return
		}

		authenticated := authenticateUser(a.DB, body.Username, body.Password)
		GetMetrics().RecordLoginAttempt(authenticated)
		recordAudit(a.DB, auditEntry{
			Action:   auditActionLogin,
			Username: body.Username,
			IP:       getClientIP(r),
			Success:  authenticated,
		})

		if !authenticated {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		tok, exp, err := a.makeToken(body.Username)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     a.cookieName(),
			Value:    tok,
			Path:     "/",
			Expires:  exp,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   a.SecureCookie,
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":  "logged in",
			"username": body.Username,
		})
	}
}

// logoutHandler clears the session cookie by setting an expired cookie.
func (a AuthConfig) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     a.cookieName(),
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   a.SecureCookie,
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "logged out"})
	}
}

// whoamiHandler reports the current session identity. It never rejects:
// without a valid session the username is null, so clients can probe
// session state cheaply on boot.
func (a AuthConfig) whoamiHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		user, err := a.getCurrentUser(r)
		if err != nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"username": nil})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"username": user})
	}
}

func (a AuthConfig) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(a.cookieName())
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := a.verifyToken(c.Value); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getCurrentUser extracts the current username (subject) from the session cookie.
func (a AuthConfig) getCurrentUser(r *http.Request) (string, error) {
	c, err := r.Cookie(a.cookieName())
	if err != nil {
		return "", errors.New("no session cookie")
	}
	payload, err := a.verifyToken(c.Value)
	if err != nil {
		return "", err
	}
	return payload.Sub, nil
}

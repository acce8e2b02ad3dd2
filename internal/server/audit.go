// audit.go - Audit trail for logins, uploads and deletions.
package server

import (
	"database/sql"
	"log"

	"github.com/google/uuid"
)

type auditAction string

const (
	auditActionLogin  auditAction = "login"
	auditActionUpload auditAction = "upload"
	auditActionDelete auditAction = "delete"
)

// auditEntry is one row of the audit_logs table.
type auditEntry struct {
	Action   auditAction
	Username string
	IP       string
	Resource string
	Success  bool
	ErrorMsg string
}

// recordAudit writes one audit row. Auditing is best-effort: a failed
// insert is logged and never fails the request that produced it.
func recordAudit(db *sql.DB, e auditEntry) {
	if db == nil {
		return
	}
	_, err := db.Exec(`
		INSERT INTO audit_logs (id, action, username, ip, resource, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), e.Action, nullString(e.Username), e.IP,
		nullString(e.Resource), e.Success, nullString(e.ErrorMsg))
	if err != nil {
		log.Printf("audit: insert failed: %v", err)
	}
}

// nullString helper for nullable strings
func nullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

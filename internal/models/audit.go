package models

import "time"

// Audit actions for teacher-initiated changes to policy and progress.
const (
	AuditActionPolicyUpdate    = "POLICY_UPDATE"
	AuditActionPlacement       = "PLACEMENT"
	AuditActionMasteryOverride = "MASTERY_OVERRIDE"
)

// AuditLog is one successful mutation made through the API.
type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	ActorRole   *string   `db:"actor_role" json:"actor_role,omitempty"`
	Action      string    `db:"action" json:"action"`
	ClassroomID *string   `db:"classroom_id" json:"classroom_id,omitempty"`
	StudentID   *string   `db:"student_id" json:"student_id,omitempty"`
	Status      int       `db:"status" json:"status"`
	Details     string    `db:"details" json:"details,omitempty"`
	RequestID   *string   `db:"request_id" json:"request_id,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

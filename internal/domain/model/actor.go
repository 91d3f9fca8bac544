package model

import "time"

// Role is an authorization role of a staff actor.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
	RoleSystem Role = "system"
)

// Actor identifies who performs a mutating call.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used for provider-initiated and scheduled changes.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// StaffUser is an account allowed to operate the back office.
type StaffUser struct {
	ID           int64
	Login        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// AuditEntry is a best-effort append-only record of an administrative action.
type AuditEntry struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID int64
	Details  map[string]any
	At       time.Time
}

package domain

import "time"

// Role distinguishes ordinary members from administrators.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// AccountStatus gates write access to the ledger. Only active accounts may
// record new deposits; every other status is read-only.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountExpired   AccountStatus = "expired"
)

// Identity is the current viewer as supplied by the external session
// capability. The ledger never creates or mutates identities.
type Identity struct {
	ID            string
	Email         string
	Name          string
	Role          Role
	AccountStatus AccountStatus
}

// IsAdmin reports whether the identity carries the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanWrite reports whether the identity's account status permits recording
// new deposits.
func (i Identity) CanWrite() bool {
	return i.AccountStatus == AccountActive
}

// Contact is a saved counterparty: a display-name cache keyed per user.
// Deleting a contact never affects existing deposits, which keep the email
// denormalized on the row.
type Contact struct {
	ID        string
	UserID    string
	Email     string
	Name      string
	CreatedAt time.Time
}

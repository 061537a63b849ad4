package presence

import (
	"time"

	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleClient is a regular content-consuming account
	RoleClient UserRole = "client"
	// RoleWorker is a content-producing account
	RoleWorker UserRole = "worker"
	// RoleAdmin is an administrative account
	RoleAdmin UserRole = "admin"
)

// UserStatus is the user's connection status
type UserStatus = string

const (
	// StatusConnected marks a user with an open session upstream
	StatusConnected UserStatus = "connected"
	// StatusDisconnected marks a user whose session ended
	StatusDisconnected UserStatus = "disconnected"
)

// User is the local user record. The row is owned by this service but its
// identity originates upstream: ExternalID is the join key that correlates
// auth lifecycle events to local rows, ID is the internal key everything
// else (cache entries, tokens, the active set) is addressed by.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	ExternalID     string     `bun:"external_id,notnull,unique" json:"external_id,omitempty"`
	Name           string     `bun:"name" json:"name,omitempty"`
	Email          string     `bun:"email" json:"email,omitempty"`
	Role           UserRole   `bun:"role,notnull" json:"role,omitempty"`
	Status         UserStatus `bun:"status,notnull" json:"status,omitempty"`
	LastActivityAt *time.Time `bun:"last_activity_at,nullzero" json:"last_activity_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsConnected reports whether the record's status marks an open session.
// Status is the authoritative activity flag; LastActivityAt is bookkeeping.
func (u *User) IsConnected() bool {
	return u != nil && u.Status == StatusConnected
}

// IsInactive reports whether the last recorded activity is older than window.
func (u *User) IsInactive(window time.Duration) bool {
	if u == nil || u.LastActivityAt == nil {
		return false
	}
	return u.LastActivityAt.Before(time.Now().Add(-window))
}

// ConnectionAttrs carries the optional profile fields a connection event may
// supply. Empty fields leave the stored value untouched.
type ConnectionAttrs struct {
	Username string
	Email    string
	Role     UserRole
}

package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleModerator UserRole = "MODERATOR"
	RoleUser      UserRole = "USER"
)

// CanModerate reports whether the role may act on content owned by others.
func (r UserRole) CanModerate() bool {
	return r == RoleAdmin || r == RoleModerator
}

// User represents an account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	DisplayName  string     `db:"display_name" json:"displayName"`
	AvatarURL    *string    `db:"avatar_url" json:"avatarUrl,omitempty"`
	Bio          string     `db:"bio" json:"bio"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// UserFilter scopes the admin user listing.
type UserFilter struct {
	Search   string   `form:"search"`
	Role     UserRole `form:"role"`
	Active   *bool    `form:"active"`
	Page     int      `form:"page"`
	PageSize int      `form:"pageSize"`
}

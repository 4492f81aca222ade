package models

import "time"

// Roles. SUPERADMIN manages registrations and may purge archives; PERSONNEL
// covers everyone operating on live assets.
const (
	RoleSuperAdmin = "SUPERADMIN"
	RolePersonnel  = "PERSONNEL"
)

// ValidRole reports whether the role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleSuperAdmin || role == RolePersonnel
}

// UserStatus tracks the registration approval flow.
type UserStatus string

const (
	UserPending  UserStatus = "PENDING"
	UserActive   UserStatus = "ACTIVE"
	UserRejected UserStatus = "REJECTED"
)

// User is an account record. Password holds the bcrypt hash and is never
// serialized.
type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Password        string     `db:"password_hash" json:"-"`
	FullName        string     `db:"full_name" json:"fullName"`
	Position        string     `db:"position" json:"position"`
	Role            string     `db:"role" json:"role"`
	Status          UserStatus `db:"status" json:"status"`
	RejectionReason *string    `db:"rejection_reason" json:"rejectionReason,omitempty"`
	LastLogin       *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the human-readable identity for audit trails, falling
// back to the email when no full name was captured.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// UserFilter captures account listing criteria.
type UserFilter struct {
	Role     string
	Status   UserStatus
	Search   string
	Page     int
	PageSize int
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes derived fields from the raw totals.
func NewPagination(page, pageSize, totalItems int) Pagination {
	if pageSize <= 0 {
		pageSize = 20
	}
	totalPages := totalItems / pageSize
	if totalItems%pageSize != 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

package domain

import (
	"strings"
	"time"
)

type User struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	SlackToken *string    `json:"-"`
	IsActive   bool       `json:"is_active"`
	IsAdmin    bool       `json:"is_admin"`
	Password   string     `json:"-"` // encoded hash or unusable marker
	LastLogin  *time.Time `json:"last_login,omitempty"`
	Timestamps
}

func (u *User) String() string {
	return u.Email
}

// HasPermission always grants. There is no per-permission policy yet.
func (u *User) HasPermission(perm string) bool {
	return true
}

// HasModulePermission always grants, same as HasPermission.
func (u *User) HasModulePermission(module string) bool {
	return true
}

// IsStaff: all admins are staff.
func (u *User) IsStaff() bool {
	return u.IsAdmin
}

// NormalizeEmail lowercases the domain part of an address. The local part is
// kept as is since mailbox names may be case sensitive.
func NormalizeEmail(email string) string {
	trimmed := strings.TrimSpace(email)
	at := strings.LastIndex(trimmed, "@")
	if at < 0 {
		return email
	}
	return trimmed[:at] + "@" + strings.ToLower(trimmed[at+1:])
}

package model

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleBorrower  Role = "borrower"
)

// ParseRole returns the Role named by s, or false for unknown values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleLibrarian, RoleBorrower:
		return Role(s), true
	default:
		return "", false
	}
}

// UserStatus is the closed set of account states.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// ParseUserStatus returns the UserStatus named by s, or false for unknown values.
func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case UserStatusActive, UserStatusInactive:
		return UserStatus(s), true
	default:
		return "", false
	}
}

// User represents a library account.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	FirstName    string     `json:"first_name" gorm:"size:100;not null"`
	LastName     string     `json:"last_name" gorm:"size:100;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	PhoneNumber  string     `json:"phone_number" gorm:"size:32"`
	Role         Role       `json:"role" gorm:"type:varchar(20);not null;default:'borrower';index"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

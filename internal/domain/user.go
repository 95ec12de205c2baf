package domain

import "time"

// UserStatus represents lifecycle states for an end-user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for end-users who submit tickets and requests.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	ChatID       *string
	Locale       string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

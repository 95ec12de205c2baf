package domain

import "time"

// OperatorRole enumerates operator privilege levels.
type OperatorRole string

const (
	OperatorRoleAgent OperatorRole = "AGENT"
	OperatorRoleAdmin OperatorRole = "ADMIN"
)

// Operator models a human who handles escalated tickets and decides
// approval requests.
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         OperatorRole
	ChatID       *string
	Locale       string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package dto

import (
	"time"

	"github.com/erixcast/support-service/internal/domain"
)

// RenewalRequest payload for submitting a renewal.
type RenewalRequest struct {
	ListName string `json:"list_name"`
	Months   int    `json:"months"`
}

// DeletionRequest payload for submitting a deletion.
type DeletionRequest struct {
	ListName string `json:"list_name"`
	Reason   string `json:"reason"`
}

// DecisionRequest payload for an operator verdict.
type DecisionRequest struct {
	Decision domain.Decision `json:"decision"`
	Notes    string          `json:"notes,omitempty"`
}

// ApprovalResponse describes one request.
type ApprovalResponse struct {
	ID          string               `json:"id"`
	Kind        domain.ApprovalKind  `json:"kind"`
	SubjectName string               `json:"subject_name"`
	RequesterID string               `json:"requester_id"`
	Months      int                  `json:"months,omitempty"`
	CostEUR     int                  `json:"cost_eur,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	State       domain.ApprovalState `json:"state"`
	Notes       *string              `json:"notes,omitempty"`
	DecidedBy   *string              `json:"decided_by,omitempty"`
	DecidedAt   *time.Time           `json:"decided_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// CreateListRequest payload for operator-managed list creation.
type CreateListRequest struct {
	Name      string     `json:"name"`
	CostEUR   int        `json:"cost_eur"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// SubscriptionListResponse describes one subscription list.
type SubscriptionListResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CostEUR   int        `json:"cost_eur"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

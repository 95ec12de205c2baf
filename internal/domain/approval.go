package domain

import "time"

// ApprovalKind distinguishes the gated workflows sharing one state machine.
type ApprovalKind string

const (
	ApprovalKindRenewal  ApprovalKind = "RENEWAL"
	ApprovalKindDeletion ApprovalKind = "DELETION"
)

// ApprovalState enumerates request states. A request leaves PENDING exactly
// once and is immutable afterwards.
type ApprovalState string

const (
	ApprovalStatePending  ApprovalState = "PENDING"
	ApprovalStateApproved ApprovalState = "APPROVED"
	ApprovalStateRejected ApprovalState = "REJECTED"
)

// Decision is an operator's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// RenewalMonthlyCostEUR is the flat per-month renewal price.
const RenewalMonthlyCostEUR = 15

// AllowedRenewalMonths are the durations a requester may ask for.
var AllowedRenewalMonths = []int{1, 3, 6, 12}

// ApprovalRequest is the generic gated-approval record. SubjectName names
// the subscription list the request concerns; Months is set for renewals,
// Reason for deletions.
type ApprovalRequest struct {
	ID          string
	Kind        ApprovalKind
	SubjectName string
	RequesterID string
	Months      int
	CostEUR     int
	Reason      string
	State       ApprovalState
	Notes       *string
	DecidedBy   *string
	DecidedAt   *time.Time
	CreatedAt   time.Time
}

// ValidRenewalMonths reports whether the duration is in the allowed set.
func ValidRenewalMonths(months int) bool {
	for _, m := range AllowedRenewalMonths {
		if m == months {
			return true
		}
	}
	return false
}

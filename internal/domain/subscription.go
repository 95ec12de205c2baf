package domain

import "time"

// SubscriptionList is the resource approval workflows act on: renewal
// extends ExpiresAt, deletion removes the record. It only ever changes
// through an approved request.
type SubscriptionList struct {
	ID        string
	Name      string
	CostEUR   int
	ExpiresAt *time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DaysUntilExpiry returns days remaining, negative when already expired.
// Lists with no expiry return false.
func (l *SubscriptionList) DaysUntilExpiry(now time.Time) (int, bool) {
	if l.ExpiresAt == nil {
		return 0, false
	}
	return int(l.ExpiresAt.Sub(now).Hours() / 24), true
}

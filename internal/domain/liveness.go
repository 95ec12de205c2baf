package domain

import "time"

// ProbeResult records one liveness probe execution.
type ProbeResult struct {
	ID         string
	ProbeName  string
	Endpoint   string
	Success    bool
	LatencyMS  int64
	Error      string
	ObservedAt time.Time
}

// DeliveryStatus is the outcome of one notification delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// DeliveryRecord is a diagnostics log entry for a notification delivery.
type DeliveryRecord struct {
	ID          string
	EventKind   string
	Recipient   string
	Status      DeliveryStatus
	Error       string
	AttemptedAt time.Time
}

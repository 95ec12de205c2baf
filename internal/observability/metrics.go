package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the lifecycle engine.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	attemptCount  map[string]int64
	deliveryCount map[string]int64
	probeCount    map[string]int64
	escalations   int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		attemptCount:  make(map[string]int64),
		deliveryCount: make(map[string]int64),
		probeCount:    make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordAttempt counts automated-reply attempt outcomes.
func (m *Metrics) RecordAttempt(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attemptCount[outcome]++
}

// RecordEscalation counts tickets handed off to operators.
func (m *Metrics) RecordEscalation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalations++
}

// RecordDelivery counts per-recipient notification outcomes.
func (m *Metrics) RecordDelivery(kind string, delivered bool) {
	if m == nil {
		return
	}
	key := kind + "|" + strconv.FormatBool(delivered)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryCount[key]++
}

// RecordProbe counts liveness probe outcomes per probe name.
func (m *Metrics) RecordProbe(name string, success bool) {
	if m == nil {
		return
	}
	key := name + "|" + strconv.FormatBool(success)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeCount[key]++
}

// Escalations returns the escalation counter.
func (m *Metrics) Escalations() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escalations
}

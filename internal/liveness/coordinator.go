// Package liveness runs staggered background probes against the service's
// own health endpoint. Three probe loops with different periods catch both
// short stalls and sustained outages; after a run of consecutive failures
// the coordinator alerts operators and asks the chat transport to
// reconnect.
package liveness

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/observability"
	"github.com/erixcast/support-service/internal/repository"
	"github.com/erixcast/support-service/internal/transport"
)

// ProbeStatus is the externally visible state of one probe loop.
type ProbeStatus struct {
	Name                string     `json:"name"`
	Interval            string     `json:"interval"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Degraded            bool       `json:"degraded"`
}

type probeState struct {
	name                string
	interval            time.Duration
	lastSuccess         *time.Time
	lastFailure         *time.Time
	consecutiveFailures int
	degraded            bool
}

// Coordinator owns the probe loops. Start launches one goroutine per
// configured interval; Stop waits for all of them to drain.
type Coordinator struct {
	targetURL  string
	timeout    time.Duration
	threshold  int
	client     *http.Client
	transport  transport.Client
	pings      repository.PingRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	mu     sync.Mutex
	states []*probeState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options bundles coordinator construction parameters.
type Options struct {
	TargetURL  string
	Intervals  []time.Duration
	Timeout    time.Duration
	Threshold  int
	Transport  transport.Client
	Pings      repository.PingRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewCoordinator builds the coordinator. Pings may be nil to skip
// persistence.
func NewCoordinator(opts Options) *Coordinator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	states := make([]*probeState, 0, len(opts.Intervals))
	for i, interval := range opts.Intervals {
		states = append(states, &probeState{
			name:     fmt.Sprintf("probe-%d", i+1),
			interval: interval,
		})
	}

	return &Coordinator{
		targetURL:  opts.TargetURL,
		timeout:    timeout,
		threshold:  threshold,
		client:     &http.Client{Timeout: timeout},
		transport:  opts.Transport,
		pings:      opts.Pings,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     logger,
		states:     states,
	}
}

// Start launches the probe loops. It is a no-op without a target URL.
func (c *Coordinator) Start(ctx context.Context) {
	if c.targetURL == "" || len(c.states) == 0 {
		c.logger.Info("liveness probes disabled")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	for _, state := range c.states {
		c.wg.Add(1)
		go c.run(runCtx, state)
	}
	c.logger.Info("liveness probes started",
		zap.Int("probes", len(c.states)),
		zap.String("target", c.targetURL))
}

// Stop cancels the loops and waits for them to exit.
func (c *Coordinator) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
}

// Snapshot returns the current state of every probe loop.
func (c *Coordinator) Snapshot() []ProbeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ProbeStatus, 0, len(c.states))
	for _, state := range c.states {
		out = append(out, ProbeStatus{
			Name:                state.name,
			Interval:            state.interval.String(),
			LastSuccess:         state.lastSuccess,
			LastFailure:         state.lastFailure,
			ConsecutiveFailures: state.consecutiveFailures,
			Degraded:            state.degraded,
		})
	}
	return out
}

// Healthy reports whether no probe loop is currently degraded.
func (c *Coordinator) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, state := range c.states {
		if state.degraded {
			return false
		}
	}
	return true
}

func (c *Coordinator) run(ctx context.Context, state *probeState) {
	defer c.wg.Done()

	ticker := time.NewTicker(state.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probe(ctx, state)
		}
	}
}

func (c *Coordinator) probe(ctx context.Context, state *probeState) {
	start := time.Now()
	err := c.ping(ctx)
	latency := time.Since(start)

	result := &domain.ProbeResult{
		ProbeName: state.name,
		Endpoint:  c.targetURL,
		Success:   err == nil,
		LatencyMS: latency.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	c.persist(ctx, result)
	c.metrics.RecordProbe(state.name, err == nil)

	if err == nil {
		c.markSuccess(ctx, state)
		return
	}
	c.markFailure(ctx, state, err)
}

func (c *Coordinator) ping(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.targetURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Coordinator) markSuccess(ctx context.Context, state *probeState) {
	c.mu.Lock()
	now := time.Now()
	state.lastSuccess = &now
	wasDegraded := state.degraded
	state.consecutiveFailures = 0
	state.degraded = false
	c.mu.Unlock()

	if wasDegraded {
		c.logger.Info("probe recovered", zap.String("probe", state.name))
		c.publishHealth(ctx, state.name, 0, "", true)
	}
}

func (c *Coordinator) markFailure(ctx context.Context, state *probeState, err error) {
	c.mu.Lock()
	now := time.Now()
	state.lastFailure = &now
	state.consecutiveFailures++
	failures := state.consecutiveFailures
	crossed := failures == c.threshold
	if failures >= c.threshold {
		state.degraded = true
	}
	c.mu.Unlock()

	c.logger.Warn("probe failed",
		zap.String("probe", state.name),
		zap.Int("consecutive_failures", failures),
		zap.Error(err))

	if !crossed {
		return
	}

	// Threshold reached: alert operators, then try to self-recover the
	// chat transport, which is the usual casualty of a network stall.
	c.publishHealth(ctx, state.name, failures, err.Error(), false)
	if c.transport != nil {
		recCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if recErr := c.transport.Reconnect(recCtx); recErr != nil {
			c.logger.Error("transport reconnect failed",
				zap.String("probe", state.name),
				zap.Error(recErr))
		} else {
			c.logger.Info("transport reconnected", zap.String("probe", state.name))
		}
	}
}

func (c *Coordinator) publishHealth(ctx context.Context, probeName string, failures int, lastError string, recovered bool) {
	if c.dispatcher == nil {
		return
	}
	_ = c.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventHealthDegraded,
		Timestamp: time.Now(),
		Payload: events.HealthDegradedPayload{
			ProbeName:           probeName,
			ConsecutiveFailures: failures,
			LastError:           lastError,
			Recovered:           recovered,
		},
	})
}

func (c *Coordinator) persist(ctx context.Context, result *domain.ProbeResult) {
	if c.pings == nil {
		return
	}
	if err := c.pings.Create(ctx, result); err != nil {
		c.logger.Warn("probe result write failed",
			zap.String("probe", result.ProbeName),
			zap.Error(err))
	}
}

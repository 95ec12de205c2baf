package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FailureCause classifies why an attempt did not produce a usable reply.
// All causes count identically toward escalation.
type FailureCause string

const (
	FailureCauseError         FailureCause = "assistant_error"
	FailureCauseTimeout       FailureCause = "assistant_timeout"
	FailureCauseLowConfidence FailureCause = "low_confidence"
	FailureCauseEmptyReply    FailureCause = "empty_reply"
)

// AttemptResult is the outcome of exactly one automated-reply attempt.
type AttemptResult struct {
	Succeeded bool
	ReplyText string
	Cause     FailureCause
	Err       error
}

// Tracker performs single attempts against the assistant with a bounded
// timeout and a minimum-confidence floor. It holds no per-ticket state.
type Tracker struct {
	assistant     Assistant
	timeout       time.Duration
	minConfidence float64
	logger        *zap.Logger
}

// NewTracker constructs the attempt wrapper.
func NewTracker(a Assistant, timeout time.Duration, minConfidence float64, logger *zap.Logger) *Tracker {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Tracker{assistant: a, timeout: timeout, minConfidence: minConfidence, logger: logger}
}

// Attempt runs one assistant call. A transport error, a timeout, an empty
// reply and a reply below the confidence floor are all failures; the
// caller decides whether the failure triggers escalation.
func (t *Tracker) Attempt(ctx context.Context, rc ReplyContext) AttemptResult {
	if t.assistant == nil {
		return AttemptResult{Cause: FailureCauseError, Err: errors.New("no assistant configured")}
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, err := t.assistant.GenerateReply(callCtx, rc)
	if err != nil {
		cause := FailureCauseError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			cause = FailureCauseTimeout
		}
		t.logger.Warn("assistant attempt failed",
			zap.String("ticket_id", rc.TicketID),
			zap.String("cause", string(cause)),
			zap.Error(err))
		return AttemptResult{Cause: cause, Err: err}
	}

	if strings.TrimSpace(reply.Text) == "" {
		return AttemptResult{Cause: FailureCauseEmptyReply}
	}
	if reply.Confidence < t.minConfidence {
		t.logger.Info("assistant reply below confidence floor",
			zap.String("ticket_id", rc.TicketID),
			zap.Float64("confidence", reply.Confidence),
			zap.Float64("floor", t.minConfidence))
		return AttemptResult{Cause: FailureCauseLowConfidence}
	}

	return AttemptResult{Succeeded: true, ReplyText: reply.Text}
}

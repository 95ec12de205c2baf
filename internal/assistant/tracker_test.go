package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeAssistant struct {
	reply Reply
	err   error
	delay time.Duration
}

func (f *fakeAssistant) GenerateReply(ctx context.Context, _ ReplyContext) (Reply, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestAttemptSucceeds(t *testing.T) {
	tracker := NewTracker(&fakeAssistant{
		reply: Reply{Text: "clear the app cache and retry", Confidence: 0.8},
	}, time.Second, 0.5, zap.NewNop())

	result := tracker.Attempt(context.Background(), ReplyContext{TicketID: "t-1"})

	assert.True(t, result.Succeeded)
	assert.Equal(t, "clear the app cache and retry", result.ReplyText)
	assert.Empty(t, result.Cause)
}

func TestAttemptTransportError(t *testing.T) {
	tracker := NewTracker(&fakeAssistant{
		err: errors.New("connection refused"),
	}, time.Second, 0.5, zap.NewNop())

	result := tracker.Attempt(context.Background(), ReplyContext{TicketID: "t-1"})

	assert.False(t, result.Succeeded)
	assert.Equal(t, FailureCauseError, result.Cause)
	assert.Error(t, result.Err)
}

func TestAttemptTimeout(t *testing.T) {
	tracker := NewTracker(&fakeAssistant{
		reply: Reply{Text: "too late", Confidence: 0.9},
		delay: 200 * time.Millisecond,
	}, 20*time.Millisecond, 0.5, zap.NewNop())

	result := tracker.Attempt(context.Background(), ReplyContext{TicketID: "t-1"})

	assert.False(t, result.Succeeded)
	assert.Equal(t, FailureCauseTimeout, result.Cause)
}

func TestAttemptEmptyReply(t *testing.T) {
	tracker := NewTracker(&fakeAssistant{
		reply: Reply{Text: "   \n", Confidence: 0.9},
	}, time.Second, 0.5, zap.NewNop())

	result := tracker.Attempt(context.Background(), ReplyContext{TicketID: "t-1"})

	assert.False(t, result.Succeeded)
	assert.Equal(t, FailureCauseEmptyReply, result.Cause)
}

func TestAttemptLowConfidence(t *testing.T) {
	tracker := NewTracker(&fakeAssistant{
		reply: Reply{Text: "maybe reboot?", Confidence: 0.3},
	}, time.Second, 0.5, zap.NewNop())

	result := tracker.Attempt(context.Background(), ReplyContext{TicketID: "t-1"})

	assert.False(t, result.Succeeded)
	assert.Equal(t, FailureCauseLowConfidence, result.Cause)
}

func TestAttemptWithoutAssistant(t *testing.T) {
	tracker := NewTracker(nil, time.Second, 0.5, zap.NewNop())

	result := tracker.Attempt(context.Background(), ReplyContext{TicketID: "t-1"})

	assert.False(t, result.Succeeded)
	assert.Equal(t, FailureCauseError, result.Cause)
}

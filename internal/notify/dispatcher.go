package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/observability"
	"github.com/erixcast/support-service/internal/repository"
	"github.com/erixcast/support-service/internal/transport"
)

// Message is one notification to deliver. Exactly one of OwnerID or
// ToOperators selects the audience.
type Message struct {
	TemplateKey string
	OwnerID     string
	ToOperators bool
	Fields      map[string]string
	Buttons     []transport.Button
}

// Outcome is the per-recipient delivery result.
type Outcome struct {
	Recipient string
	Delivered bool
	Error     string
}

// Dispatcher renders and delivers notifications. A delivery failure is
// logged and recorded but never propagated to the caller: state changes
// must not roll back because a chat send failed.
type Dispatcher struct {
	directory     Directory
	renderer      Renderer
	client        transport.Client
	deliveries    repository.DeliveryLogRepository
	metrics       *observability.Metrics
	logger        *zap.Logger
	sendTimeout   time.Duration
	defaultLocale string
}

// NewDispatcher constructs the dispatcher. deliveries may be nil to skip
// the diagnostics log.
func NewDispatcher(
	directory Directory,
	renderer Renderer,
	client transport.Client,
	deliveries repository.DeliveryLogRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
	sendTimeout time.Duration,
	defaultLocale string,
) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	if defaultLocale == "" {
		defaultLocale = "it"
	}
	return &Dispatcher{
		directory:     directory,
		renderer:      renderer,
		client:        client,
		deliveries:    deliveries,
		metrics:       metrics,
		logger:        logger,
		sendTimeout:   sendTimeout,
		defaultLocale: defaultLocale,
	}
}

// Send resolves the audience and delivers one rendered message per
// recipient, each under its own timeout. It returns per-recipient
// outcomes and never an error.
func (d *Dispatcher) Send(ctx context.Context, msg Message) []Outcome {
	recipients, err := d.resolve(ctx, msg)
	if err != nil {
		d.logger.Error("notification audience resolution failed",
			zap.String("template", msg.TemplateKey),
			zap.Error(err))
		d.record(ctx, msg.TemplateKey, "unresolved", err)
		return []Outcome{{Recipient: "unresolved", Error: err.Error()}}
	}
	if len(recipients) == 0 {
		d.logger.Warn("notification has no reachable recipients",
			zap.String("template", msg.TemplateKey))
		return nil
	}

	outcomes := make([]Outcome, 0, len(recipients))
	for _, rcpt := range recipients {
		outcomes = append(outcomes, d.deliver(ctx, msg, rcpt))
	}
	return outcomes
}

func (d *Dispatcher) resolve(ctx context.Context, msg Message) ([]Recipient, error) {
	if msg.ToOperators {
		return d.directory.ResolveOperators(ctx)
	}
	rcpt, err := d.directory.ResolveOwner(ctx, msg.OwnerID)
	if err != nil {
		return nil, err
	}
	return []Recipient{rcpt}, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message, rcpt Recipient) Outcome {
	locale := rcpt.Locale
	if locale == "" {
		locale = d.defaultLocale
	}

	text, err := d.renderer.Render(msg.TemplateKey, locale, msg.Fields)
	if err != nil {
		d.logger.Error("notification render failed",
			zap.String("template", msg.TemplateKey),
			zap.String("locale", locale),
			zap.Error(err))
		d.record(ctx, msg.TemplateKey, rcpt.ChatID, err)
		d.metrics.RecordDelivery(msg.TemplateKey, false)
		return Outcome{Recipient: rcpt.ChatID, Error: err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.client.SendMessage(sendCtx, rcpt.ChatID, text, msg.Buttons); err != nil {
		d.logger.Error("notification delivery failed",
			zap.String("template", msg.TemplateKey),
			zap.String("chat_id", rcpt.ChatID),
			zap.Error(err))
		d.record(ctx, msg.TemplateKey, rcpt.ChatID, err)
		d.metrics.RecordDelivery(msg.TemplateKey, false)
		return Outcome{Recipient: rcpt.ChatID, Error: err.Error()}
	}

	d.record(ctx, msg.TemplateKey, rcpt.ChatID, nil)
	d.metrics.RecordDelivery(msg.TemplateKey, true)
	return Outcome{Recipient: rcpt.ChatID, Delivered: true}
}

func (d *Dispatcher) record(ctx context.Context, kind, recipient string, sendErr error) {
	if d.deliveries == nil {
		return
	}
	rec := &domain.DeliveryRecord{
		EventKind: kind,
		Recipient: recipient,
		Status:    domain.DeliveryStatusDelivered,
	}
	if sendErr != nil {
		rec.Status = domain.DeliveryStatusFailed
		rec.Error = sendErr.Error()
	}
	if err := d.deliveries.Create(ctx, rec); err != nil {
		d.logger.Warn("delivery log write failed", zap.Error(err))
	}
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/repository"
)

const operatorCacheKey = "notify:operators"

// Recipient is a resolved delivery target.
type Recipient struct {
	ChatID string `json:"chat_id"`
	Locale string `json:"locale"`
	Label  string `json:"label"`
}

// Directory resolves notification audiences to concrete recipients.
type Directory interface {
	ResolveOwner(ctx context.Context, userID string) (Recipient, error)
	ResolveOperators(ctx context.Context) ([]Recipient, error)
}

type storeDirectory struct {
	users     repository.UserRepository
	operators repository.OperatorRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewDirectory builds a repository-backed directory. The active operator
// set is cached in Redis for cacheTTL; a nil cache client disables caching.
func NewDirectory(users repository.UserRepository, operators repository.OperatorRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) Directory {
	return &storeDirectory{
		users:     users,
		operators: operators,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func (d *storeDirectory) ResolveOwner(ctx context.Context, userID string) (Recipient, error) {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return Recipient{}, err
	}
	if user.ChatID == nil || *user.ChatID == "" {
		return Recipient{}, fmt.Errorf("user %s has no chat channel", userID)
	}
	return Recipient{ChatID: *user.ChatID, Locale: user.Locale, Label: user.Name}, nil
}

func (d *storeDirectory) ResolveOperators(ctx context.Context) ([]Recipient, error) {
	if cached, ok := d.fromCache(ctx); ok {
		return cached, nil
	}

	operators, err := d.operators.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	recipients := make([]Recipient, 0, len(operators))
	for _, op := range operators {
		if op.ChatID == nil || *op.ChatID == "" {
			continue
		}
		recipients = append(recipients, Recipient{ChatID: *op.ChatID, Locale: op.Locale, Label: op.Name})
	}

	d.toCache(ctx, recipients)
	return recipients, nil
}

func (d *storeDirectory) fromCache(ctx context.Context) ([]Recipient, bool) {
	if d.cache == nil {
		return nil, false
	}
	raw, err := d.cache.Get(ctx, operatorCacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			d.logger.Warn("operator cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var recipients []Recipient
	if err := json.Unmarshal([]byte(raw), &recipients); err != nil {
		return nil, false
	}
	return recipients, true
}

func (d *storeDirectory) toCache(ctx context.Context, recipients []Recipient) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(recipients)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, operatorCacheKey, raw, d.cacheTTL).Err(); err != nil {
		d.logger.Warn("operator cache write failed", zap.Error(err))
	}
}

package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/regform/apiserver/internal/mq"
	"github.com/regform/apiserver/types"
	"go.uber.org/zap"
)

// Event types emitted on the user lifecycle channel.
const (
	TypeUserRegistered = "user.registered"
	TypeUserCreated    = "user.created"
	TypeUserUpdated    = "user.updated"
	TypeUserDeleted    = "user.deleted"
)

const publishTimeout = 5 * time.Second

// Envelope is the wire form of a lifecycle event. The user payload is
// serialized through types.User, so password hashes never leave the
// process.
type Envelope struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	OccurredAt time.Time  `json:"occurred_at"`
	User       types.User `json:"user"`
}

// Publisher emits user lifecycle events to a broker channel.
// Publishing is best-effort: failures are logged and never surfaced
// to the request that triggered them.
type Publisher struct {
	mq      *mq.MQ
	channel string
	log     *zap.Logger
}

// NewPublisher constructs a Publisher. A nil broker yields a no-op
// publisher, which keeps handlers free of nil checks.
func NewPublisher(broker *mq.MQ, channel string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{mq: broker, channel: channel, log: log}
}

// PublishUser emits one event of the given type for the given user.
func (p *Publisher) PublishUser(ctx context.Context, eventType string, user types.User) {
	if p == nil || p.mq == nil {
		return
	}

	envelope := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now(),
		User:       user,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		p.log.Error("marshal user event", zap.String("type", eventType), zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{"type": eventType}
	if _, err := p.mq.Publish(publishCtx, p.channel, data, attrs); err != nil {
		p.log.Error("publish user event",
			zap.String("type", eventType),
			zap.Int("user_id", user.ID),
			zap.Error(err),
		)
	}
}

// Close closes the underlying broker connection.
func (p *Publisher) Close() error {
	if p == nil || p.mq == nil {
		return nil
	}
	return p.mq.Close()
}

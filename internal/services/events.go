package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/mq"
	"github.com/postboard/apiserver/types"
)

// EventPublisher emits post lifecycle events on a broker. A nil broker makes
// every publish a no-op.
type EventPublisher struct {
	broker mq.Broker
	logger *logger.Logger
	now    func() time.Time
}

func NewEventPublisher(broker mq.Broker, log *logger.Logger) *EventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &EventPublisher{broker: broker, logger: log, now: time.Now}
}

// Publish sends an event of the given type for post. Failures are logged and
// swallowed; the change that triggered the event has already been committed.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, post types.Post) {
	if p == nil || p.broker == nil {
		return
	}

	event := types.PostEvent{
		Type:       eventType,
		PostID:     post.ID,
		OwnerID:    post.OwnerID,
		Title:      post.Title,
		Published:  post.Published,
		OccurredAt: p.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to encode post event", "type", eventType, "post_id", post.ID, "error", err)
		return
	}

	id, err := p.broker.Publish(ctx, eventType, data, map[string]string{
		"post_id":  post.ID.String(),
		"owner_id": post.OwnerID.String(),
	})
	if err != nil {
		p.logger.Warn("failed to publish post event", "type", eventType, "post_id", post.ID, "error", err)
		return
	}
	p.logger.Debug("published post event", "type", eventType, "post_id", post.ID, "message_id", id)
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// PubSubHandoffPublisher publishes checkout hand-off events to a Pub/Sub topic.
type PubSubHandoffPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubHandoffPublisher constructs a Pub/Sub backed hand-off publisher.
func NewPubSubHandoffPublisher(topic *pubsub.Topic) (*PubSubHandoffPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub handoff publisher: topic is required")
	}
	return &PubSubHandoffPublisher{topic: topic, marshal: json.Marshal}, nil
}

// NotifyHandoff blocks until the server acknowledges the message.
func (p *PubSubHandoffPublisher) NotifyHandoff(ctx context.Context, event domain.HandoffEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub handoff publisher: not initialised")
	}

	data, err := p.marshal(newHandoffMessage(event))
	if err != nil {
		return fmt.Errorf("marshal handoff event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", event.ID)
	setAttr(attrs, "cartId", event.CartID)
	setAttr(attrs, "type", handoffMessageType)

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish handoff event: %w", err)
	}
	return nil
}

// Close flushes pending messages and stops the topic's background goroutines.
func (p *PubSubHandoffPublisher) Close() error {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
	return nil
}

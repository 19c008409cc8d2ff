package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaHandoffPublisher publishes checkout hand-off events keyed by cart id.
type KafkaHandoffPublisher struct {
	writer  MessageWriter
	marshal func(any) ([]byte, error)
}

// NewKafkaWriter builds a writer for the topic balancing by least bytes.
func NewKafkaWriter(brokers []string, topic string) (*kafka.Writer, error) {
	var addrs []string
	for _, broker := range brokers {
		if b := strings.TrimSpace(broker); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("kafka handoff publisher: at least one broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka handoff publisher: topic is required")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  strings.TrimSpace(topic),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}, nil
}

// NewKafkaHandoffPublisher wraps a writer.
func NewKafkaHandoffPublisher(writer MessageWriter) (*KafkaHandoffPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka handoff publisher: writer is required")
	}
	return &KafkaHandoffPublisher{writer: writer, marshal: json.Marshal}, nil
}

func (p *KafkaHandoffPublisher) NotifyHandoff(ctx context.Context, event domain.HandoffEvent) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka handoff publisher: not initialised")
	}
	data, err := p.marshal(newHandoffMessage(event))
	if err != nil {
		return fmt.Errorf("marshal handoff event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.CartID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "eventId", Value: []byte(event.ID)},
			{Key: "type", Value: []byte(handoffMessageType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write handoff event: %w", err)
	}
	return nil
}

func (p *KafkaHandoffPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

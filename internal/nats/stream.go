package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/goodfoods/reservation-platform/internal/model"
)

const (
	// StreamName is the name of the reservations stream.
	StreamName = "RESERVATIONS"

	// SubjectPrefix is the prefix for all subjects on the stream.
	SubjectPrefix = "dine"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(js jetstream.JetStream) *StreamManager {
	return &StreamManager{js: js}
}

// EnsureStream creates the reservations stream unless it already exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	_, err := m.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Dialogue transcripts, session events and committed orders",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a session message.
func MessageSubject(sessionID string, role model.Role) string {
	return fmt.Sprintf("%s.session.%s.msg.%s", SubjectPrefix, sessionID, role)
}

// EventSubject returns the subject for a session event.
func EventSubject(sessionID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.session.%s.event.%s", SubjectPrefix, sessionID, eventType)
}

// OrderSubject returns the subject for a committed order.
func OrderSubject(restaurantID string) string {
	return fmt.Sprintf("%s.order.%s", SubjectPrefix, restaurantID)
}

// PublishMessage publishes a session message.
func (m *StreamManager) PublishMessage(ctx context.Context, sessionID string, msg model.Message) error {
	return m.publish(ctx, MessageSubject(sessionID, msg.Role), msg)
}

// PublishEvent publishes a session lifecycle event.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.SessionEvent) error {
	return m.publish(ctx, EventSubject(event.SessionID, event.Type), event, jetstream.WithMsgID(event.ID))
}

// PublishOrder publishes a committed order. The order id deduplicates
// redeliveries within the stream's duplicate window.
func (m *StreamManager) PublishOrder(ctx context.Context, order model.Order) error {
	return m.publish(ctx, OrderSubject(order.RestaurantID), order, jetstream.WithMsgID(order.OrderID))
}

func (m *StreamManager) publish(ctx context.Context, subject string, v any, opts ...jetstream.PublishOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", subject, err)
	}

	if _, err := m.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// SessionMessages replays up to limit messages of a session transcript from
// the stream, oldest first.
func (m *StreamManager) SessionMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	consumer, err := m.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{fmt.Sprintf("%s.session.%s.msg.>", SubjectPrefix, sessionID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.FetchNoWait(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make([]model.Message, 0, limit)
	for msg := range batch.Messages() {
		var message model.Message
		if err := json.Unmarshal(msg.Data(), &message); err != nil {
			continue
		}
		messages = append(messages, message)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	return messages, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/segmentio/kafka-go"
)

const notificationsTopic = "loan-notifications"
const activityLogTopic = "activity-log"

type notificationMessage struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	EventType     string    `json:"eventType"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	ReferenceID   string    `json:"referenceId"`
	ReferenceType string    `json:"referenceType"`
	EmittedAt     time.Time `json:"emittedAt"`
}

type activityMessage struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	EventType string    `json:"eventType"`
	Detail    string    `json:"detail"`
	EmittedAt time.Time `json:"emittedAt"`
}

// NotificationSink publishes user notifications to Kafka. The escrow
// coordinator calls it after commit only; a write failure is the caller's to
// log and discard.
type NotificationSink struct {
	writer *kafka.Writer
}

func NewNotificationSink(brokers []string) *NotificationSink {
	return &NotificationSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    notificationsTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (s *NotificationSink) Notify(ctx context.Context, notification domain.Notification) error {
	data, err := json.Marshal(notificationMessage{
		ID:            uuid.NewString(),
		UserID:        notification.UserID,
		EventType:     notification.EventType,
		Title:         notification.Title,
		Body:          notification.Body,
		ReferenceID:   notification.ReferenceID,
		ReferenceType: notification.ReferenceType,
		EmittedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notification.UserID),
		Value: data,
	})
}

func (s *NotificationSink) Close() error {
	return s.writer.Close()
}

// ActivityLogSink publishes audit-trail entries to Kafka with the same
// post-commit, best-effort contract as NotificationSink.
type ActivityLogSink struct {
	writer *kafka.Writer
}

func NewActivityLogSink(brokers []string) *ActivityLogSink {
	return &ActivityLogSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    activityLogTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (s *ActivityLogSink) Log(ctx context.Context, entry domain.ActivityEntry) error {
	data, err := json.Marshal(activityMessage{
		ID:        uuid.NewString(),
		ActorID:   entry.ActorID,
		EventType: entry.EventType,
		Detail:    entry.Detail,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.ActorID),
		Value: data,
	})
}

func (s *ActivityLogSink) Close() error {
	return s.writer.Close()
}

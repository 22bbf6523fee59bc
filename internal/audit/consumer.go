package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/leasedesk/leasedesk/internal/events"
)

const fetchTimeout = 2 * time.Second

// Consumer drains the domain event stream into audit_logs rows.
type Consumer struct {
	repo *Repository
	js   jetstream.JetStream
}

func NewConsumer(repo *Repository, js jetstream.JetStream) *Consumer {
	return &Consumer{repo: repo, js: js}
}

// Start runs the consume loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, events.StreamEvents, jetstream.ConsumerConfig{
		Durable:       "audit-persister",
		FilterSubject: "leasedesk.events.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(fetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var envelope struct {
		UserID    string    `json:"user_id"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err)
		_ = msg.Nak()
		return
	}

	userID, err := uuid.Parse(envelope.UserID)
	if err != nil {
		// Not a user-scoped event; drop rather than poison the stream.
		slog.Warn("audit consumer: event without user id", "subject", msg.Subject())
		_ = msg.Ack()
		return
	}

	createdAt := envelope.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	entry := &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType(msg.Subject()),
		Details:   json.RawMessage(msg.Data()),
		CreatedAt: createdAt,
	}

	if err := c.repo.Insert(ctx, entry); err != nil {
		slog.Error("audit consumer: persisting entry", "error", err, "subject", msg.Subject())
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// eventType maps "leasedesk.events.upload" to "upload".
func eventType(subject string) string {
	if i := strings.LastIndex(subject, "."); i >= 0 {
		return subject[i+1:]
	}
	return subject
}

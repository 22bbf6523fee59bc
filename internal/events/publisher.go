package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing domain events. A nil
// Publisher is valid and drops everything, so callers never need to branch
// on whether NATS is configured.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) PublishUpload(ctx context.Context, event UploadEvent) {
	p.publish(ctx, SubjectUpload, event)
}

func (p *Publisher) PublishAuth(ctx context.Context, event AuthEvent) {
	p.publish(ctx, SubjectAuth, event)
}

func (p *Publisher) PublishPlanChange(ctx context.Context, event PlanChangeEvent) {
	p.publish(ctx, SubjectPlanChange, event)
}

// publish is best effort: event delivery never fails a request.
func (p *Publisher) publish(ctx context.Context, subject string, data any) {
	if p == nil || p.js == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshaling event", "subject", subject, "error", err)
		return
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		slog.Warn("publishing event", "subject", subject, "error", err)
	}
}

package notify

import (
	"context"
	"log"
	"time"

	"cypher-service/internal/models"
	"cypher-service/internal/repositories"
)

// Publisher is the event sink the fan-out writes to, in addition to the
// persisted notification records.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Event is the wire envelope published per fan-out.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	SenderID      string    `json:"sender_id"`
	RecipientIDs  []string  `json:"recipient_ids"`
	Text          string    `json:"text"`
}

// Fanout delivers notification records to opted-in recipients. It is
// fire-and-forget from the caller's perspective: failures are logged, never
// surfaced.
type Fanout struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	publisher     Publisher
	routingKey    string
}

// NewFanout constructs a Fanout.
func NewFanout(users repositories.UserRepository, notifications repositories.NotificationRepository, publisher Publisher, routingKey string) *Fanout {
	return &Fanout{
		users:         users,
		notifications: notifications,
		publisher:     publisher,
		routingKey:    routingKey,
	}
}

// Notify records a notification for every recipient who opted in, skipping
// the sender, and publishes one event for the batch.
func (f *Fanout) Notify(ctx context.Context, recipientIDs []string, senderID, text string) {
	if f == nil {
		return
	}

	candidates := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id != senderID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return
	}

	recipients, err := f.users.FilterNotifiable(ctx, candidates)
	if err != nil {
		log.Printf("notification fanout: filter recipients failed: %v", err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	records := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		records = append(records, models.Notification{RecipientID: id, SenderID: senderID, Body: text})
	}
	if err := f.notifications.CreateBatch(ctx, records); err != nil {
		log.Printf("notification fanout: persist failed: %v", err)
		return
	}

	if f.publisher == nil {
		return
	}
	event := Event{
		SchemaVersion: 1,
		EventType:     "notification",
		OccurredAt:    time.Now().UTC(),
		SenderID:      senderID,
		RecipientIDs:  recipients,
		Text:          text,
	}
	if err := f.publisher.Publish(ctx, f.routingKey, event); err != nil {
		log.Printf("notification fanout: publish failed: %v", err)
	}
}

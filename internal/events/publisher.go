// Package events publishes change log entries to Kafka so other systems can
// follow tracker changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/observability"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives change entries when no topic is configured.
const DefaultTopic = "plantrack.changes"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements changelog.Publisher over a Kafka writer.
type Publisher struct {
	writer messageWriter
}

var _ changelog.Publisher = (*Publisher)(nil)

// NewPublisher creates a synchronous writer for topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}}
}

// Message is the wire form of a change entry.
type Message struct {
	Kind       changelog.Kind `json:"kind"`
	ProjectID  *string        `json:"project_id,omitempty"`
	TemplateID *string        `json:"template_id,omitempty"`
	TargetID   *string        `json:"target_id,omitempty"`
	Summary    string         `json:"summary"`
	Version    uint64         `json:"version"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publish sends one entry, keyed by project (or template) so that changes to
// one record stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, entry changelog.Entry) (err error) {
	defer func() { observability.RecordPublish(err) }()

	payload, err := json.Marshal(Message{
		Kind:       entry.Kind,
		ProjectID:  entry.ProjectID,
		TemplateID: entry.TemplateID,
		TargetID:   entry.TargetID,
		Summary:    entry.Summary,
		Version:    entry.Version,
		OccurredAt: entry.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(partitionKey(entry)),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(entry.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write change: %w", err)
	}
	return nil
}

// Close releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func partitionKey(entry changelog.Entry) string {
	switch {
	case entry.ProjectID != nil:
		return "project:" + *entry.ProjectID
	case entry.TemplateID != nil:
		return "template:" + *entry.TemplateID
	default:
		return "store"
	}
}

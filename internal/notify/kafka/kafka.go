// Package kafka publishes flagged triage decisions to a Kafka review topic
// for downstream review queues.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/mediguard/internal/triage"
)

// EventType is carried in the event-type header of every message.
const EventType = "triage.review_requested"

const writeTimeout = 10 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes review events keyed by patient ID, so events for one
// patient stay on one partition.
type Publisher struct {
	w messageWriter
}

// New creates a publisher for topic on brokers.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, xerrors.New("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, xerrors.New("kafka: topic is required")
	}
	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: writeTimeout,
	}}, nil
}

// ReviewEvent is the message payload.
type ReviewEvent struct {
	DecisionID   string            `json:"decision_id"`
	PatientID    string            `json:"patient_id"`
	Class        triage.Class      `json:"triage_class"`
	Confidence   float64           `json:"confidence_score"`
	Explanation  string            `json:"explanation"`
	Vitals       triage.VitalSigns `json:"vitals"`
	ModelVersion string            `json:"model_version,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Notify publishes a review event for d.
func (p *Publisher) Notify(ctx context.Context, d *triage.Decision) error {
	value, err := json.Marshal(ReviewEvent{
		DecisionID:   d.ID,
		PatientID:    d.PatientID,
		Class:        d.Class,
		Confidence:   d.Confidence,
		Explanation:  d.Explanation,
		Vitals:       d.Vitals,
		ModelVersion: d.ModelVersion,
		CreatedAt:    d.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	carrier := headerCarrier{{Key: "event-type", Value: []byte(EventType)}}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	msg := kafka.Message{
		Key:     []byte(d.PatientID),
		Value:   value,
		Headers: carrier,
		Time:    d.CreatedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write review event %s: %w", d.ID, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// headerCarrier adapts message headers to a propagation.TextMapCarrier.
type headerCarrier []kafka.Header

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}

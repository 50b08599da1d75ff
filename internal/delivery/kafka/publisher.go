package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/logger"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type EventEnvelope struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func EventTopic(t usecase.EventType) string {
	return TopicEventPrefix + string(t)
}

// Publisher writes domain events to their per-type topic, keyed by aggregate id so events
// for one order or coupon stay ordered.
type Publisher struct {
	client producer
	newID  func() string
}

func NewPublisher(client *kgo.Client) *Publisher {
	return &Publisher{client: client, newID: uuid.NewString}
}

func (p *Publisher) Publish(ctx context.Context, ev usecase.Event) error {
	record, err := p.record(ev)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) record(ev usecase.Event) (*kgo.Record, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Type, err)
	}
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	value, err := json.Marshal(EventEnvelope{
		EventID:    p.newID(),
		Type:       string(ev.Type),
		OccurredAt: occurred.UTC(),
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", ev.Type, err)
	}
	return &kgo.Record{
		Topic: EventTopic(ev.Type),
		Key:   []byte(ev.Key),
		Value: value,
	}, nil
}

// LogPublisher stands in for Publisher when event-driven mode is off.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev usecase.Event) error {
	logger.FromContext(ctx).Info("domain_event",
		zap.String("type", string(ev.Type)),
		zap.String("key", ev.Key),
		zap.Any("payload", ev.Payload),
	)
	return nil
}

var (
	_ usecase.EventPublisher = (*Publisher)(nil)
	_ usecase.EventPublisher = LogPublisher{}
)

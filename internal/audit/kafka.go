package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// wireEvent is the JSON shape published to the events topic.
type wireEvent struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id,omitempty"`
	Action     string `json:"action"`
	Outcome    string `json:"outcome"`
	AccountID  string `json:"account_id,omitempty"`
	Email      string `json:"email,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Status     int    `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// KafkaSink publishes events to a topic, keyed by account id so one
// account's attempts stay ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSink connects to the brokers and verifies them with a ping.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: kafka client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("audit: kafka ping: %w", err)
	}
	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the event asynchronously. Delivery failures are logged;
// the trail never blocks a request on the broker.
func (s *KafkaSink) Publish(ctx context.Context, event Event) {
	value, err := json.Marshal(wireEvent{
		ID:         event.ID,
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		RequestID:  event.RequestID,
		Action:     event.Action,
		Outcome:    event.Outcome,
		AccountID:  event.AccountID,
		Email:      event.Email,
		ErrorCode:  event.ErrorCode,
		Status:     event.Status,
		DurationMS: event.Duration.Milliseconds(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "audit event marshal failed", "error", err)
		return
	}

	record := &kgo.Record{Topic: s.topic, Key: []byte(event.AccountID), Value: value}
	s.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("audit event publish failed",
				"action", event.Action, "outcome", event.Outcome, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("audit: kafka flush: %w", err)
	}
	s.client.Close()
	return nil
}

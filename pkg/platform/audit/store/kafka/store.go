// Package kafka forwards audit events to a Kafka topic. The topic is the
// system of record; ListBySubject reads only the local tail kept for
// diagnostics.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	audit "proofpass/pkg/platform/audit"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const defaultTailSize = 256

type payload struct {
	Category   string            `json:"category"`
	Timestamp  string            `json:"timestamp"`
	Subject    string            `json:"subject"`
	ActorID    string            `json:"actor_id,omitempty"`
	Action     string            `json:"action"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type Store struct {
	client *kgo.Client
	topic  string

	mu   sync.Mutex
	tail []audit.Event
}

// New connects to brokers and makes sure topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka audit store requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Store{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Append produces event keyed by subject so a subject's events stay ordered
// within one partition.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	value, err := json.Marshal(payload{
		Category:   string(category),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:    event.Subject,
		ActorID:    event.ActorID,
		Action:     event.Action,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		Attributes: event.Attributes,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{Topic: s.topic, Key: []byte(event.Subject), Value: value}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}

	s.mu.Lock()
	s.tail = append(s.tail, event)
	if len(s.tail) > defaultTailSize {
		s.tail = s.tail[len(s.tail)-defaultTailSize:]
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.tail {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Close() {
	s.client.Close()
}

package repository

import (
	"context"
	"strings"

	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/domain/repository"
	pkgkafka "PumpWatch/pkg/kafka"
)

// alertEvent is the notification payload. It mirrors one ledger row.
type alertEvent struct {
	Kind  string       `json:"kind"`
	Alert models.Alert `json:"alert"`
}

// KafkaPublisher implements AlertPublisher for Kafka, keyed by ticker.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.AlertPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishAlerts(ctx context.Context, kind string, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(strings.ToUpper(a.Ticker)),
			Value:   alertEvent{Kind: kind, Alert: a},
			Headers: map[string]string{"kind": kind},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops notifications when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAlerts(context.Context, string, []models.Alert) error { return nil }
func (NopPublisher) Close() error                                                { return nil }

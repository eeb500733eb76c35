package repository

import (
	"context"

	"UsagePrep/internal/domain/models"
	"UsagePrep/internal/domain/repository"
	pkgkafka "UsagePrep/pkg/kafka"
)

// CycleEventPublisher emits per-cycle status records to Kafka. When the
// producer is nil (kafka disabled) publishing is a no-op.
type CycleEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewCycleEventPublisher creates a cycle event publisher.
func NewCycleEventPublisher(producer *pkgkafka.Producer, topic string) repository.CyclePublisher {
	return &CycleEventPublisher{producer: producer, topic: topic}
}

func (p *CycleEventPublisher) PublishCycle(ctx context.Context, ev models.CycleEvent) error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.topic, []byte(ev.CycleID), ev)
}

func (p *CycleEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

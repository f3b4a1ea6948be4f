package repository

import (
	"context"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	pkgkafka "SigFuse/pkg/kafka"
)

// KafkaDecisionPublisher forwards decisions to the execution collaborator's
// topic, keyed by instrument so one instrument's decisions stay ordered.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) domrepo.DecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, d *models.CombinedDecision) error {
	return p.producer.Publish(ctx, p.topic, []byte(d.Instrument), d)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

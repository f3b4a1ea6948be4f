package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SigFuse/internal/domain/models"
	domrepo "SigFuse/internal/domain/repository"
	pkgkafka "SigFuse/pkg/kafka"
	"SigFuse/pkg/queue"
)

// OutcomeMessageType is the queue message type for execution reports.
const OutcomeMessageType = "execution_report"

// KafkaOutcomesHandler consumes execution reports from Kafka and hands them
// to the redis queue, decoupling the consumer read loop from storage latency.
type KafkaOutcomesHandler struct {
	topic   string
	queue   queue.QueueService
	metrics domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, q queue.QueueService, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, queue: q, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var report models.ExecutionReport
	if err := json.Unmarshal(b, &report); err != nil {
		h.metrics.RecordError("outcome_unmarshal")
		return err
	}
	if report.PredictionID == "" || report.StrategyID == "" {
		h.metrics.RecordError("outcome_invalid")
		return fmt.Errorf("execution report missing ids")
	}
	if err := h.queue.PublishMessage(ctx, OutcomeMessageType, report); err != nil {
		h.metrics.RecordError("outcome_enqueue")
		return fmt.Errorf("enqueue report %s: %w", report.PredictionID, err)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)

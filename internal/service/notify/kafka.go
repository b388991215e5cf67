package notify

import (
	"context"
	"fmt"

	"ScoutSync/internal/domain/models"
)

// Publisher is the subset of the Kafka producer used for outcome events.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaNotifier publishes each outcome as a JSON event keyed by file name.
type KafkaNotifier struct {
	pub   Publisher
	topic string
}

func NewKafkaNotifier(pub Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{pub: pub, topic: topic}
}

type outcomeEvent struct {
	*models.ReconciliationResult
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, res *models.ReconciliationResult) error {
	ev := outcomeEvent{ReconciliationResult: res, Subject: Subject, Body: Body(res)}
	if err := n.pub.Publish(ctx, n.topic, []byte(res.File), ev); err != nil {
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}

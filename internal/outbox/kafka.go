package outbox

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher publishes outbox entries to a Kafka topic. Records are keyed
// by aggregate id so all actions of one event land on the same partition in
// commit order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and returns a publisher for the
// given topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry Entry) error {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "entry-id", Value: []byte(entry.ID.String())},
			{Key: "event-type", Value: []byte(entry.EventType)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce outbox entry: %w", err)
	}
	return nil
}

// Close flushes buffered records and tears down the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one message per merged record, keyed by station.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (k *KafkaSink) Name() string {
	return "kafka"
}

type recordMessage struct {
	CycleID string `json:"cycleId"`
	ingest.MergedRecord
}

func (k *KafkaSink) Write(ctx context.Context, batch ingest.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(batch.Records))
	for _, r := range batch.Records {
		value, err := json.Marshal(recordMessage{CycleID: batch.CycleID.String(), MergedRecord: r})
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", r.Key(), err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Key()),
			Value: value,
			Time:  batch.CapturedAt,
		})
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write to %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

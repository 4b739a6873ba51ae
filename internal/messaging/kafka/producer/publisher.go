package producer

import (
	"context"

	"hris-timekeeper/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
)

// publishEvent keys by aggregate id so one employee's events stay ordered
// within a partition.
func publishEvent(ctx context.Context, writer kafka.MessageWriter, event kafka.OutboxEvent) error {
	headers := []kafkago.Header{
		{Key: kafka.HeaderEventType, Value: []byte(event.EventType)},
		{Key: kafka.HeaderAggregateType, Value: []byte(event.AggregateType)},
		{Key: kafka.HeaderOutboxID, Value: []byte(event.ID)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: kafka.HeaderRequestID, Value: []byte(event.RequestID)})
	}

	return writer.WriteMessages(ctx, kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	})
}

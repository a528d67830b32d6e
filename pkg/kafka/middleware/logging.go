// Package kafkamiddleware holds logging and counting middleware shared by
// producers and consumers.
package kafkamiddleware

import (
	"context"
	"time"

	"booktable/pkg/kafka"
	"booktable/pkg/logger"
)

func Logging(log *logger.Logger, side string) kafka.Middleware {
	log = log.Component("kafka_" + side)
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
			"duration", time.Since(start),
		}
		if side == "consumer" {
			attrs = append(attrs, "partition", msg.Partition, "offset", msg.Offset)
		}

		if err != nil {
			log.Error("Kafka message failed", append(attrs, "error", err)...)
			return err
		}
		log.Debug("Kafka message handled", attrs...)
		return nil
	}
}

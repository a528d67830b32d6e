package kafkamiddleware

import (
	"context"
	"sync/atomic"
	"time"

	"booktable/pkg/kafka"
	"booktable/pkg/logger"
)

// Counters tracks message outcomes for one producer or consumer.
type Counters struct {
	succeeded atomic.Int64
	failed    atomic.Int64
	totalNano atomic.Int64
}

type Snapshot struct {
	Succeeded   int64
	Failed      int64
	AvgDuration time.Duration
}

func (c *Counters) Middleware() kafka.Middleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		c.totalNano.Add(int64(time.Since(start)))
		if err != nil {
			c.failed.Add(1)
		} else {
			c.succeeded.Add(1)
		}
		return err
	}
}

func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{Succeeded: c.succeeded.Load(), Failed: c.failed.Load()}
	if n := s.Succeeded + s.Failed; n > 0 {
		s.AvgDuration = time.Duration(c.totalNano.Load() / n)
	}
	return s
}

// Log writes the current counts, typically on shutdown.
func (c *Counters) Log(log *logger.Logger, name string) {
	s := c.Snapshot()
	log.Info("Kafka message counters",
		"name", name,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"avg_duration", s.AvgDuration,
	)
}

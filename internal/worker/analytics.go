package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/doinghun/merlabot-public/internal/kafka"
	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/doinghun/merlabot-public/internal/repository"
)

// AnalyticsSink drains delivery events from Kafka into ClickHouse with
// size/time-based batching. Poison messages are committed and skipped;
// consumption is at-least-once and the table tolerates duplicates.
type AnalyticsSink struct {
	Consumer   *kafka.Consumer
	Deliveries repository.DeliveriesRepository

	BatchSize int           // max buffered events per flush
	BatchWait time.Duration // max time to wait before flush
}

func NewAnalyticsSink(consumer *kafka.Consumer, deliveries repository.DeliveriesRepository) *AnalyticsSink {
	return &AnalyticsSink{
		Consumer:   consumer,
		Deliveries: deliveries,
		BatchSize:  200,
		BatchWait:  time.Second,
	}
}

// Run starts the sink and blocks until ctx is cancelled.
func (s *AnalyticsSink) Run(ctx context.Context) error {
	if s.BatchSize <= 0 {
		s.BatchSize = 200
	}
	if s.BatchWait <= 0 {
		s.BatchWait = time.Second
	}

	events := make(chan model.DeliveryEvent, s.BatchSize*2)

	// Fetcher goroutine
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := s.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[analytics] kafka fetch err: %v", err)
					time.Sleep(200 * time.Millisecond)
					continue
				}

				var ev model.DeliveryEvent
				if err := json.Unmarshal(m.Value, &ev); err != nil || ev.ID == "" {
					log.Printf("[analytics] bad delivery event, skipping: %v", err)
					_ = s.Consumer.Commit(ctx, m)
					continue
				}

				events <- ev
				if err := s.Consumer.Commit(ctx, m); err != nil {
					log.Printf("[analytics] commit err: %v", err)
				}
			}
		}
	}()

	s.runBatchWriter(ctx, events)
	return nil
}

func (s *AnalyticsSink) runBatchWriter(ctx context.Context, in <-chan model.DeliveryEvent) {
	tick := time.NewTicker(s.BatchWait)
	defer tick.Stop()

	var buf []model.DeliveryEvent

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if err := s.Deliveries.InsertBatch(ctx, buf); err != nil {
			log.Printf("[analytics] insert batch err: %v", err)
			return
		}
		log.Printf("[analytics] flushed events=%d", len(buf))
		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case ev, ok := <-in:
			if !ok {
				flush()
				return
			}
			buf = append(buf, ev)
			if len(buf) >= s.BatchSize {
				flush()
			}

		case <-tick.C:
			flush()
		}
	}
}

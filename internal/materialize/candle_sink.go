package materialize

import (
	"context"
	"fmt"
	"log"
	"time"

	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/observability"
)

// candleQueueCapacity bounds the mirror queue; a full queue drops the
// oldest candle rather than blocking a mint's worker goroutine.
const candleQueueCapacity = 1024

// CandleSink mirrors sealed (IsFinal) candles into a ClickHouse table for
// long-horizon OLAP queries the embedded Store's single-bucket working set
// isn't shaped to hold. It is never on the critical path: Offer is
// non-blocking, and a ClickHouse outage only stalls this mirror.
//
// Grounded on the teacher's clickhouse.PriceTimeseriesStore.InsertBulk for
// the batch-insert shape.
type CandleSink struct {
	conn      *ClickHouseConn
	batchSize int

	queue chan domain.Candle
	done  chan struct{}
}

// NewCandleSink builds a sink that flushes to ClickHouse every flushEvery
// or once batchSize candles have queued, whichever comes first.
func NewCandleSink(conn *ClickHouseConn, batchSize int, flushEvery time.Duration) *CandleSink {
	s := &CandleSink{
		conn:      conn,
		batchSize: batchSize,
		queue:     make(chan domain.Candle, candleQueueCapacity),
		done:      make(chan struct{}),
	}
	go s.run(flushEvery)
	return s
}

// Offer implements listener.DeltaSink. Only DeltaCandleFinal deltas are
// queued; intermediate updates aren't durable enough to be worth mirroring.
func (s *CandleSink) Offer(d domain.Delta) {
	if d.Kind != domain.DeltaCandleFinal || d.Candle == nil {
		return
	}
	if enqueueDroppingOldest(s.queue, *d.Candle) {
		observability.RecordMaterializeQueueDrop()
	}
}

// enqueueDroppingOldest sends c on queue, dropping the oldest queued value
// first if queue is full. Reports whether a drop occurred.
func enqueueDroppingOldest(queue chan domain.Candle, c domain.Candle) (dropped bool) {
	select {
	case queue <- c:
		return false
	default:
	}
	select {
	case <-queue:
		dropped = true
	default:
	}
	select {
	case queue <- c:
	default:
	}
	return dropped
}

// Close stops the flush loop after draining any queued candles.
func (s *CandleSink) Close() {
	close(s.done)
}

func (s *CandleSink) run(flushEvery time.Duration) {
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]domain.Candle, 0, s.batchSize)
	for {
		select {
		case c := <-s.queue:
			batch = append(batch, c)
			if len(batch) >= s.batchSize {
				batch = s.flush(batch)
			}
		case <-ticker.C:
			batch = s.flush(batch)
		case <-s.done:
		drain:
			for {
				select {
				case c := <-s.queue:
					batch = append(batch, c)
				default:
					break drain
				}
			}
			s.flush(batch)
			return
		}
	}
}

func (s *CandleSink) flush(batch []domain.Candle) []domain.Candle {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.insertBatch(ctx, batch)
	observability.RecordMaterializeFlush(len(batch), err)
	if err != nil {
		log.Printf("materialize: flush %d candles: %v", len(batch), err)
	}
	return batch[:0]
}

func (s *CandleSink) insertBatch(ctx context.Context, candles []domain.Candle) error {
	chBatch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (mint, interval, bucket_ts, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, c := range candles {
		if err := chBatch.Append(c.Mint, string(c.Interval), uint64(c.BucketStartTs), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := chBatch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

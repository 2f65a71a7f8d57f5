package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// Popper is the part of the Redis client a worker reads from.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Sink persists decoded queue items. WriteBatch is the fast path; WriteOne
// is used row by row when the batch fails.
type Sink[T any] interface {
	WriteBatch(ctx context.Context, batch []*T) error
	WriteOne(ctx context.Context, item *T) error
}

// BatchWorker drains a Redis list into a Sink, flushing every BatchSize
// items or BatchTimeout, whichever comes first. Items that fail even the
// row-by-row path are logged and dropped.
type BatchWorker[T any] struct {
	rdb   Popper
	queue string
	sink  Sink[T]
	log   zerolog.Logger

	// coalesce, when set, reduces a batch before it is written.
	coalesce func([]*T) []*T

	flushed int
	dropped int
}

func newBatchWorker[T any](rdb Popper, queue string, sink Sink[T], log zerolog.Logger) *BatchWorker[T] {
	return &BatchWorker[T]{rdb: rdb, queue: queue, sink: sink, log: log}
}

// Start runs until ctx is cancelled, then flushes what it holds. Call in a goroutine.
func (w *BatchWorker[T]) Start(ctx context.Context) {
	w.log.Info().Str("queue", w.queue).Msg("Worker started")

	buffer := make([]*T, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check Flush Conditions (Time or Size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check Context (Graceful Shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis
		result, err := w.rdb.BLPop(ctx, PollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				continue // Shutdown is handled at the top of the loop
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
			continue
		}

		// 4. Process Data
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			// Malformed JSON can never succeed. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, &item)
	}
}

// flushSafe attempts the batch write, then falls back to row-by-row writes.
func (w *BatchWorker[T]) flushSafe(ctx context.Context, batch []*T) {
	if w.coalesce != nil {
		batch = w.coalesce(batch)
	}

	if err := w.sink.WriteBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch write failed, attempting row-by-row recovery")
		w.fallbackWrite(ctx, batch)
		return
	}
	w.flushed += len(batch)
}

func (w *BatchWorker[T]) fallbackWrite(ctx context.Context, batch []*T) {
	for _, item := range batch {
		if err := w.sink.WriteOne(ctx, item); err != nil {
			w.log.Warn().Err(err).Msg("Row write failed, dropping item")
			w.dropped++
			continue
		}
		w.flushed++
	}
}

func (w *BatchWorker[T]) shutdown(buffer []*T) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	// Give it 5 seconds to flush to DB
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
	w.log.Info().Int("flushed", w.flushed).Int("dropped", w.dropped).Msg("Worker stopped")
}

package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jangteo-auction-engine/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const publishAttempts = 3

// RedisEmitter publishes engine events over Redis pub/sub. Dispatch runs on
// a worker pool so a slow Redis never sits on the bid-placement path, and
// each publish is retried a few times. Delivery is at-least-once and
// best-effort; the committed transaction never depends on it.
type RedisEmitter struct {
	client *redis.Client
	pool   *pond.WorkerPool
	logger zerolog.Logger
}

type RedisEmitterParams struct {
	RedisClient *redis.Client
	Workers     int
	Capacity    int
	Logger      zerolog.Logger
}

// NewRedisEmitter creates a new Redis event emitter
func NewRedisEmitter(params RedisEmitterParams) *RedisEmitter {
	workers := params.Workers
	if workers <= 0 {
		workers = 4
	}
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = 256
	}
	return &RedisEmitter{
		client: params.RedisClient,
		pool:   pond.New(workers, capacity, pond.Strategy(pond.Balanced())),
		logger: params.Logger.With().Str("component", "redis_emitter").Logger(),
	}
}

// Emit queues the event for asynchronous publication. It only fails when
// the event cannot be serialized; publish failures are logged and dropped
// after retries.
func (e *RedisEmitter) Emit(ctx context.Context, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	e.pool.Submit(func() {
		e.publish(event, payload)
	})
	return nil
}

func (e *RedisEmitter) publish(event outbound.Event, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	auctionChannel := fmt.Sprintf("auction:%d", event.AuctionID)

	var lastErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		if lastErr = e.client.Publish(ctx, outbound.EventsChannel, payload).Err(); lastErr != nil {
			continue
		}
		if lastErr = e.client.Publish(ctx, auctionChannel, payload).Err(); lastErr == nil {
			e.logger.Debug().
				Str("event_type", string(event.Type)).
				Int64("auction_id", event.AuctionID).
				Msg("Published event")
			return
		}
	}

	e.logger.Error().Err(lastErr).
		Str("event_type", string(event.Type)).
		Int64("auction_id", event.AuctionID).
		Msg("Dropping event after failed publish attempts")
}

// Close drains queued events and releases the pool
func (e *RedisEmitter) Close() error {
	e.pool.StopAndWait()
	return nil
}

package sweeper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"jangteo-auction-engine/internal/domain/shared"
	"jangteo-auction-engine/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const deadlineIndex = "auction:deadlines"

const sweepBatchSize = 10

// ExpiryService applies the deadline transition to one auction
type ExpiryService interface {
	CloseExpired(ctx context.Context, auctionID int64) error
}

// Sweeper drives time-based auction closing. A Redis sorted set keyed by
// deadline gives cheap "what is due" lookups; a slower full scan of the
// database catches auctions whose index entry was lost. Closing itself
// always goes through the lifecycle service's locked transaction, so a
// sweep racing a live bid resolves to whichever commits first.
type Sweeper struct {
	redis           *redis.Client
	store           outbound.AuctionStore
	expiry          ExpiryService
	clock           shared.Clock
	sweepInterval   time.Duration
	catchupInterval time.Duration
	logger          zerolog.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

type SweeperParams struct {
	RedisClient     *redis.Client
	Store           outbound.AuctionStore
	Expiry          ExpiryService
	Clock           shared.Clock
	SweepInterval   time.Duration
	CatchupInterval time.Duration
	Logger          zerolog.Logger
}

// NewSweeper creates a new deadline sweeper
func NewSweeper(params SweeperParams) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	sweepInterval := params.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Second
	}
	catchupInterval := params.CatchupInterval
	if catchupInterval <= 0 {
		catchupInterval = 30 * time.Second
	}

	return &Sweeper{
		redis:           params.RedisClient,
		store:           params.Store,
		expiry:          params.Expiry,
		clock:           clock,
		sweepInterval:   sweepInterval,
		catchupInterval: catchupInterval,
		logger:          params.Logger.With().Str("component", "deadline_sweeper").Logger(),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Schedule records an auction deadline in the due-index. Re-scheduling the
// same auction overwrites the previous deadline, which is exactly what a
// deadline extension needs.
func (s *Sweeper) Schedule(ctx context.Context, auctionID int64, endAt time.Time) error {
	err := s.redis.ZAdd(ctx, deadlineIndex, redis.Z{
		Score:  float64(endAt.Unix()),
		Member: strconv.FormatInt(auctionID, 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule auction deadline: %w", err)
	}

	s.logger.Debug().
		Int64("auction_id", auctionID).
		Time("end_at", endAt).
		Msg("Auction deadline scheduled")
	return nil
}

// Start begins the sweep loops
func (s *Sweeper) Start() {
	s.logger.Info().Msg("Starting deadline sweeper")

	s.wg.Add(2)
	go s.sweepLoop()
	go s.catchupLoop()
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop() {
	s.logger.Info().Msg("Stopping deadline sweeper")
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepDue()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweep loop stopped")
			return
		}
	}
}

// catchupLoop periodically scans the database for expired active auctions
// whose index entry went missing
func (s *Sweeper) catchupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.catchupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.catchup()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Catch-up loop stopped")
			return
		}
	}
}

// sweepDue closes every auction whose indexed deadline has passed
func (s *Sweeper) sweepDue() {
	now := s.clock.Now().Unix()

	due, err := s.redis.ZRangeByScore(s.ctx, deadlineIndex, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: sweepBatchSize,
	}).Result()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read deadline index")
		return
	}

	if len(due) > 0 {
		s.logger.Debug().Int("count", len(due)).Msg("Found due auctions")
	}

	for _, member := range due {
		auctionID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			s.logger.Error().Err(err).Str("member", member).Msg("Invalid deadline index entry")
			s.redis.ZRem(s.ctx, deadlineIndex, member)
			continue
		}
		s.close(auctionID, member)
	}
}

func (s *Sweeper) catchup() {
	ids, err := s.store.ListExpired(s.ctx, s.clock.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to scan for expired auctions")
		return
	}

	for _, auctionID := range ids {
		s.close(auctionID, strconv.FormatInt(auctionID, 10))
	}
}

// close applies the deadline transition for one auction. Transient
// conflicts (a bid holding the row lock, an extension committing first)
// leave the index entry in place so the next tick retries.
func (s *Sweeper) close(auctionID int64, member string) {
	err := s.expiry.CloseExpired(s.ctx, auctionID)
	if err != nil {
		if errors.Is(err, shared.ErrTransient) {
			s.logger.Warn().Int64("auction_id", auctionID).Msg("Deadline sweep lost the row lock, will retry")
			return
		}
		s.logger.Error().Err(err).Int64("auction_id", auctionID).Msg("Failed to close expired auction")
	}

	// Closed, already terminal, or unrecoverable: drop the index entry.
	// An extension that won the race re-schedules its own entry.
	if err := s.redis.ZRem(s.ctx, deadlineIndex, member).Err(); err != nil {
		s.logger.Error().Err(err).Int64("auction_id", auctionID).Msg("Failed to remove deadline index entry")
	}
}

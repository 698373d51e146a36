package app

import (
	"context"
	"errors"

	"jangteo-auction-engine/internal/config"
	"jangteo-auction-engine/internal/domain/bid"
	"jangteo-auction-engine/internal/domain/eligibility"
	"jangteo-auction-engine/internal/domain/pricing"
	"jangteo-auction-engine/internal/domain/shared"
	"jangteo-auction-engine/internal/ports/inbound"
	"jangteo-auction-engine/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// Ledger implements the bid use cases. All price, deadline and ordering
// decisions happen against the locked auction row inside AuctionStore.Mutate;
// anything read before that is a fast pre-check only.
type Ledger struct {
	store     outbound.AuctionStore
	bids      outbound.BidStore
	accounts  outbound.AccountDirectory
	emitter   outbound.Emitter
	scheduler outbound.DeadlineScheduler
	checker   eligibility.Checker
	tiers     pricing.Table
	rules     config.Rules
	clock     shared.Clock
	logger    zerolog.Logger
}

type LedgerParams struct {
	Store     outbound.AuctionStore
	Bids      outbound.BidStore
	Accounts  outbound.AccountDirectory
	Emitter   outbound.Emitter
	Scheduler outbound.DeadlineScheduler
	Tiers     pricing.Table
	Rules     config.Rules
	Clock     shared.Clock
	Logger    zerolog.Logger
}

// NewLedger creates a new bid ledger service
func NewLedger(params LedgerParams) *Ledger {
	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	tiers := params.Tiers
	if tiers == nil {
		tiers = pricing.DefaultTable()
	}
	return &Ledger{
		store:     params.Store,
		bids:      params.Bids,
		accounts:  params.Accounts,
		emitter:   params.Emitter,
		scheduler: params.Scheduler,
		checker:   eligibility.NewChecker(params.Rules.MinAccountAge, params.Rules.HighPriceContactBar),
		tiers:     tiers,
		rules:     params.Rules,
		clock:     clock,
		logger:    params.Logger.With().Str("component", "bid_ledger").Logger(),
	}
}

// PlaceBid places a new bid on an auction
func (ledger *Ledger) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.PlaceBidResult, error) {
	ledger.logger.Info().
		Int64("auction_id", req.AuctionID).
		Int64("bidder_id", req.BidderID).
		Int64("amount", req.Amount).
		Msg("Attempting to place bid")

	if req.Amount <= 0 {
		ledger.logger.Warn().Int64("amount", req.Amount).Msg("Bid amount not positive")
		return nil, shared.ErrBidTooLow
	}

	account, err := ledger.accounts.GetAccount(ctx, req.BidderID)
	if err != nil {
		ledger.logger.Error().Err(err).Int64("bidder_id", req.BidderID).Msg("Account lookup failed")
		return nil, err
	}

	if err := ledger.precheck(ctx, req, account); err != nil {
		return nil, err
	}

	var result *inbound.PlaceBidResult
	for attempt := 0; ; attempt++ {
		result, err = ledger.placeBidLocked(ctx, req, account)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrTransient) || attempt >= ledger.rules.MaxPlaceBidRetries {
			if rej, ok := shared.AsRejection(err); ok {
				ledger.logger.Warn().
					Int64("auction_id", req.AuctionID).
					Int64("bidder_id", req.BidderID).
					Str("code", string(rej.Code)).
					Msg("Bid rejected")
			} else {
				ledger.logger.Error().Err(err).
					Int64("auction_id", req.AuctionID).
					Int64("bidder_id", req.BidderID).
					Msg("Failed to place bid")
			}
			return nil, err
		}
		ledger.logger.Warn().
			Int64("auction_id", req.AuctionID).
			Int("attempt", attempt+1).
			Msg("Transient conflict placing bid, retrying")
	}

	// The schedule and the event are both outside the transaction.
	// Scheduling is best-effort: a missed entry is picked up by the
	// sweeper's catch-up scan.
	if result.Extended && ledger.scheduler != nil {
		if err := ledger.scheduler.Schedule(ctx, req.AuctionID, result.NewEndAt); err != nil {
			ledger.logger.Warn().Err(err).Int64("auction_id", req.AuctionID).Msg("Failed to reschedule extended deadline")
		}
	}

	if ledger.emitter != nil {
		event := outbound.NewBidAccepted(req.AuctionID, req.BidderID, req.Amount, result.Extended, ledger.clock.Now())
		if err := ledger.emitter.Emit(ctx, event); err != nil {
			ledger.logger.Warn().Err(err).Int64("auction_id", req.AuctionID).Msg("Failed to emit bid accepted event")
		}
	}

	ledger.logger.Info().
		Int64("auction_id", req.AuctionID).
		Int64("bid_id", result.BidID).
		Int64("new_price", result.NewPrice).
		Bool("extended", result.Extended).
		Msg("Bid placed successfully")

	return result, nil
}

// precheck rejects obviously doomed attempts before taking the row lock.
// Everything here is re-verified against the locked state.
func (ledger *Ledger) precheck(ctx context.Context, req inbound.PlaceBidRequest, account *eligibility.Account) error {
	a, err := ledger.store.GetAuction(ctx, req.AuctionID)
	if err != nil {
		ledger.logger.Warn().Err(err).Int64("auction_id", req.AuctionID).Msg("Auction not found")
		return err
	}

	leading, err := ledger.bids.LeadingBid(ctx, req.AuctionID)
	if err != nil && !errors.Is(err, shared.ErrNoBids) {
		return err
	}
	var leadingBidderID *int64
	if leading != nil {
		leadingBidderID = &leading.BidderID
	}

	if err := ledger.checker.CanBid(ledger.clock.Now(), account, a, leadingBidderID); err != nil {
		return err
	}
	return ledger.tiers.Validate(req.Amount, a.CurrentPrice)
}

// placeBidLocked runs one attempt of the atomic validate-then-write unit
func (ledger *Ledger) placeBidLocked(ctx context.Context, req inbound.PlaceBidRequest, account *eligibility.Account) (*inbound.PlaceBidResult, error) {
	var result *inbound.PlaceBidResult

	err := ledger.store.Mutate(ctx, req.AuctionID, func(ctx context.Context, m outbound.AuctionMutation) error {
		a := m.Auction()
		if err := a.CheckInvariants(); err != nil {
			return err
		}

		now := ledger.clock.Now()

		leading, err := m.LeadingBid(ctx)
		if err != nil && !errors.Is(err, shared.ErrNoBids) {
			return err
		}
		var leadingBidderID *int64
		if leading != nil {
			leadingBidderID = &leading.BidderID
		}

		// Never trust the pre-transaction snapshot: a concurrent bid may
		// have moved the price or the deadline since the caller's read.
		if err := ledger.checker.CanBid(now, account, a, leadingBidderID); err != nil {
			return err
		}
		if err := ledger.tiers.Validate(req.Amount, a.CurrentPrice); err != nil {
			return err
		}

		newBid := &bid.Bid{
			AuctionID: req.AuctionID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			CreatedAt: now,
		}
		if err := m.InsertBid(ctx, newBid); err != nil {
			return err
		}

		extended := a.AcceptBid(req.Amount, now, ledger.rules.ExtensionWindow, ledger.rules.ExtensionDuration)
		if err := m.Save(ctx, a); err != nil {
			return err
		}

		result = &inbound.PlaceBidResult{
			BidID:    newBid.ID,
			NewPrice: a.CurrentPrice,
			NewEndAt: a.EndAt,
			Extended: extended,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListBids retrieves bids for an auction
func (ledger *Ledger) ListBids(ctx context.Context, auctionID int64) ([]*bid.Bid, error) {
	return ledger.bids.ListByAuction(ctx, auctionID)
}

// LeadingBid retrieves the current leading bid for an auction
func (ledger *Ledger) LeadingBid(ctx context.Context, auctionID int64) (*bid.Bid, error) {
	return ledger.bids.LeadingBid(ctx, auctionID)
}

package app

import (
	"context"
	"errors"
	"time"

	"jangteo-auction-engine/internal/config"
	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/eligibility"
	"jangteo-auction-engine/internal/domain/shared"
	"jangteo-auction-engine/internal/ports/inbound"
	"jangteo-auction-engine/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// Lifecycle implements auction lifecycle use cases: listing creation, the
// administrative status surface and the deadline transition applied by the
// sweeper. Every status mutation takes the same row lock as PlaceBid, so
// an admin command and a live bid on the same auction cannot interleave.
type Lifecycle struct {
	store     outbound.AuctionStore
	accounts  outbound.AccountDirectory
	emitter   outbound.Emitter
	scheduler outbound.DeadlineScheduler
	rules     config.Rules
	clock     shared.Clock
	logger    zerolog.Logger
}

type LifecycleParams struct {
	Store     outbound.AuctionStore
	Accounts  outbound.AccountDirectory
	Emitter   outbound.Emitter
	Scheduler outbound.DeadlineScheduler
	Rules     config.Rules
	Clock     shared.Clock
	Logger    zerolog.Logger
}

// NewLifecycle creates a new lifecycle service
func NewLifecycle(params LifecycleParams) *Lifecycle {
	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Lifecycle{
		store:     params.Store,
		accounts:  params.Accounts,
		emitter:   params.Emitter,
		scheduler: params.Scheduler,
		rules:     params.Rules,
		clock:     clock,
		logger:    params.Logger.With().Str("component", "lifecycle").Logger(),
	}
}

// SetScheduler sets the deadline scheduler. The sweeper needs the
// lifecycle service to close auctions, so the scheduler is wired in after
// construction.
func (service *Lifecycle) SetScheduler(scheduler outbound.DeadlineScheduler) {
	service.scheduler = scheduler
}

// CreateAuction creates a new listing in active status. The per-seller
// active auction cap is enforced by the store inside the insert
// transaction.
func (service *Lifecycle) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	service.logger.Info().
		Int64("seller_id", req.SellerID).
		Int64("start_price", req.StartPrice).
		Str("end_at", req.EndAt).
		Msg("Attempting to create auction")

	seller, err := service.accounts.GetAccount(ctx, req.SellerID)
	if err != nil {
		service.logger.Error().Err(err).Int64("seller_id", req.SellerID).Msg("Seller lookup failed")
		return nil, err
	}
	if seller.Status != eligibility.AccountActive {
		service.logger.Warn().Int64("seller_id", req.SellerID).Msg("Seller account not active")
		return nil, shared.ErrAccountIneligible
	}

	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		service.logger.Warn().Err(err).Str("end_at", req.EndAt).Msg("Invalid end time format")
		return nil, shared.ErrInvalidEndAt
	}

	now := service.clock.Now()
	if !endAt.After(now) {
		service.logger.Warn().Time("end_at", endAt).Msg("End time not in the future")
		return nil, shared.ErrInvalidTransition
	}
	if req.StartPrice <= 0 {
		service.logger.Warn().Int64("start_price", req.StartPrice).Msg("Start price not positive")
		return nil, shared.ErrBidTooLow
	}

	incrementBase := req.MinIncrementBase
	if incrementBase == 0 {
		incrementBase = req.StartPrice
	}

	a := &auction.Auction{
		SellerID:         req.SellerID,
		StartPrice:       req.StartPrice,
		CurrentPrice:     req.StartPrice,
		MinIncrementBase: incrementBase,
		Status:           auction.StatusActive,
		EndAt:            endAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := service.store.CreateAuction(ctx, a, service.rules.MaxActivePerSeller); err != nil {
		if rej, ok := shared.AsRejection(err); ok {
			service.logger.Warn().
				Int64("seller_id", req.SellerID).
				Str("code", string(rej.Code)).
				Msg("Auction creation rejected")
			return nil, err
		}
		service.logger.Error().Err(err).Int64("seller_id", req.SellerID).Msg("Failed to save auction")
		return nil, err
	}

	if service.scheduler != nil {
		if err := service.scheduler.Schedule(ctx, a.ID, a.EndAt); err != nil {
			service.logger.Warn().Err(err).Int64("auction_id", a.ID).Msg("Failed to schedule auction deadline")
		}
	}
	service.emit(ctx, outbound.NewAuctionCreated(a.ID, a.SellerID, a.StartPrice, a.EndAt, now))

	service.logger.Info().Int64("auction_id", a.ID).Msg("Auction created successfully")
	return a, nil
}

// GetAuction retrieves an auction by ID
func (service *Lifecycle) GetAuction(ctx context.Context, auctionID int64) (*auction.Auction, error) {
	return service.store.GetAuction(ctx, auctionID)
}

// ListAuctions retrieves a list of auctions
func (service *Lifecycle) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	return service.store.ListAuctions(ctx, req.Status, req.Page, req.PageSize)
}

// CloseExpired applies the deadline transition to one auction. Safe to call
// on any auction at any time: already-terminal auctions and auctions whose
// deadline moved forward since scheduling are a no-op with no event.
func (service *Lifecycle) CloseExpired(ctx context.Context, auctionID int64) error {
	var event *outbound.Event

	err := service.store.Mutate(ctx, auctionID, func(ctx context.Context, m outbound.AuctionMutation) error {
		a := m.Auction()
		if err := a.CheckInvariants(); err != nil {
			return err
		}
		if a.IsTerminal() {
			return nil
		}

		now := service.clock.Now()
		if !a.Expired(now) {
			// A late bid extended the deadline after this auction was
			// picked up; the sweeper will come back for it.
			return nil
		}

		leading, err := m.LeadingBid(ctx)
		if err != nil && !errors.Is(err, shared.ErrNoBids) {
			return err
		}
		var leadingBidderID *int64
		if leading != nil {
			leadingBidderID = &leading.BidderID
		}

		a.Close(leadingBidderID, now)
		if err := m.Save(ctx, a); err != nil {
			return err
		}

		if a.Status == auction.StatusEnded {
			e := outbound.NewAuctionEnded(a.ID, a.WinnerID, a.CurrentPrice, now)
			event = &e
		} else {
			e := outbound.NewAuctionClosedNoBid(a.ID, now)
			event = &e
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInvariantViolation) {
			service.logger.Error().Err(err).Int64("auction_id", auctionID).Msg("Invariant violation, halting auction processing")
		}
		return err
	}

	if event != nil {
		service.emit(ctx, *event)
		service.logger.Info().
			Int64("auction_id", auctionID).
			Str("event_type", string(event.Type)).
			Msg("Auction closed")
	}
	return nil
}

// SetStatus applies an administrative status transition. Transitions absent
// from the table are rejected; the mutation holds the same lock as a live
// bid, so whichever commits first wins.
func (service *Lifecycle) SetStatus(ctx context.Context, req inbound.SetStatusRequest) error {
	service.logger.Info().
		Int64("auction_id", req.AuctionID).
		Str("target", string(req.Target)).
		Int64("actor_id", req.ActorID).
		Msg("Admin status change requested")

	var newEndAt time.Time
	if req.NewEndAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.NewEndAt)
		if err != nil {
			service.logger.Warn().Err(err).Str("new_end_at", req.NewEndAt).Msg("Invalid end time format")
			return shared.ErrInvalidEndAt
		}
		newEndAt = parsed
	}

	var event *outbound.Event
	var reopenedEndAt time.Time

	err := service.store.Mutate(ctx, req.AuctionID, func(ctx context.Context, m outbound.AuctionMutation) error {
		a := m.Auction()
		if err := a.CheckInvariants(); err != nil {
			return err
		}
		if !a.CanTransition(req.Target) {
			return shared.ErrInvalidTransition
		}

		now := service.clock.Now()

		switch req.Target {
		case auction.StatusCancelled:
			a.Cancel(now)
			e := outbound.NewAuctionCancelled(a.ID, req.ActorID, now)
			event = &e

		case auction.StatusEnded:
			// Force-end: uses the leading bid if any, otherwise behaves
			// as a no-bid close.
			leading, err := m.LeadingBid(ctx)
			if err != nil && !errors.Is(err, shared.ErrNoBids) {
				return err
			}
			var leadingBidderID *int64
			if leading != nil {
				leadingBidderID = &leading.BidderID
			}
			a.Close(leadingBidderID, now)
			if a.Status == auction.StatusEnded {
				e := outbound.NewAuctionEnded(a.ID, a.WinnerID, a.CurrentPrice, now)
				event = &e
			} else {
				e := outbound.NewAuctionClosedNoBid(a.ID, now)
				event = &e
			}

		case auction.StatusNoBidClosed:
			leading, err := m.LeadingBid(ctx)
			if err != nil && !errors.Is(err, shared.ErrNoBids) {
				return err
			}
			if leading != nil {
				return shared.ErrInvalidTransition
			}
			a.Close(nil, now)
			e := outbound.NewAuctionClosedNoBid(a.ID, now)
			event = &e

		case auction.StatusActive:
			// Reopen: never silently reactivate with a stale deadline.
			endAt := a.EndAt
			if !newEndAt.IsZero() {
				endAt = newEndAt
			}
			if !endAt.After(now) {
				return shared.ErrInvalidTransition
			}
			a.Reopen(endAt, now)
			reopenedEndAt = endAt
			e := outbound.NewAuctionReopened(a.ID, req.ActorID, endAt, now)
			event = &e

		default:
			return shared.ErrInvalidTransition
		}

		return m.Save(ctx, a)
	})
	if err != nil {
		if rej, ok := shared.AsRejection(err); ok {
			service.logger.Warn().
				Int64("auction_id", req.AuctionID).
				Str("target", string(req.Target)).
				Str("code", string(rej.Code)).
				Msg("Admin status change rejected")
			return err
		}
		service.logger.Error().Err(err).Int64("auction_id", req.AuctionID).Msg("Admin status change failed")
		return err
	}

	if event != nil {
		service.emit(ctx, *event)
		if event.Type == outbound.EventTypeAuctionReopened && service.scheduler != nil {
			if err := service.scheduler.Schedule(ctx, req.AuctionID, reopenedEndAt); err != nil {
				service.logger.Warn().Err(err).Int64("auction_id", req.AuctionID).Msg("Failed to schedule reopened deadline")
			}
		}
	}

	service.logger.Info().
		Int64("auction_id", req.AuctionID).
		Str("target", string(req.Target)).
		Msg("Admin status change applied")
	return nil
}

// emit publishes an event best-effort, never failing the caller
func (service *Lifecycle) emit(ctx context.Context, event outbound.Event) {
	if service.emitter == nil {
		return
	}
	if err := service.emitter.Emit(ctx, event); err != nil {
		service.logger.Warn().Err(err).
			Str("event_type", string(event.Type)).
			Int64("auction_id", event.AuctionID).
			Msg("Failed to emit event")
	}
}

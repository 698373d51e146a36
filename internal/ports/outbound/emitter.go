package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventsChannel is the firehose channel every engine event is published to.
// The emitter publishes here and the feed subscribes here; both sides share
// this constant so they cannot drift.
const EventsChannel = "auction.events"

// EventType represents the type of event emitted by the engine
type EventType string

const (
	EventTypeAuctionCreated     EventType = "auction.created"
	EventTypeBidAccepted        EventType = "bid.accepted"
	EventTypeAuctionEnded       EventType = "auction.ended"
	EventTypeAuctionClosedNoBid EventType = "auction.closed_no_bid"
	EventTypeAuctionCancelled   EventType = "auction.cancelled"
	EventTypeAuctionReopened    EventType = "auction.reopened"
)

// Event is the envelope handed to the notification collaborator. Delivery
// is at-least-once; the ID lets consumers deduplicate.
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      EventType              `json:"type"`
	AuctionID int64                  `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Emitter publishes committed engine transitions to the outside world.
// Emitting must never fail the transaction that produced the event.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

func newEvent(t EventType, auctionID int64, at time.Time, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		AuctionID: auctionID,
		Data:      data,
		Timestamp: at.Unix(),
	}
}

// NewAuctionCreated builds the listing-created event
func NewAuctionCreated(auctionID, sellerID, startPrice int64, endAt, at time.Time) Event {
	return newEvent(EventTypeAuctionCreated, auctionID, at, map[string]interface{}{
		"seller_id":   sellerID,
		"start_price": startPrice,
		"end_at":      endAt.Unix(),
	})
}

// NewBidAccepted builds the bid-accepted event. Extended tells the
// notification collaborator to also message the bidder about the new
// deadline.
func NewBidAccepted(auctionID, bidderID, amount int64, extended bool, at time.Time) Event {
	return newEvent(EventTypeBidAccepted, auctionID, at, map[string]interface{}{
		"bidder_id": bidderID,
		"amount":    amount,
		"extended":  extended,
	})
}

// NewAuctionEnded builds the deadline-reached-with-winner event
func NewAuctionEnded(auctionID int64, winnerID *int64, finalPrice int64, at time.Time) Event {
	data := map[string]interface{}{
		"final_price": finalPrice,
	}
	if winnerID != nil {
		data["winner_id"] = *winnerID
	}
	return newEvent(EventTypeAuctionEnded, auctionID, at, data)
}

// NewAuctionClosedNoBid builds the deadline-reached-without-bids event
func NewAuctionClosedNoBid(auctionID int64, at time.Time) Event {
	return newEvent(EventTypeAuctionClosedNoBid, auctionID, at, map[string]interface{}{})
}

// NewAuctionCancelled builds the admin-cancel event
func NewAuctionCancelled(auctionID, actorID int64, at time.Time) Event {
	return newEvent(EventTypeAuctionCancelled, auctionID, at, map[string]interface{}{
		"actor_id": actorID,
	})
}

// NewAuctionReopened builds the admin-reopen event
func NewAuctionReopened(auctionID, actorID int64, endAt, at time.Time) Event {
	return newEvent(EventTypeAuctionReopened, auctionID, at, map[string]interface{}{
		"actor_id": actorID,
		"end_at":   endAt.Unix(),
	})
}

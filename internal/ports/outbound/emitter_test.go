package outbound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The channel name is part of the wire contract with event consumers;
// changing it silently strands every subscriber.
func TestEventsChannelValue(t *testing.T) {
	assert.Equal(t, "auction.events", EventsChannel)
}

func TestEventConstructors(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	accepted := NewBidAccepted(10, 1, 11_000, true, at)
	assert.Equal(t, EventTypeBidAccepted, accepted.Type)
	assert.Equal(t, int64(10), accepted.AuctionID)
	assert.Equal(t, at.Unix(), accepted.Timestamp)
	assert.Equal(t, true, accepted.Data["extended"])
	assert.NotEqual(t, accepted.ID, NewBidAccepted(10, 1, 11_000, true, at).ID,
		"each event carries a fresh dedup id")

	winner := int64(7)
	ended := NewAuctionEnded(10, &winner, 12_000, at)
	require.Contains(t, ended.Data, "winner_id")
	assert.Equal(t, winner, ended.Data["winner_id"])

	noWinner := NewAuctionEnded(10, nil, 12_000, at)
	assert.NotContains(t, noWinner.Data, "winner_id")
}

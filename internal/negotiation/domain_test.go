// internal/negotiation/domain_test.go
package negotiation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusCounterOffered.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusExpired.Terminal())
}

func TestLatestOffer(t *testing.T) {
	buyerID := uuid.New()
	sellerID := uuid.New()
	opened := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	n := &Negotiation{
		BuyerID:       buyerID,
		SellerID:      sellerID,
		OriginalPrice: 100,
		ProposedPrice: 80,
		CreatedAt:     opened,
	}

	t.Run("falls back to the opening proposal", func(t *testing.T) {
		offer := n.LatestOffer()
		assert.Equal(t, buyerID, offer.OfferedBy)
		assert.Equal(t, 80.0, offer.Amount)
		assert.Equal(t, opened, offer.At)
	})

	t.Run("returns the last counter", func(t *testing.T) {
		n.CounterOffers = []Offer{
			{OfferedBy: sellerID, Amount: 90},
			{OfferedBy: buyerID, Amount: 85},
		}
		offer := n.LatestOffer()
		assert.Equal(t, buyerID, offer.OfferedBy)
		assert.Equal(t, 85.0, offer.Amount)
	})
}

func TestProgressPercentage(t *testing.T) {
	cases := []struct {
		name     string
		original float64
		latest   float64
		want     int
	}{
		{"fifth off", 100, 80, 20},
		{"rounded up", 100, 66.6, 33},
		{"rounded down", 100, 66.7, 33},
		{"no movement", 100, 100, 0},
		{"zero original price", 0, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &Negotiation{
				OriginalPrice: tc.original,
				ProposedPrice: tc.latest,
			}
			assert.Equal(t, tc.want, n.ProgressPercentage())
		})
	}
}

// TestNegotiationProperties drives the state machine with random action
// sequences and checks the invariants that must hold regardless of order:
// the round never passes the cap, terminal states never move, and every
// follow-up offer alternates between the two parties.
func TestNegotiationProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(nil, Options{MaxRounds: rapid.IntRange(1, 6).Draw(t, "maxRounds")})

		opening := rapid.Float64Range(1, 99).Draw(t, "opening")
		n, err := f.service.Open(context.Background(), OpenParams{
			ItemID:        f.item.ID,
			BuyerID:       f.buyerID,
			ProposedPrice: opening,
		})
		if err != nil {
			t.Fatalf("open: %v", err)
		}

		actors := []uuid.UUID{f.buyerID, f.sellerID, uuid.New()}
		actions := []Action{ActionAccept, ActionReject, ActionCounter}

		steps := rapid.IntRange(1, 12).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			actor := actors[rapid.IntRange(0, len(actors)-1).Draw(t, "actor")]
			action := actions[rapid.IntRange(0, len(actions)-1).Draw(t, "action")]
			amount := rapid.Float64Range(0, 120).Draw(t, "amount")

			before, err := f.store.Get(context.Background(), n.ID)
			if err != nil {
				t.Fatalf("get before: %v", err)
			}

			_, err = f.service.Respond(context.Background(), n.ID, actor, RespondParams{Action: action, Amount: amount})

			after, getErr := f.store.Get(context.Background(), n.ID)
			if getErr != nil {
				t.Fatalf("get after: %v", getErr)
			}

			if after.Round > after.MaxRounds {
				t.Fatalf("round %d exceeds cap %d", after.Round, after.MaxRounds)
			}
			if before.Status.Terminal() && after.Status != before.Status {
				t.Fatalf("terminal status moved from %s to %s", before.Status, after.Status)
			}
			if err != nil && !before.Status.Terminal() && after.Status == before.Status {
				// a failed response must not grow the offer thread
				if len(after.CounterOffers) != len(before.CounterOffers) {
					t.Fatalf("failed respond changed offers: %d -> %d", len(before.CounterOffers), len(after.CounterOffers))
				}
			}

			for j := 1; j < len(after.CounterOffers); j++ {
				if after.CounterOffers[j].OfferedBy == after.CounterOffers[j-1].OfferedBy {
					t.Fatalf("consecutive offers by the same party at index %d", j)
				}
			}

			if after.Status == StatusAccepted && after.FinalPrice == nil {
				t.Fatalf("accepted without a final price")
			}
		}
	})
}

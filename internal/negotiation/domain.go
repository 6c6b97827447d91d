// internal/negotiation/domain.go
package negotiation

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Status is the negotiation lifecycle state.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusCounterOffered Status = "COUNTER_OFFERED"
	StatusAccepted       Status = "ACCEPTED"
	StatusRejected       Status = "REJECTED"
	StatusExpired        Status = "EXPIRED"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Action is a response to an open negotiation.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionCounter Action = "counter"
)

var (
	// Open failures.
	ErrInvalidOffer    = errors.New("proposed price must be positive and below the listing price")
	ErrSelfNegotiation = errors.New("cannot negotiate on your own item")
	ErrItemUnavailable = errors.New("item is not open to offers")
	ErrDuplicateActive = errors.New("an active negotiation already exists for this item and buyer")

	// Respond/cancel failures.
	ErrNotFound       = errors.New("negotiation not found")
	ErrClosed         = errors.New("negotiation already resolved")
	ErrExpired        = errors.New("negotiation has expired")
	ErrNotParticipant = errors.New("actor is not a party to this negotiation")
	ErrOwnOffer       = errors.New("cannot respond to your own offer")
	ErrNotBuyer       = errors.New("only the buyer may cancel")
	ErrInvalidCounter = errors.New("counter amount must be positive")
	ErrRoundLimit     = errors.New("negotiation round limit reached")

	// ErrConflict marks a lost concurrent update; the caller may retry.
	ErrConflict = errors.New("negotiation was modified concurrently")
)

// Offer is one priced proposal inside a negotiation.
type Offer struct {
	OfferedBy uuid.UUID `json:"offered_by"`
	Amount    float64   `json:"amount"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Negotiation is one buyer/seller price thread over a single item.
type Negotiation struct {
	ID            uuid.UUID  `json:"id"`
	ItemID        uuid.UUID  `json:"item_id"`
	BuyerID       uuid.UUID  `json:"buyer_id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	OriginalPrice float64    `json:"original_price"`
	ProposedPrice float64    `json:"proposed_price"`
	CounterOffers []Offer    `json:"counter_offers"`
	Status        Status     `json:"status"`
	Round         int        `json:"round"`
	MaxRounds     int        `json:"max_rounds"`
	FinalPrice    *float64   `json:"final_price,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Active reports whether the negotiation still accepts responses.
func (n *Negotiation) Active() bool {
	return n.Status == StatusPending || n.Status == StatusCounterOffered
}

// ExpiredAt reports whether the negotiation is past its deadline at now.
func (n *Negotiation) ExpiredAt(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// LatestOffer returns the most recent counter-offer, or the buyer's
// opening proposal when none exist. Every turn check and the progress
// figure derive from it.
func (n *Negotiation) LatestOffer() Offer {
	if len(n.CounterOffers) > 0 {
		return n.CounterOffers[len(n.CounterOffers)-1]
	}
	return Offer{
		OfferedBy: n.BuyerID,
		Amount:    n.ProposedPrice,
		At:        n.CreatedAt,
	}
}

// Participant reports whether userID is the buyer or the seller.
func (n *Negotiation) Participant(userID uuid.UUID) bool {
	return userID == n.BuyerID || userID == n.SellerID
}

// ProgressPercentage is how far the latest offer has moved below the
// original price, as a rounded percentage. Zero when the original price
// is zero.
func (n *Negotiation) ProgressPercentage() int {
	if n.OriginalPrice == 0 {
		return 0
	}
	return int(math.Round((n.OriginalPrice - n.LatestOffer().Amount) / n.OriginalPrice * 100))
}

// NegotiationOpenedEvent is recorded when a buyer opens a thread.
type NegotiationOpenedEvent struct {
	ID            uuid.UUID `json:"id"`
	ItemID        uuid.UUID `json:"item_id"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	ProposedPrice float64   `json:"proposed_price"`
}

// NegotiationRespondedEvent is recorded on every accept/reject/counter.
type NegotiationRespondedEvent struct {
	ID      uuid.UUID `json:"id"`
	ActorID uuid.UUID `json:"actor_id"`
	Action  Action    `json:"action"`
	Amount  float64   `json:"amount,omitempty"`
	Status  Status    `json:"status"`
	Round   int       `json:"round"`
}

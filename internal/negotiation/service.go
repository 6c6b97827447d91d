// internal/negotiation/service.go
package negotiation

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the negotiation state machine.
type Service interface {
	// Open starts a negotiation with the buyer's initial offer.
	Open(ctx context.Context, p OpenParams) (*Negotiation, error)
	// Respond applies accept, reject, or counter on behalf of actorID.
	Respond(ctx context.Context, id, actorID uuid.UUID, p RespondParams) (*Negotiation, error)
	// Cancel lets the original buyer withdraw an active negotiation.
	Cancel(ctx context.Context, id, actorID uuid.UUID) (*Negotiation, error)
	// Get returns a negotiation to one of its parties, applying lazy
	// expiry first.
	Get(ctx context.Context, id, actorID uuid.UUID) (*Negotiation, error)
	// ListForUser returns negotiations where the user is buyer or seller.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Negotiation, error)
	// ExpireOverdue sweeps active negotiations past their deadline.
	// Expiry is lazy on access; this exists for an external cron.
	ExpireOverdue(ctx context.Context) (int64, error)
}

// OpenParams carries the buyer's initial offer.
type OpenParams struct {
	ItemID        uuid.UUID
	BuyerID       uuid.UUID
	ProposedPrice float64
	Message       string
}

// RespondParams carries one response. Amount is required for counter.
type RespondParams struct {
	Action  Action
	Amount  float64
	Message string
}

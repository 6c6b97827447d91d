// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddItem(ctx context.Context, p NewItemParams) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	// ListActive returns active items matching the filter, newest first
	// with view count as tiebreak, skipping ids in exclude.
	ListActive(ctx context.Context, f Filter, exclude []uuid.UUID, limit int) ([]*Item, error)
	// ItemsByID returns the active items among ids, in no particular order.
	ItemsByID(ctx context.Context, ids []uuid.UUID) ([]*Item, error)
	// SetPrice overwrites an item's price with a negotiated final price.
	SetPrice(ctx context.Context, id uuid.UUID, price float64) error
	// IncrementViewCount bumps the view counter by one.
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	RemoveItem(ctx context.Context, id uuid.UUID) error
}

// NewItemParams carries the fields needed to create a listing.
type NewItemParams struct {
	Title       string
	Description string
	Category    string
	Type        ListingType
	Price       float64
	OwnerID     uuid.UUID
}

// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ListingType classifies how an item is offered on the marketplace.
type ListingType string

const (
	ListingSell ListingType = "sell"
	ListingRent ListingType = "rent"
	ListingBuy  ListingType = "buy"
)

// Valid reports whether t is one of the known listing types.
func (t ListingType) Valid() bool {
	switch t {
	case ListingSell, ListingRent, ListingBuy:
		return true
	}
	return false
}

var ErrNotFound = errors.New("item not found")

// Item is a marketplace listing.
type Item struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Type        ListingType `json:"type"`
	Price       float64     `json:"price"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	IsActive    bool        `json:"is_active"`
	ViewCount   int64       `json:"view_count"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Filter restricts ListActive. Empty slices match everything.
type Filter struct {
	Categories []string
	Types      []ListingType
}

// ItemListedEvent is recorded when a new listing is created.
type ItemListedEvent struct {
	ID       uuid.UUID   `json:"id"`
	Category string      `json:"category"`
	Type     ListingType `json:"type"`
	Price    float64     `json:"price"`
	OwnerID  uuid.UUID   `json:"owner_id"`
}

// ItemPriceChangedEvent is recorded when a negotiation settles a new price.
type ItemPriceChangedEvent struct {
	ID       uuid.UUID `json:"id"`
	OldPrice float64   `json:"old_price"`
	NewPrice float64   `json:"new_price"`
}

// ItemRetiredEvent is recorded when a listing is withdrawn.
type ItemRetiredEvent struct {
	ID uuid.UUID `json:"id"`
}

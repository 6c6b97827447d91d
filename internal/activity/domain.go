// internal/activity/domain.go
package activity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action names a kind of user-item interaction.
type Action string

const (
	ActionViewed      Action = "viewed"
	ActionBought      Action = "bought"
	ActionRented      Action = "rented"
	ActionAddedToCart Action = "added_to_cart"
	ActionSearched    Action = "searched"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionViewed, ActionBought, ActionRented, ActionAddedToCart, ActionSearched:
		return true
	}
	return false
}

// DedupWindow suppresses repeated (user, item, action) appends.
const DedupWindow = 5 * time.Minute

var ErrRateLimited = errors.New("activity rate limit exceeded")

// Record is one user-item interaction. Records are append-only.
type Record struct {
	ID         int64          `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	ItemID     uuid.UUID      `json:"item_id"`
	Action     Action         `json:"action"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Neighbor is a user sharing interacted items with a target user.
type Neighbor struct {
	UserID uuid.UUID `json:"user_id"`
	Shared int       `json:"shared"`
}

// ItemScore pairs an item with an aggregate score. Used both for
// collaborative-filtering candidates and trending results.
type ItemScore struct {
	ItemID uuid.UUID `json:"item_id"`
	Score  int64     `json:"score"`
}

// internal/activity/service.go
package activity

import (
	"context"

	"github.com/google/uuid"
)

// Log defines the interface for the activity log.
type Log interface {
	// Append stores a record unless an identical (user, item, action)
	// record exists inside the dedup window. It reports whether the
	// record was suppressed.
	Append(ctx context.Context, rec Record) (suppressed bool, err error)
	// Recent returns the user's newest records, newest first.
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error)
	// Neighbors finds users who interacted with any of itemIDs, ranked
	// by the number of distinct shared items, excluding excludeUserID.
	Neighbors(ctx context.Context, excludeUserID uuid.UUID, itemIDs []uuid.UUID, topN int) ([]Neighbor, error)
	// NeighborItemScores scores items touched by the given users with
	// bought/rented/viewed actions, skipping excludeItems. The score is
	// the number of contributing neighbor activities.
	NeighborItemScores(ctx context.Context, userIDs []uuid.UUID, excludeItems []uuid.UUID, limit int) ([]ItemScore, error)
	// TrendingScores ranks items by windowed action-weighted popularity:
	// viewed*1 + rented*2 + bought*3.
	TrendingScores(ctx context.Context, windowDays int, excludeItems []uuid.UUID, limit int) ([]ItemScore, error)
}

// ViewCounter is the slice of the catalog the activity log needs to keep
// view counts in step with non-suppressed view records.
type ViewCounter interface {
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

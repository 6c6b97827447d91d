// internal/activity/implementation.go
package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// store implements the Log interface against postgres.
type store struct {
	db      *sql.DB
	views   ViewCounter
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLog creates a new activity log instance. views may be nil when view
// counting is handled elsewhere.
func NewLog(db *sql.DB, views ViewCounter, limiter *rate.Limiter, logger zerolog.Logger) Log {
	return &store{
		db:      db,
		views:   views,
		limiter: limiter,
		logger:  logger.With().Str("component", "activity").Logger(),
	}
}

// Append stores a record unless a duplicate exists inside the dedup
// window. A non-suppressed view bumps the item's view counter.
func (l *store) Append(ctx context.Context, rec Record) (bool, error) {
	if l.limiter != nil && !l.limiter.Allow() {
		return false, ErrRateLimited
	}
	if !rec.Action.Valid() {
		return false, fmt.Errorf("unknown action %q", rec.Action)
	}

	var metadata []byte
	if rec.Metadata != nil {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return false, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	// The WHERE NOT EXISTS guard makes the duplicate append a no-op
	// instead of a second row.
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO activities (user_id, item_id, action, metadata, occurred_at)
		SELECT $1, $2, $3, $4, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM activities
			WHERE user_id = $1 AND item_id = $2 AND action = $3
			  AND occurred_at > NOW() - ($5 * INTERVAL '1 second')
		)
		RETURNING id, occurred_at
	`, rec.UserID, rec.ItemID, rec.Action, metadata, DedupWindow.Seconds()).Scan(&rec.ID, &rec.OccurredAt)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("append activity: %w", err)
	}

	if rec.Action == ActionViewed && l.views != nil {
		if err := l.views.IncrementViewCount(ctx, rec.ItemID); err != nil {
			l.logger.Warn().Err(err).Stringer("item_id", rec.ItemID).Msg("failed to bump view count")
		}
	}

	return false, nil
}

// Recent returns the user's newest records, newest first.
func (l *store) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, item_id, action, metadata, occurred_at
		FROM activities
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent activities: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var metadata []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ItemID, &rec.Action, &metadata, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				l.logger.Warn().Err(err).Int64("activity_id", rec.ID).Msg("bad metadata payload")
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return records, nil
}

// Neighbors finds the users sharing the most interacted items with the
// target user.
func (l *store) Neighbors(ctx context.Context, excludeUserID uuid.UUID, itemIDs []uuid.UUID, topN int) ([]Neighbor, error) {
	if len(itemIDs) == 0 || topN <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT user_id, COUNT(DISTINCT item_id) AS shared
		FROM activities
		WHERE item_id = ANY($1::uuid[]) AND user_id <> $2
		GROUP BY user_id
		ORDER BY shared DESC
		LIMIT $3
	`, pq.Array(uuidStrings(itemIDs)), excludeUserID, topN)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.UserID, &n.Shared); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}

	return neighbors, nil
}

// NeighborItemScores scores candidate items by the number of neighbor
// activities touching them.
func (l *store) NeighborItemScores(ctx context.Context, userIDs []uuid.UUID, excludeItems []uuid.UUID, limit int) ([]ItemScore, error) {
	if len(userIDs) == 0 || limit <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT item_id, COUNT(*) AS score
		FROM activities
		WHERE user_id = ANY($1::uuid[])
		  AND action IN ('bought', 'rented', 'viewed')
		  AND NOT (item_id = ANY($2::uuid[]))
		GROUP BY item_id
		ORDER BY score DESC
		LIMIT $3
	`, pq.Array(uuidStrings(userIDs)), pq.Array(uuidStrings(excludeItems)), limit)
	if err != nil {
		return nil, fmt.Errorf("query neighbor item scores: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// TrendingScores ranks items by windowed action-weighted popularity.
func (l *store) TrendingScores(ctx context.Context, windowDays int, excludeItems []uuid.UUID, limit int) ([]ItemScore, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT item_id,
		       SUM(CASE action
		           WHEN 'viewed' THEN 1
		           WHEN 'rented' THEN 2
		           WHEN 'bought' THEN 3
		           ELSE 0
		       END) AS score
		FROM activities
		WHERE occurred_at >= NOW() - ($1 * INTERVAL '1 day')
		  AND NOT (item_id = ANY($2::uuid[]))
		GROUP BY item_id
		HAVING SUM(CASE action WHEN 'viewed' THEN 1 WHEN 'rented' THEN 2 WHEN 'bought' THEN 3 ELSE 0 END) > 0
		ORDER BY score DESC
		LIMIT $3
	`, windowDays, pq.Array(uuidStrings(excludeItems)), limit)
	if err != nil {
		return nil, fmt.Errorf("query trending scores: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

func scanScores(rows *sql.Rows) ([]ItemScore, error) {
	var scores []ItemScore
	for rows.Next() {
		var s ItemScore
		if err := rows.Scan(&s.ItemID, &s.Score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return scores, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

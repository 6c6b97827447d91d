// internal/recommend/engine.go
package recommend

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/activity"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/catalog"
)

// CatalogSource is the slice of the catalog the engine reads.
// catalog.Service satisfies it.
type CatalogSource interface {
	ListActive(ctx context.Context, f catalog.Filter, exclude []uuid.UUID, limit int) ([]*catalog.Item, error)
	ItemsByID(ctx context.Context, ids []uuid.UUID) ([]*catalog.Item, error)
}

// ActivitySource is the slice of the activity log the engine reads.
// activity.Log satisfies it.
type ActivitySource interface {
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Record, error)
	Neighbors(ctx context.Context, excludeUserID uuid.UUID, itemIDs []uuid.UUID, topN int) ([]activity.Neighbor, error)
	NeighborItemScores(ctx context.Context, userIDs []uuid.UUID, excludeItems []uuid.UUID, limit int) ([]activity.ItemScore, error)
	TrendingScores(ctx context.Context, windowDays int, excludeItems []uuid.UUID, limit int) ([]activity.ItemScore, error)
}

// Result is a ranked recommendation list. Personalized is false when the
// list came from the trending fallback alone.
type Result struct {
	Items        []*catalog.Item `json:"items"`
	Personalized bool            `json:"personalized"`
}

// Engine blends personalized and popularity signals into a ranked,
// duplicate-free candidate list.
type Engine struct {
	cfg        Config
	catalog    CatalogSource
	activities ActivitySource
	log        zerolog.Logger
}

// NewEngine creates a recommendation engine.
func NewEngine(cfg Config, cat CatalogSource, activities ActivitySource, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommend config: %w", err)
	}
	return &Engine{
		cfg:        cfg,
		catalog:    cat,
		activities: activities,
		log:        log.With().Str("component", "recommend").Logger(),
	}, nil
}

// Recommend returns up to limit items for the user. Items the user has
// already interacted with never appear; the four stages run in order and
// each fills only the capacity the previous ones left. Failures in the
// personalized stages degrade silently to the trending fallback.
func (e *Engine) Recommend(ctx context.Context, userID uuid.UUID, limit int) (*Result, error) {
	if limit <= 0 {
		return &Result{Items: []*catalog.Item{}}, nil
	}

	history, err := e.activities.Recent(ctx, userID, e.cfg.HistorySize)
	if err != nil {
		e.log.Warn().Err(err).Stringer("user_id", userID).Msg("history read failed, serving trending only")
		return e.trendingOnly(ctx, nil, limit)
	}
	if len(history) == 0 {
		return e.trendingOnly(ctx, nil, limit)
	}

	seen := historyItemIDs(history)
	picked := newPickList(limit)

	if err := e.fillPersonalized(ctx, userID, seen, picked, limit); err != nil {
		e.log.Warn().Err(err).Stringer("user_id", userID).Msg("personalized stages failed, serving trending only")
		return e.trendingOnly(ctx, seen, limit)
	}

	if err := e.fillTrending(ctx, seen, picked, limit); err != nil {
		if picked.len() > 0 {
			e.log.Warn().Err(err).Stringer("user_id", userID).Msg("trending fill failed, returning partial result")
			return &Result{Items: picked.items, Personalized: true}, nil
		}
		return nil, fmt.Errorf("trending fallback: %w", err)
	}

	return &Result{Items: picked.items, Personalized: true}, nil
}

// fillPersonalized runs stages 1-3: category affinity, type affinity,
// collaborative filtering.
func (e *Engine) fillPersonalized(ctx context.Context, userID uuid.UUID, seen []uuid.UUID, picked *pickList, limit int) error {
	refItems, err := e.catalog.ItemsByID(ctx, seen)
	if err != nil {
		return fmt.Errorf("resolve history items: %w", err)
	}

	categories, types := affinities(refItems)

	// Stage 1: category affinity.
	if quota := e.quota(e.cfg.CategoryShare, limit, picked); quota > 0 && len(categories) > 0 {
		items, err := e.catalog.ListActive(ctx, catalog.Filter{Categories: categories}, picked.excludeWith(seen), quota)
		if err != nil {
			return fmt.Errorf("category stage: %w", err)
		}
		picked.add(items, quota)
	}

	// Stage 2: type affinity.
	if quota := e.quota(e.cfg.TypeShare, limit, picked); quota > 0 && len(types) > 0 {
		items, err := e.catalog.ListActive(ctx, catalog.Filter{Types: types}, picked.excludeWith(seen), quota)
		if err != nil {
			return fmt.Errorf("type stage: %w", err)
		}
		picked.add(items, quota)
	}

	// Stage 3: collaborative filtering. Neighbor discovery first, then
	// candidate scoring over the neighbors' own activity.
	quota := e.quota(e.cfg.CollaborativeShare, limit, picked)
	if quota <= 0 {
		return nil
	}

	neighbors, err := e.activities.Neighbors(ctx, userID, seen, e.cfg.NeighborCap)
	if err != nil {
		return fmt.Errorf("neighbor discovery: %w", err)
	}
	if len(neighbors) == 0 {
		return nil
	}

	neighborIDs := make([]uuid.UUID, len(neighbors))
	for i, n := range neighbors {
		neighborIDs[i] = n.UserID
	}

	scores, err := e.activities.NeighborItemScores(ctx, neighborIDs, picked.excludeWith(seen), quota)
	if err != nil {
		return fmt.Errorf("candidate scoring: %w", err)
	}

	items, err := e.resolveScored(ctx, scores)
	if err != nil {
		return fmt.Errorf("resolve candidates: %w", err)
	}
	picked.add(items, quota)

	return nil
}

// fillTrending is stage 4: windowed popularity, padded with the newest
// active items when trending candidates run out.
func (e *Engine) fillTrending(ctx context.Context, seen []uuid.UUID, picked *pickList, limit int) error {
	remaining := limit - picked.len()
	if remaining <= 0 {
		return nil
	}

	scores, err := e.activities.TrendingScores(ctx, e.cfg.TrendingWindowDays, picked.excludeWith(seen), remaining)
	if err != nil {
		return fmt.Errorf("trending scores: %w", err)
	}

	items, err := e.resolveScored(ctx, scores)
	if err != nil {
		return fmt.Errorf("resolve trending: %w", err)
	}
	picked.add(items, remaining)

	if remaining = limit - picked.len(); remaining > 0 {
		pad, err := e.catalog.ListActive(ctx, catalog.Filter{}, picked.excludeWith(seen), remaining)
		if err != nil {
			return fmt.Errorf("pad with recent items: %w", err)
		}
		picked.add(pad, remaining)
	}

	return nil
}

func (e *Engine) trendingOnly(ctx context.Context, seen []uuid.UUID, limit int) (*Result, error) {
	picked := newPickList(limit)
	if err := e.fillTrending(ctx, seen, picked, limit); err != nil {
		return nil, err
	}
	return &Result{Items: picked.items, Personalized: false}, nil
}

// resolveScored maps item scores back to active catalog items,
// preserving score order.
func (e *Engine) resolveScored(ctx context.Context, scores []activity.ItemScore) ([]*catalog.Item, error) {
	if len(scores) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(scores))
	for i, s := range scores {
		ids[i] = s.ItemID
	}

	items, err := e.catalog.ItemsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*catalog.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	ordered := make([]*catalog.Item, 0, len(scores))
	for _, s := range scores {
		if item, ok := byID[s.ItemID]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered, nil
}

// quota is the stage's target share of the limit, capped at the
// remaining capacity.
func (e *Engine) quota(share float64, limit int, picked *pickList) int {
	q := int(math.Ceil(float64(limit) * share))
	if remaining := limit - picked.len(); q > remaining {
		q = remaining
	}
	return q
}

func affinities(items []*catalog.Item) ([]string, []catalog.ListingType) {
	var (
		categories []string
		types      []catalog.ListingType
		catSeen    = map[string]bool{}
		typeSeen   = map[catalog.ListingType]bool{}
	)
	for _, item := range items {
		if !catSeen[item.Category] {
			catSeen[item.Category] = true
			categories = append(categories, item.Category)
		}
		if !typeSeen[item.Type] {
			typeSeen[item.Type] = true
			types = append(types, item.Type)
		}
	}
	return categories, types
}

func historyItemIDs(history []activity.Record) []uuid.UUID {
	var (
		ids  []uuid.UUID
		seen = map[uuid.UUID]bool{}
	)
	for _, rec := range history {
		if !seen[rec.ItemID] {
			seen[rec.ItemID] = true
			ids = append(ids, rec.ItemID)
		}
	}
	return ids
}

// pickList accumulates selected items, deduplicated by id, preserving
// first-seen order.
type pickList struct {
	items []*catalog.Item
	index map[uuid.UUID]bool
	limit int
}

func newPickList(limit int) *pickList {
	return &pickList{
		items: make([]*catalog.Item, 0, limit),
		index: make(map[uuid.UUID]bool, limit),
		limit: limit,
	}
}

func (p *pickList) len() int { return len(p.items) }

// add appends up to quota new items, skipping duplicates and anything
// past the overall limit.
func (p *pickList) add(items []*catalog.Item, quota int) {
	added := 0
	for _, item := range items {
		if added >= quota || len(p.items) >= p.limit {
			return
		}
		if p.index[item.ID] {
			continue
		}
		p.index[item.ID] = true
		p.items = append(p.items, item)
		added++
	}
}

// excludeWith returns seen plus everything already picked, for use as a
// query exclusion list.
func (p *pickList) excludeWith(seen []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(seen)+len(p.items))
	out = append(out, seen...)
	for _, item := range p.items {
		out = append(out, item.ID)
	}
	return out
}

// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/eventlog"
)

// service implements the Service interface against postgres.
type service struct {
	db     *sql.DB
	events *eventlog.Store
	log    zerolog.Logger
}

// NewService creates a new catalog service instance.
func NewService(db *sql.DB, events *eventlog.Store, log zerolog.Logger) Service {
	return &service{
		db:     db,
		events: events,
		log:    log.With().Str("component", "catalog").Logger(),
	}
}

const itemColumns = `id, title, description, category, listing_type, price, owner_id, is_active, view_count, version, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	item := &Item{}
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Type,
		&item.Price,
		&item.OwnerID,
		&item.IsActive,
		&item.ViewCount,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AddItem creates a new listing.
func (s *service) AddItem(ctx context.Context, p NewItemParams) (*Item, error) {
	item := &Item{
		ID:          uuid.New(),
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Type:        p.Type,
		Price:       p.Price,
		OwnerID:     p.OwnerID,
		IsActive:    true,
		Version:     1,
	}

	query := `
		INSERT INTO items (id, title, description, category, listing_type, price, owner_id, is_active, view_count, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, 0, 1)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Description, item.Category, item.Type, item.Price, item.OwnerID,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	s.record(ctx, item.ID, "ItemListed", ItemListedEvent{
		ID:       item.ID,
		Category: item.Category,
		Type:     item.Type,
		Price:    item.Price,
		OwnerID:  item.OwnerID,
	})

	return item, nil
}

// GetItem retrieves an item by its ID.
func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListActive returns active items matching the filter, newest first with
// view count as tiebreak.
func (s *service) ListActive(ctx context.Context, f Filter, exclude []uuid.UUID, limit int) ([]*Item, error) {
	if limit <= 0 {
		return nil, nil
	}

	conditions := []string{"is_active"}
	args := []any{}

	if len(f.Categories) > 0 {
		args = append(args, pq.Array(f.Categories))
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		conditions = append(conditions, fmt.Sprintf("listing_type = ANY($%d)", len(args)))
	}
	if len(exclude) > 0 {
		args = append(args, pq.Array(uuidStrings(exclude)))
		conditions = append(conditions, fmt.Sprintf("NOT (id = ANY($%d::uuid[]))", len(args)))
	}

	args = append(args, limit)
	query := fmt.Sprintf(
		`SELECT %s FROM items WHERE %s ORDER BY created_at DESC, view_count DESC LIMIT $%d`,
		itemColumns, strings.Join(conditions, " AND "), len(args),
	)

	return s.queryItems(ctx, query, args...)
}

// ItemsByID returns the active items among ids.
func (s *service) ItemsByID(ctx context.Context, ids []uuid.UUID) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_active AND id = ANY($1::uuid[])`
	return s.queryItems(ctx, query, pq.Array(uuidStrings(ids)))
}

func (s *service) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// SetPrice overwrites the listing price with a negotiated final price.
func (s *service) SetPrice(ctx context.Context, id uuid.UUID, price float64) error {
	var oldPrice float64
	// Self-join so RETURNING can expose the pre-update price.
	err := s.db.QueryRowContext(ctx, `
		UPDATE items
		SET price = $1, version = items.version + 1, updated_at = NOW()
		FROM items old
		WHERE items.id = $2 AND old.id = items.id
		RETURNING old.price
	`, price, id).Scan(&oldPrice)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("set price: %w", err)
	}

	s.record(ctx, id, "ItemPriceChanged", ItemPriceChangedEvent{ID: id, OldPrice: oldPrice, NewPrice: price})
	return nil
}

// IncrementViewCount bumps the view counter by one.
func (s *service) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET view_count = view_count + 1, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveItem retires a listing. The row stays so past negotiations and
// activity records keep a valid reference.
func (s *service) RemoveItem(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET is_active = FALSE, version = version + 1, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("retire item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.record(ctx, id, "ItemRetired", ItemRetiredEvent{ID: id})
	return nil
}

// record appends a domain event. Failures are logged, never propagated.
func (s *service) record(ctx context.Context, id uuid.UUID, eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, id, "item", eventType, data); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Stringer("item_id", id).Msg("failed to record event")
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

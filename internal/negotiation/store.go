// internal/negotiation/store.go
package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store persists negotiations. Updates are atomic per document: the
// version check in the WHERE clause makes a lost race visible as
// ErrConflict instead of a silent overwrite.
type Store interface {
	Insert(ctx context.Context, n *Negotiation) error
	Get(ctx context.Context, id uuid.UUID) (*Negotiation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Negotiation, error)
	// UpdateVersioned writes n if the stored version still equals
	// expectedVersion, bumping the version. Returns ErrConflict when
	// another writer got there first.
	UpdateVersioned(ctx context.Context, n *Negotiation, expectedVersion int) error
	// ExpireOverdue transitions every active negotiation past its
	// deadline to EXPIRED and reports how many changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// postgresStore implements Store.
type postgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewStore creates a postgres-backed negotiation store.
func NewStore(db *sql.DB) Store {
	return &postgresStore{
		db:     db,
		tracer: otel.Tracer("ecomart/negotiation"),
	}
}

const negotiationColumns = `id, item_id, buyer_id, seller_id, original_price, proposed_price, counter_offers,
	status, round, max_rounds, final_price, expires_at, resolved_at, version, created_at, updated_at`

// Insert stores a new negotiation. The partial unique index on active
// (item, buyer) pairs turns a duplicate open into ErrDuplicateActive.
func (s *postgresStore) Insert(ctx context.Context, n *Negotiation) error {
	ctx, span := s.tracer.Start(ctx, "negotiation.insert",
		trace.WithAttributes(
			attribute.String("negotiation.id", n.ID.String()),
			attribute.String("item.id", n.ItemID.String()),
		),
	)
	defer span.End()

	offers, err := json.Marshal(n.CounterOffers)
	if err != nil {
		return fmt.Errorf("marshal counter offers: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO negotiations (id, item_id, buyer_id, seller_id, original_price, proposed_price,
			counter_offers, status, round, max_rounds, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		RETURNING created_at, updated_at
	`, n.ID, n.ItemID, n.BuyerID, n.SellerID, n.OriginalPrice, n.ProposedPrice,
		offers, n.Status, n.Round, n.MaxRounds, n.ExpiresAt,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			span.SetAttributes(attribute.Bool("conflict.duplicate_active", true))
			return ErrDuplicateActive
		}
		return fmt.Errorf("insert negotiation: %w", err)
	}

	n.Version = 1
	return nil
}

// Get retrieves a negotiation by id.
func (s *postgresStore) Get(ctx context.Context, id uuid.UUID) (*Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE id = $1`
	n, err := scanNegotiation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get negotiation: %w", err)
	}
	return n, nil
}

// ListForUser returns the user's negotiations, newest first.
func (s *postgresStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list negotiations: %w", err)
	}
	defer rows.Close()

	var negotiations []*Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan negotiation: %w", err)
		}
		negotiations = append(negotiations, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate negotiations: %w", err)
	}
	return negotiations, nil
}

// UpdateVersioned applies an optimistic-concurrency write of the full
// negotiation state.
func (s *postgresStore) UpdateVersioned(ctx context.Context, n *Negotiation, expectedVersion int) error {
	ctx, span := s.tracer.Start(ctx, "negotiation.update",
		trace.WithAttributes(
			attribute.String("negotiation.id", n.ID.String()),
			attribute.String("negotiation.status", string(n.Status)),
			attribute.Int("expected.version", expectedVersion),
		),
	)
	defer span.End()

	offers, err := json.Marshal(n.CounterOffers)
	if err != nil {
		return fmt.Errorf("marshal counter offers: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE negotiations
		SET counter_offers = $1, status = $2, round = $3, final_price = $4, resolved_at = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
	`, offers, n.Status, n.Round, n.FinalPrice, n.ResolvedAt, n.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update negotiation: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return ErrConflict
	}

	n.Version = expectedVersion + 1
	return nil
}

// ExpireOverdue sweeps active negotiations past their deadline.
func (s *postgresStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "negotiation.expire_overdue")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE negotiations
		SET status = $1, resolved_at = $2, version = version + 1, updated_at = NOW()
		WHERE status IN ($3, $4) AND expires_at < $2
	`, StatusExpired, now, StatusPending, StatusCounterOffered)
	if err != nil {
		return 0, fmt.Errorf("expire negotiations: %w", err)
	}

	expired, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	span.SetAttributes(attribute.Int64("expired.count", expired))
	return expired, nil
}

func scanNegotiation(row interface{ Scan(...any) error }) (*Negotiation, error) {
	n := &Negotiation{}
	var offers []byte
	err := row.Scan(
		&n.ID,
		&n.ItemID,
		&n.BuyerID,
		&n.SellerID,
		&n.OriginalPrice,
		&n.ProposedPrice,
		&offers,
		&n.Status,
		&n.Round,
		&n.MaxRounds,
		&n.FinalPrice,
		&n.ExpiresAt,
		&n.ResolvedAt,
		&n.Version,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(offers, &n.CounterOffers); err != nil {
		return nil, fmt.Errorf("unmarshal counter offers: %w", err)
	}
	return n, nil
}

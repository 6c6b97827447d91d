// internal/negotiation/store_test.go
package negotiation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to a PostgreSQL database for testing and creates
// the negotiations schema. It skips the test if the connection cannot be
// established.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping store tests: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS negotiations (
			id UUID PRIMARY KEY,
			item_id UUID NOT NULL,
			buyer_id UUID NOT NULL,
			seller_id UUID NOT NULL,
			original_price NUMERIC(12, 2) NOT NULL,
			proposed_price NUMERIC(12, 2) NOT NULL,
			counter_offers JSONB NOT NULL DEFAULT '[]',
			status TEXT NOT NULL,
			round INT NOT NULL,
			max_rounds INT NOT NULL,
			final_price NUMERIC(12, 2),
			expires_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_negotiations_active
			ON negotiations (item_id, buyer_id)
			WHERE status IN ('PENDING', 'COUNTER_OFFERED');
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

func testNegotiation() *Negotiation {
	return &Negotiation{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		BuyerID:       uuid.New(),
		SellerID:      uuid.New(),
		OriginalPrice: 100,
		ProposedPrice: 80,
		CounterOffers: []Offer{},
		Status:        StatusPending,
		Round:         1,
		MaxRounds:     5,
		ExpiresAt:     time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	n := testNegotiation()
	require.NoError(t, store.Insert(ctx, n))
	assert.Equal(t, 1, n.Version)

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 80.0, got.ProposedPrice)
	assert.Empty(t, got.CounterOffers)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreDuplicateActive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	n := testNegotiation()
	require.NoError(t, store.Insert(ctx, n))

	dup := testNegotiation()
	dup.ItemID = n.ItemID
	dup.BuyerID = n.BuyerID
	assert.ErrorIs(t, store.Insert(ctx, dup), ErrDuplicateActive)

	// resolving the first frees the slot
	n.Status = StatusRejected
	now := time.Now()
	n.ResolvedAt = &now
	require.NoError(t, store.UpdateVersioned(ctx, n, 1))
	require.NoError(t, store.Insert(ctx, dup))
}

func TestPostgresStoreVersionedUpdate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	n := testNegotiation()
	require.NoError(t, store.Insert(ctx, n))

	n.CounterOffers = append(n.CounterOffers, Offer{
		OfferedBy: n.SellerID,
		Amount:    90,
		At:        time.Now().UTC(),
	})
	n.Status = StatusCounterOffered
	n.Round = 2
	require.NoError(t, store.UpdateVersioned(ctx, n, 1))
	assert.Equal(t, 2, n.Version)

	// stale version loses
	stale := *n
	assert.ErrorIs(t, store.UpdateVersioned(ctx, &stale, 1), ErrConflict)

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCounterOffered, got.Status)
	assert.Equal(t, 2, got.Round)
	require.Len(t, got.CounterOffers, 1)
	assert.Equal(t, 90.0, got.CounterOffers[0].Amount)
}

func TestPostgresStoreListForUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	n := testNegotiation()
	require.NoError(t, store.Insert(ctx, n))

	for _, userID := range []uuid.UUID{n.BuyerID, n.SellerID} {
		listed, err := store.ListForUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, n.ID, listed[0].ID)
	}

	listed, err := store.ListForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestPostgresStoreExpireOverdue(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	overdue := testNegotiation()
	overdue.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Insert(ctx, overdue))

	fresh := testNegotiation()
	require.NoError(t, store.Insert(ctx, fresh))

	expired, err := store.ExpireOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, expired, int64(1))

	got, err := store.Get(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	got, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

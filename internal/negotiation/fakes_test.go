// internal/negotiation/fakes_test.go
package negotiation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/catalog"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/notify"
)

// fakeStore is an in-memory Store enforcing the same uniqueness and
// versioning rules as the postgres implementation.
type fakeStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Negotiation
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[uuid.UUID]*Negotiation{}}
}

func cloneNegotiation(n *Negotiation) *Negotiation {
	out := *n
	out.CounterOffers = append([]Offer(nil), n.CounterOffers...)
	if n.FinalPrice != nil {
		price := *n.FinalPrice
		out.FinalPrice = &price
	}
	if n.ResolvedAt != nil {
		at := *n.ResolvedAt
		out.ResolvedAt = &at
	}
	return &out
}

func (f *fakeStore) Insert(_ context.Context, n *Negotiation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.byID {
		if existing.ItemID == n.ItemID && existing.BuyerID == n.BuyerID && existing.Status != "" && existing.Active() {
			return ErrDuplicateActive
		}
	}

	n.Version = 1
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	f.byID[n.ID] = cloneNegotiation(n)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*Negotiation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNegotiation(n), nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*Negotiation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*Negotiation
	for _, n := range f.byID {
		if n.BuyerID == userID || n.SellerID == userID {
			out = append(out, cloneNegotiation(n))
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateVersioned(_ context.Context, n *Negotiation, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.byID[n.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrConflict
	}

	n.Version = expectedVersion + 1
	n.UpdatedAt = time.Now()
	f.byID[n.ID] = cloneNegotiation(n)
	return nil
}

func (f *fakeStore) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired int64
	for id, n := range f.byID {
		if n.Active() && now.After(n.ExpiresAt) {
			clone := cloneNegotiation(n)
			clone.Status = StatusExpired
			clone.ResolvedAt = &now
			clone.Version++
			f.byID[id] = clone
			expired++
		}
	}
	return expired, nil
}

// fakeCatalog serves items and records price settlements.
type fakeCatalog struct {
	mu            sync.Mutex
	items         map[uuid.UUID]*catalog.Item
	setPriceCalls []float64
}

func newFakeCatalog(items ...*catalog.Item) *fakeCatalog {
	byID := map[uuid.UUID]*catalog.Item{}
	for _, item := range items {
		byID[item.ID] = item
	}
	return &fakeCatalog{items: byID}
}

func (f *fakeCatalog) GetItem(_ context.Context, id uuid.UUID) (*catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (f *fakeCatalog) SetPrice(_ context.Context, id uuid.UUID, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	item.Price = price
	f.setPriceCalls = append(f.setPriceCalls, price)
	return nil
}

func (f *fakeCatalog) priceCalls() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.setPriceCalls...)
}

// fakeNotifier collects published events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeNotifier) Publish(_ context.Context, ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

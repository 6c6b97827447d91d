// internal/negotiation/implementation.go
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/catalog"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/eventlog"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/notify"
)

// Catalog is the slice of the catalog the state machine touches:
// reading the listing on open, writing the price on seller acceptance.
type Catalog interface {
	GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error)
	SetPrice(ctx context.Context, id uuid.UUID, price float64) error
}

// Options tune the state machine.
type Options struct {
	// MaxRounds caps offer/counter-offer exchanges per negotiation.
	MaxRounds int
	// TTL is how long a negotiation stays open.
	TTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// service implements the Service interface.
type service struct {
	store     Store
	catalog   Catalog
	notifier  notify.Publisher
	events    *eventlog.Store
	log       zerolog.Logger
	maxRounds int
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new negotiation service instance.
func NewService(store Store, cat Catalog, notifier notify.Publisher, events *eventlog.Store, log zerolog.Logger, opts Options) Service {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 5
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		store:     store,
		catalog:   cat,
		notifier:  notifier,
		events:    events,
		log:       log.With().Str("component", "negotiation").Logger(),
		maxRounds: opts.MaxRounds,
		ttl:       opts.TTL,
		now:       opts.Now,
	}
}

// Open starts a negotiation in PENDING with the buyer's initial offer.
func (s *service) Open(ctx context.Context, p OpenParams) (*Negotiation, error) {
	item, err := s.catalog.GetItem(ctx, p.ItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("item %s: %w", p.ItemID, catalog.ErrNotFound)
		}
		return nil, fmt.Errorf("load item: %w", err)
	}

	if !item.IsActive {
		return nil, ErrItemUnavailable
	}
	if p.BuyerID == item.OwnerID {
		return nil, ErrSelfNegotiation
	}
	if p.ProposedPrice <= 0 || p.ProposedPrice >= item.Price {
		return nil, ErrInvalidOffer
	}

	now := s.now()
	n := &Negotiation{
		ID:            uuid.New(),
		ItemID:        item.ID,
		BuyerID:       p.BuyerID,
		SellerID:      item.OwnerID,
		OriginalPrice: item.Price,
		ProposedPrice: p.ProposedPrice,
		CounterOffers: []Offer{},
		Status:        StatusPending,
		Round:         1,
		MaxRounds:     s.maxRounds,
		ExpiresAt:     now.Add(s.ttl),
	}

	if p.Message != "" {
		// The opening message rides along as offer zero so the thread
		// keeps it; LatestOffer still reports the proposal itself.
		n.CounterOffers = append(n.CounterOffers, Offer{
			OfferedBy: p.BuyerID,
			Amount:    p.ProposedPrice,
			Message:   p.Message,
			At:        now,
		})
	}

	if err := s.store.Insert(ctx, n); err != nil {
		return nil, err
	}

	s.record(ctx, n.ID, "NegotiationOpened", NegotiationOpenedEvent{
		ID:            n.ID,
		ItemID:        n.ItemID,
		BuyerID:       n.BuyerID,
		SellerID:      n.SellerID,
		ProposedPrice: n.ProposedPrice,
	})
	s.notifyAsync(ctx, n.SellerID, notify.TypeNegotiationOpened, n)

	return n, nil
}

// Respond applies accept, reject, or counter on behalf of actorID.
func (s *service) Respond(ctx context.Context, id, actorID uuid.UUID, p RespondParams) (*Negotiation, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !n.Active() {
		return nil, ErrClosed
	}
	if n.ExpiredAt(s.now()) {
		s.lazyExpire(ctx, n)
		return nil, ErrExpired
	}
	if !n.Participant(actorID) {
		return nil, ErrNotParticipant
	}
	if n.LatestOffer().OfferedBy == actorID {
		return nil, ErrOwnOffer
	}

	expectedVersion := n.Version
	now := s.now()

	var notifyType string
	switch p.Action {
	case ActionAccept:
		amount := n.LatestOffer().Amount
		n.Status = StatusAccepted
		n.FinalPrice = &amount
		n.ResolvedAt = &now
		notifyType = notify.TypeNegotiationAccepted

	case ActionReject:
		n.Status = StatusRejected
		n.ResolvedAt = &now
		notifyType = notify.TypeNegotiationRejected

	case ActionCounter:
		if p.Amount <= 0 {
			return nil, ErrInvalidCounter
		}
		if n.Round >= n.MaxRounds {
			return nil, ErrRoundLimit
		}
		n.CounterOffers = append(n.CounterOffers, Offer{
			OfferedBy: actorID,
			Amount:    p.Amount,
			Message:   p.Message,
			At:        now,
		})
		n.Status = StatusCounterOffered
		n.Round++
		notifyType = notify.TypeOfferCountered

	default:
		return nil, fmt.Errorf("unknown action %q", p.Action)
	}

	if err := s.commit(ctx, n, expectedVersion); err != nil {
		return nil, err
	}

	// Seller acceptance settles the listing price. The transition is
	// already durable; a failed price write is logged, not rolled back.
	if n.Status == StatusAccepted && actorID == n.SellerID {
		if err := s.catalog.SetPrice(ctx, n.ItemID, *n.FinalPrice); err != nil {
			s.log.Error().Err(err).
				Stringer("negotiation_id", n.ID).
				Stringer("item_id", n.ItemID).
				Msg("failed to settle item price after acceptance")
		}
	}

	s.record(ctx, n.ID, "NegotiationResponded", NegotiationRespondedEvent{
		ID:      n.ID,
		ActorID: actorID,
		Action:  p.Action,
		Amount:  p.Amount,
		Status:  n.Status,
		Round:   n.Round,
	})
	s.notifyAsync(ctx, n.counterparty(actorID), notifyType, n)

	return n, nil
}

// Cancel lets the original buyer withdraw an active negotiation.
func (s *service) Cancel(ctx context.Context, id, actorID uuid.UUID) (*Negotiation, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actorID != n.BuyerID {
		return nil, ErrNotBuyer
	}
	if !n.Active() {
		return nil, ErrClosed
	}
	if n.ExpiredAt(s.now()) {
		s.lazyExpire(ctx, n)
		return nil, ErrExpired
	}

	expectedVersion := n.Version
	now := s.now()
	n.Status = StatusRejected
	n.ResolvedAt = &now

	if err := s.commit(ctx, n, expectedVersion); err != nil {
		return nil, err
	}

	s.record(ctx, n.ID, "NegotiationResponded", NegotiationRespondedEvent{
		ID:      n.ID,
		ActorID: actorID,
		Action:  ActionReject,
		Status:  n.Status,
		Round:   n.Round,
	})
	s.notifyAsync(ctx, n.SellerID, notify.TypeNegotiationCancelled, n)

	return n, nil
}

// Get returns a negotiation to one of its parties, applying lazy expiry.
func (s *service) Get(ctx context.Context, id, actorID uuid.UUID) (*Negotiation, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.Participant(actorID) {
		return nil, ErrNotParticipant
	}
	if n.Active() && n.ExpiredAt(s.now()) {
		s.lazyExpire(ctx, n)
	}
	return n, nil
}

// ListForUser returns negotiations where the user is buyer or seller.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Negotiation, error) {
	return s.store.ListForUser(ctx, userID)
}

// ExpireOverdue sweeps active negotiations past their deadline.
func (s *service) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.store.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info().Int64("count", expired).Msg("expired overdue negotiations")
	}
	return expired, nil
}

// commit writes the transition, turning a lost race on an already
// resolved negotiation into ErrClosed.
func (s *service) commit(ctx context.Context, n *Negotiation, expectedVersion int) error {
	err := s.store.UpdateVersioned(ctx, n, expectedVersion)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrConflict) {
		return err
	}

	current, getErr := s.store.Get(ctx, n.ID)
	if getErr == nil && current.Status.Terminal() {
		return ErrClosed
	}
	return ErrConflict
}

// lazyExpire transitions an overdue negotiation to EXPIRED. A conflict
// means someone else already moved it; either way the caller reports
// expiry or closure, so the error is only logged.
func (s *service) lazyExpire(ctx context.Context, n *Negotiation) {
	expectedVersion := n.Version
	now := s.now()
	n.Status = StatusExpired
	n.ResolvedAt = &now

	if err := s.store.UpdateVersioned(ctx, n, expectedVersion); err != nil && !errors.Is(err, ErrConflict) {
		s.log.Warn().Err(err).Stringer("negotiation_id", n.ID).Msg("failed to persist lazy expiry")
	}
}

func (n *Negotiation) counterparty(actorID uuid.UUID) uuid.UUID {
	if actorID == n.BuyerID {
		return n.SellerID
	}
	return n.BuyerID
}

// record appends a domain event. Failures are logged, never propagated.
func (s *service) record(ctx context.Context, id uuid.UUID, eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, id, "negotiation", eventType, data); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Stringer("negotiation_id", id).Msg("failed to record event")
	}
}

// notifyAsync emits a notification without holding up the request.
// Failures are logged and discarded.
func (s *service) notifyAsync(ctx context.Context, userID uuid.UUID, notifyType string, n *Negotiation) {
	if s.notifier == nil {
		return
	}

	ev := notify.Event{
		UserID: userID,
		Type:   notifyType,
		Payload: map[string]any{
			"negotiation_id": n.ID,
			"item_id":        n.ItemID,
			"status":         n.Status,
			"round":          n.Round,
			"latest_amount":  n.LatestOffer().Amount,
			"progress":       n.ProgressPercentage(),
		},
		SentAt: s.now(),
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, 5*time.Second)
		defer cancel()
		if err := s.notifier.Publish(ctx, ev); err != nil {
			s.log.Warn().Err(err).
				Stringer("user_id", ev.UserID).
				Str("type", ev.Type).
				Msg("notification emit failed")
		}
	}()
}

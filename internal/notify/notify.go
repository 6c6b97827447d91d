// internal/notify/notify.go
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notification types emitted by the negotiation state machine.
const (
	TypeNegotiationOpened    = "negotiation_opened"
	TypeOfferCountered       = "offer_countered"
	TypeNegotiationAccepted  = "negotiation_accepted"
	TypeNegotiationRejected  = "negotiation_rejected"
	TypeNegotiationCancelled = "negotiation_cancelled"
)

// Event is one user-addressed notification.
type Event struct {
	UserID  uuid.UUID      `json:"user_id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

// Publisher delivers notifications. Delivery is best effort: callers
// treat a returned error as log-and-forget, never as request failure.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes notifications to the log. Used in development and
// as the default sink when no webhook is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "notify").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info().
		Stringer("user_id", ev.UserID).
		Str("type", ev.Type).
		Interface("payload", ev.Payload).
		Msg("notification")
	return nil
}

// internal/activity/handler.go
package activity

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/api"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/validation"
)

type Handler struct {
	activities Log
	log        zerolog.Logger
}

func NewHandler(activities Log, log zerolog.Logger) *Handler {
	return &Handler{
		activities: activities,
		log:        log.With().Str("component", "activity_handler").Logger(),
	}
}

type appendRequest struct {
	UserID   string         `json:"user_id" validate:"required,uuid"`
	ItemID   string         `json:"item_id" validate:"required,uuid"`
	Action   string         `json:"action" validate:"required,oneof=viewed bought rented added_to_cart searched"`
	Metadata map[string]any `json:"metadata"`
}

// HandleAppend handles POST /activities.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	itemID, _ := uuid.Parse(req.ItemID)

	suppressed, err := h.activities.Append(r.Context(), Record{
		UserID:   userID,
		ItemID:   itemID,
		Action:   Action(req.Action),
		Metadata: req.Metadata,
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			api.RespondError(w, http.StatusTooManyRequests, api.CodeTooManyRequests, "too many activity records")
			return
		}
		h.log.Error().Err(err).Msg("append activity failed")
		api.RespondError(w, http.StatusInternalServerError, api.CodeInternalError, "failed to record activity")
		return
	}

	status := http.StatusCreated
	if suppressed {
		status = http.StatusOK
	}
	api.RespondJSON(w, status, map[string]any{"suppressed": suppressed})
}

// internal/negotiation/handler.go
package negotiation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/api"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/catalog"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/validation"
)

type Handler struct {
	service Service
	log     zerolog.Logger
}

func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "negotiation_handler").Logger(),
	}
}

// negotiationView augments the stored state with derived fields.
type negotiationView struct {
	*Negotiation
	LatestOffer        Offer `json:"latest_offer"`
	ProgressPercentage int   `json:"progress_percentage"`
}

func view(n *Negotiation) negotiationView {
	return negotiationView{
		Negotiation:        n,
		LatestOffer:        n.LatestOffer(),
		ProgressPercentage: n.ProgressPercentage(),
	}
}

type openRequest struct {
	ItemID        string  `json:"item_id" validate:"required,uuid"`
	BuyerID       string  `json:"buyer_id" validate:"required,uuid"`
	ProposedPrice float64 `json:"proposed_price" validate:"gt=0"`
	Message       string  `json:"message" validate:"max=1000"`
}

// HandleOpen handles POST /negotiations.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
		return
	}

	itemID, _ := uuid.Parse(req.ItemID)
	buyerID, _ := uuid.Parse(req.BuyerID)

	n, err := h.service.Open(r.Context(), OpenParams{
		ItemID:        itemID,
		BuyerID:       buyerID,
		ProposedPrice: req.ProposedPrice,
		Message:       req.Message,
	})
	if err != nil {
		h.respondError(w, err, "open negotiation failed")
		return
	}

	api.RespondJSON(w, http.StatusCreated, view(n))
}

type respondRequest struct {
	ActorID string  `json:"actor_id" validate:"required,uuid"`
	Action  string  `json:"action" validate:"required,oneof=accept reject counter"`
	Amount  float64 `json:"amount" validate:"gte=0"`
	Message string  `json:"message" validate:"max=1000"`
}

// HandleRespond handles POST /negotiations/{id}/respond.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid negotiation ID")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
		return
	}

	actorID, _ := uuid.Parse(req.ActorID)
	n, err := h.service.Respond(r.Context(), id, actorID, RespondParams{
		Action:  Action(req.Action),
		Amount:  req.Amount,
		Message: req.Message,
	})
	if err != nil {
		h.respondError(w, err, "respond failed")
		return
	}

	api.RespondJSON(w, http.StatusOK, view(n))
}

type cancelRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

// HandleCancel handles POST /negotiations/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid negotiation ID")
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
		return
	}

	actorID, _ := uuid.Parse(req.ActorID)
	n, err := h.service.Cancel(r.Context(), id, actorID)
	if err != nil {
		h.respondError(w, err, "cancel failed")
		return
	}

	api.RespondJSON(w, http.StatusOK, view(n))
}

// HandleGet handles GET /negotiations/{id}. The requesting party rides
// in the actor query parameter.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid negotiation ID")
		return
	}
	actorID, err := uuid.Parse(r.URL.Query().Get("actor"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "actor query parameter must be a valid UUID")
		return
	}

	n, err := h.service.Get(r.Context(), id, actorID)
	if err != nil {
		h.respondError(w, err, "get negotiation failed")
		return
	}

	api.RespondJSON(w, http.StatusOK, view(n))
}

// HandleListForUser handles GET /users/{id}/negotiations.
func (h *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid user ID")
		return
	}

	negotiations, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "list negotiations failed")
		return
	}

	views := make([]negotiationView, 0, len(negotiations))
	for _, n := range negotiations {
		views = append(views, view(n))
	}
	api.RespondJSON(w, http.StatusOK, views)
}

// HandleExpireOverdue handles POST /admin/negotiations/expire.
func (h *Handler) HandleExpireOverdue(w http.ResponseWriter, r *http.Request) {
	expired, err := h.service.ExpireOverdue(r.Context())
	if err != nil {
		h.respondError(w, err, "expiry sweep failed")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]any{"expired": expired})
}

// respondError maps domain sentinels onto the response envelope.
func (h *Handler) respondError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrInvalidOffer), errors.Is(err, ErrInvalidCounter), errors.Is(err, ErrItemUnavailable):
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		api.RespondError(w, http.StatusNotFound, api.CodeNotFound, err.Error())
	case errors.Is(err, ErrSelfNegotiation), errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrOwnOffer), errors.Is(err, ErrNotBuyer):
		api.RespondError(w, http.StatusForbidden, api.CodeForbidden, err.Error())
	case errors.Is(err, ErrDuplicateActive), errors.Is(err, ErrClosed), errors.Is(err, ErrConflict):
		api.RespondError(w, http.StatusConflict, api.CodeConflict, err.Error())
	case errors.Is(err, ErrExpired):
		api.RespondError(w, http.StatusGone, api.CodeExpired, err.Error())
	case errors.Is(err, ErrRoundLimit):
		api.RespondError(w, http.StatusConflict, api.CodeRoundLimit, err.Error())
	default:
		h.log.Error().Err(err).Msg(logMsg)
		api.RespondError(w, http.StatusInternalServerError, api.CodeInternalError, "internal error")
	}
}

// internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/activity"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/api"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/validation"
)

type Handler struct {
	service    Service
	activities activity.Log
	log        zerolog.Logger
}

func NewHandler(service Service, activities activity.Log, log zerolog.Logger) *Handler {
	return &Handler{
		service:    service,
		activities: activities,
		log:        log.With().Str("component", "catalog_handler").Logger(),
	}
}

type createItemRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Category    string  `json:"category" validate:"required,max=100"`
	Type        string  `json:"type" validate:"required,oneof=sell rent buy"`
	Price       float64 `json:"price" validate:"gt=0"`
	OwnerID     string  `json:"owner_id" validate:"required,uuid"`
}

// HandleCreateItem handles POST /items.
func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
		return
	}

	ownerID, _ := uuid.Parse(req.OwnerID)
	item, err := h.service.AddItem(r.Context(), NewItemParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        ListingType(req.Type),
		Price:       req.Price,
		OwnerID:     ownerID,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("create item failed")
		api.RespondError(w, http.StatusInternalServerError, api.CodeInternalError, "failed to create item")
		return
	}

	api.RespondJSON(w, http.StatusCreated, item)
}

// HandleGetItem handles GET /items/{id}. When the viewer query parameter
// carries a user id, the view is recorded as an activity; the activity
// log suppresses duplicates and bumps the view count for the rest.
func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid item ID")
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, api.CodeNotFound, "item not found")
			return
		}
		h.log.Error().Err(err).Stringer("item_id", id).Msg("get item failed")
		api.RespondError(w, http.StatusInternalServerError, api.CodeInternalError, "failed to load item")
		return
	}

	if viewer := r.URL.Query().Get("viewer"); viewer != "" {
		if viewerID, err := uuid.Parse(viewer); err == nil && viewerID != item.OwnerID {
			if _, err := h.activities.Append(r.Context(), activity.Record{
				UserID: viewerID,
				ItemID: id,
				Action: activity.ActionViewed,
			}); err != nil {
				h.log.Warn().Err(err).Stringer("item_id", id).Msg("failed to record view")
			}
		}
	}

	api.RespondJSON(w, http.StatusOK, item)
}

// HandleRemoveItem handles DELETE /items/{id}.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid item ID")
		return
	}

	if err := h.service.RemoveItem(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, api.CodeNotFound, "item not found")
			return
		}
		h.log.Error().Err(err).Stringer("item_id", id).Msg("retire item failed")
		api.RespondError(w, http.StatusInternalServerError, api.CodeInternalError, "failed to retire item")
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}

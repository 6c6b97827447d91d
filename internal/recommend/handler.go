// internal/recommend/handler.go
package recommend

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/api"
)

const defaultLimit = 20

type Handler struct {
	engine   *Engine
	maxLimit int
	log      zerolog.Logger
}

func NewHandler(engine *Engine, maxLimit int, log zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		maxLimit: maxLimit,
		log:      log.With().Str("component", "recommend_handler").Logger(),
	}
}

// HandleRecommendations handles GET /users/{id}/recommendations.
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "invalid user ID")
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.RespondError(w, http.StatusBadRequest, api.CodeValidationFailed, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	if h.maxLimit > 0 && limit > h.maxLimit {
		limit = h.maxLimit
	}

	result, err := h.engine.Recommend(r.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Stringer("user_id", userID).Msg("recommendation failed")
		api.RespondError(w, http.StatusInternalServerError, api.CodeInternalError, "failed to generate recommendations")
		return
	}

	api.RespondJSON(w, http.StatusOK, result)
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/GameCatalog/internal/service"
	"github.com/utafrali/GameCatalog/pkg/httputil"
	"github.com/utafrali/GameCatalog/pkg/validator"
)

// GameHandler handles HTTP requests for catalog records.
type GameHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewGameHandler creates a new game HTTP handler.
func NewGameHandler(svc *service.CatalogService, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateGameRequest is the JSON request body for creating a game.
type CreateGameRequest struct {
	Code          int64     `json:"code"`
	Name          string    `json:"name" validate:"required,max=255"`
	Description   string    `json:"description" validate:"required,max=1000"`
	ReleaseDate   time.Time `json:"release_date"`
	PurchaseCount int64     `json:"purchase_count" validate:"gte=0"`
	AverageRating float64   `json:"average_rating"`
	Genre         string    `json:"genre" validate:"required,max=250"`
}

// UpdateGameRequest is the JSON request body for replacing a game.
type UpdateGameRequest struct {
	ID            int64     `json:"id" validate:"required,gt=0"`
	CreatedAt     time.Time `json:"created_at"`
	Code          int64     `json:"code"`
	Name          string    `json:"name" validate:"required,max=255"`
	Description   string    `json:"description" validate:"required,max=1000"`
	ReleaseDate   time.Time `json:"release_date"`
	PurchaseCount int64     `json:"purchase_count" validate:"gte=0"`
	AverageRating float64   `json:"average_rating"`
	Genre         string    `json:"genre" validate:"required,max=250"`
}

// UpdateRatingRequest is the JSON request body for setting a rating.
type UpdateRatingRequest struct {
	Rating *float64 `json:"rating" validate:"required"`
}

// --- Handlers ---

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListGames(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: games})
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	game, err := h.service.GetGame(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: game})
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	game, err := h.service.CreateGame(r.Context(), &service.CreateGameInput{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		ReleaseDate:   req.ReleaseDate,
		PurchaseCount: req.PurchaseCount,
		AverageRating: req.AverageRating,
		Genre:         req.Genre,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: game})
}

// UpdateGame handles PUT /api/v1/games
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req UpdateGameRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	game, err := h.service.UpdateGame(r.Context(), &service.UpdateGameInput{
		ID:            req.ID,
		CreatedAt:     req.CreatedAt,
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		ReleaseDate:   req.ReleaseDate,
		PurchaseCount: req.PurchaseCount,
		AverageRating: req.AverageRating,
		Genre:         req.Genre,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: game})
}

// DeleteGame handles DELETE /api/v1/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteGame(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IncreasePurchaseCount handles PUT /api/v1/games/{id}/purchases
func (h *GameHandler) IncreasePurchaseCount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	game, err := h.service.IncreasePurchaseCount(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: game})
}

// UpdateRating handles PUT /api/v1/games/{id}/rating
func (h *GameHandler) UpdateRating(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateRatingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	game, err := h.service.UpdateRating(r.Context(), id, *req.Rating)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: game})
}

// Reindex handles POST /api/v1/games/reindex
func (h *GameHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ReindexAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"indexed": n}})
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/GameCatalog/internal/service"
	"github.com/utafrali/GameCatalog/pkg/httputil"
	"github.com/utafrali/GameCatalog/pkg/validator"
)

// AnalyticsHandler serves search, recommendation and aggregate endpoints.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	logger  *slog.Logger
}

// NewAnalyticsHandler creates a new analytics HTTP handler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/v1/games/search?q=&size=
func (h *AnalyticsHandler) Search(w http.ResponseWriter, r *http.Request) {
	size, ok := httputil.PositiveIntQuery(w, r, "size", service.DefaultResultSize, service.MaxResultSize)
	if !ok {
		return
	}

	docs, err := h.service.SearchGames(r.Context(), r.URL.Query().Get("q"), size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: docs})
}

// Recommend handles POST /api/v1/games/recommendations?size=
// The body is a JSON array of genres.
func (h *AnalyticsHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	size, ok := httputil.PositiveIntQuery(w, r, "size", service.DefaultResultSize, service.MaxResultSize)
	if !ok {
		return
	}

	var genres []string
	if err := validator.DecodeJSON(r, &genres); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if len(genres) == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "at least one genre is required"},
		})
		return
	}

	docs, err := h.service.RecommendByGenres(r.Context(), genres, size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: docs})
}

// MostRecent handles GET /api/v1/games/recent?size=
func (h *AnalyticsHandler) MostRecent(w http.ResponseWriter, r *http.Request) {
	size, ok := httputil.PositiveIntQuery(w, r, "size", service.DefaultResultSize, service.MaxResultSize)
	if !ok {
		return
	}

	docs, err := h.service.MostRecentGames(r.Context(), size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: docs})
}

// TopGenres handles GET /api/v1/games/metrics/top-genres?top=
func (h *AnalyticsHandler) TopGenres(w http.ResponseWriter, r *http.Request) {
	top, ok := httputil.PositiveIntQuery(w, r, "top", service.DefaultResultSize, service.MaxResultSize)
	if !ok {
		return
	}

	stats, err := h.service.TopGenresByCount(r.Context(), top)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// TopGenresBySales handles GET /api/v1/games/metrics/top-genres-by-sales?top=
func (h *AnalyticsHandler) TopGenresBySales(w http.ResponseWriter, r *http.Request) {
	top, ok := httputil.PositiveIntQuery(w, r, "top", service.DefaultResultSize, service.MaxResultSize)
	if !ok {
		return
	}

	stats, err := h.service.TopGenresBySales(r.Context(), top)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// AverageRatingByGenre handles GET /api/v1/games/metrics/average-rating-by-genre
func (h *AnalyticsHandler) AverageRatingByGenre(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AverageRatingByGenre(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// General handles GET /api/v1/games/metrics/general
func (h *AnalyticsHandler) General(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GeneralMetrics(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// Dashboard handles GET /api/v1/games/metrics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: d})
}

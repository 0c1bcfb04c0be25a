package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/aggregator"
	"github.com/dharmasatrya/milesvalue/internal/cache"
	"github.com/dharmasatrya/milesvalue/internal/filter"
	"github.com/dharmasatrya/milesvalue/internal/logger"
	"github.com/dharmasatrya/milesvalue/internal/models"
)

type SearchHandler struct {
	aggregator *aggregator.Aggregator
	cache      cache.Cache
	logger     *zap.Logger
}

func NewSearchHandler(agg *aggregator.Aggregator, c cache.Cache, log *zap.Logger) *SearchHandler {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &SearchHandler{
		aggregator: agg,
		cache:      c,
		logger:     logger.OrNop(log),
	}
}

// Search serves one-way searches through the cache; round trips always go
// to the providers.
func (h *SearchHandler) Search(c echo.Context) error {
	startTime := time.Now()
	ctx := c.Request().Context()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest[[]models.UnifiedOffer](c, startTime, "Failed to parse request body: "+err.Error())
	}

	criteria := req.SearchCriteria.Normalize()
	if err := criteria.Validate(); err != nil {
		return invalidRequest[[]models.UnifiedOffer](c, startTime, err.Error())
	}

	if criteria.ReturnDate != nil {
		return h.handleRoundTrip(c, req, criteria)
	}

	if cached, found := h.cache.Get(ctx, criteria); found {
		filtered := filter.Apply(cached, req.Filters, req.SortBy, req.SortOrder)
		return c.JSON(http.StatusOK, models.Ok(filtered, models.Metadata{
			RequestID:       uuid.NewString(),
			Timestamp:       time.Now().UTC(),
			ExecutionTimeMs: time.Since(startTime).Milliseconds(),
			Source:          models.MetaSourceCache,
			Cached:          true,
		}))
	}

	env := h.aggregator.Search(ctx, criteria)
	offers, ok := env.Payload()
	if !ok {
		return c.JSON(statusFor(env.Error), env)
	}

	if cacheable(env.Metadata) {
		if err := h.cache.Set(ctx, criteria, offers); err != nil {
			h.logger.Warn("cache write failed", zap.String("route", criteria.Route.Key()), zap.Error(err))
		}
	}

	env.Data = ptr(filter.Apply(offers, req.Filters, req.SortBy, req.SortOrder))
	return c.JSON(http.StatusOK, env)
}

func (h *SearchHandler) handleRoundTrip(c echo.Context, req models.SearchRequest, criteria models.SearchCriteria) error {
	env := h.aggregator.SearchRoundTrip(c.Request().Context(), criteria)
	trip, ok := env.Payload()
	if !ok {
		return c.JSON(statusFor(env.Error), env)
	}

	trip.Outbound = filter.Apply(trip.Outbound, req.Filters, req.SortBy, req.SortOrder)
	trip.Return = filter.Apply(trip.Return, req.Filters, req.SortBy, req.SortOrder)
	env.Data = &trip
	return c.JSON(http.StatusOK, env)
}

// cacheable reports whether every offer came from a live provider response.
// Fallback and mock estimates are never cached, even mixed with live offers.
func cacheable(meta models.Metadata) bool {
	if meta.Source != models.MetaSourceAPI {
		return false
	}
	return meta.Providers == nil || len(meta.Providers.Fallbacks) == 0
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func invalidRequest[T any](c echo.Context, start time.Time, message string) error {
	return c.JSON(http.StatusBadRequest, models.Fail[T](
		models.NewAPIError(models.ErrCodeInvalidRequest, message),
		models.Metadata{
			RequestID:       uuid.NewString(),
			Timestamp:       time.Now().UTC(),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Source:          models.MetaSourceAPI,
		},
	))
}

func statusFor(err *models.APIError) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Code {
	case models.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case models.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

func ptr[T any](v T) *T {
	return &v
}

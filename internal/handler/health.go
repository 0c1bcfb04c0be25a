package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/milesvalue/internal/models"
	"github.com/dharmasatrya/milesvalue/internal/providers"
)

const defaultHealthTimeout = 5 * time.Second

type ProviderHealthHandler struct {
	providers []providers.Provider
	timeout   time.Duration
}

func NewProviderHealthHandler(providerList []providers.Provider, timeout time.Duration) *ProviderHealthHandler {
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	return &ProviderHealthHandler{providers: providerList, timeout: timeout}
}

// Check probes every provider concurrently and reports statuses in
// provider order.
func (h *ProviderHealthHandler) Check(c echo.Context) error {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	statuses := make([]models.HealthStatus, len(h.providers))
	var wg sync.WaitGroup
	for i, p := range h.providers {
		wg.Add(1)
		go func(i int, p providers.Provider) {
			defer wg.Done()
			statuses[i] = p.HealthCheck(ctx)
		}(i, p)
	}
	wg.Wait()

	return c.JSON(http.StatusOK, models.Ok(statuses, models.Metadata{
		RequestID:       uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		ExecutionTimeMs: time.Since(startTime).Milliseconds(),
		Source:          models.MetaSourceAPI,
	}))
}

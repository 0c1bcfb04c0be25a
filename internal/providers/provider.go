package providers

import (
	"context"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

// Provider is one external flight-data source. Implementations never
// return a hard failure for an outage they can paper over with fallback
// data; a failed envelope is scoped to that provider only.
type Provider interface {
	Name() string
	Search(ctx context.Context, criteria models.SearchCriteria) models.Envelope[[]models.UnifiedOffer]
	HealthCheck(ctx context.Context) models.HealthStatus
}

type ProviderError struct {
	Provider string
	Code     models.ErrorCode
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, code models.ErrorCode, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Err:      err,
	}
}

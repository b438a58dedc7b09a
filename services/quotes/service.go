package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/services/bulkhead"
	"github.com/grocerlink/commerce-router/services/providers"
	"github.com/grocerlink/commerce-router/services/reliability"
)

// DefaultDeadline bounds a whole gather when no request deadline is configured
const DefaultDeadline = 10 * time.Second

// Service fans a cart out to every eligible provider in parallel and
// collects the quotes that survive. Provider failures are isolated: one
// provider's error never aborts its siblings, and the gather resolves once
// every attempt has settled or the request deadline expires.
type Service struct {
	registry *providers.Registry
	limiter  *bulkhead.Limiter
	deadline time.Duration
	logger   *zap.Logger
}

// GatherRequest is one cart to price across providers
type GatherRequest struct {
	Items       []models.CartItem
	Address     models.Address
	Preferences models.Preferences
}

// GatherResult carries the surviving quotes plus the classified error code
// of every provider that was attempted and failed.
type GatherResult struct {
	Quotes   []models.Quote
	Failures map[string]string
}

// quoteResult is one settled provider attempt
type quoteResult struct {
	providerID string
	quote      *models.Quote
	err        error
}

// NewService creates a quote aggregation service
func NewService(registry *providers.Registry, limiter *bulkhead.Limiter, deadline time.Duration, logger *zap.Logger) *Service {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Service{
		registry: registry,
		limiter:  limiter,
		deadline: deadline,
		logger:   logger,
	}
}

// Gather requests quotes from all eligible providers concurrently.
// Returns NO_PROVIDERS_AVAILABLE when zero quotes survive, with one error
// entry per attempted provider.
func (s *Service) Gather(ctx context.Context, req *GatherRequest) (*GatherResult, error) {
	eligible := s.registry.Eligible(req.Address.State, req.Preferences.ExcludeProviders)
	if len(eligible) == 0 {
		s.logger.Warn("quotes.no_eligible_providers",
			zap.String("region", req.Address.State),
			zap.Int("excluded", len(req.Preferences.ExcludeProviders)),
		)
		return nil, services.NewNoProvidersError(map[string]string{})
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	start := time.Now()
	results := make(chan quoteResult, len(eligible))
	var wg sync.WaitGroup

	for _, cfg := range eligible {
		wg.Add(1)
		go func(cfg models.ProviderConfig) {
			defer wg.Done()
			quote, err := s.fetchQuote(ctx, cfg, req)
			results <- quoteResult{providerID: cfg.ID, quote: quote, err: err}
		}(cfg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	quotes := make([]models.Quote, 0, len(eligible))
	failures := make(map[string]string)

	for r := range results {
		if r.err != nil {
			failures[r.providerID] = string(services.CodeOf(r.err))
			continue
		}
		if max := req.Preferences.MaxDeliveryMinutes; max > 0 && r.quote.EstimatedDeliveryMinutes > max {
			s.logger.Debug("quotes.delivery_window_rejected",
				zap.String("provider_id", r.providerID),
				zap.Int("estimated_minutes", r.quote.EstimatedDeliveryMinutes),
				zap.Int("max_minutes", max),
			)
			failures[r.providerID] = string(services.ErrCodeValidation)
			continue
		}
		quotes = append(quotes, *r.quote)
	}

	s.logger.Info("quotes.gather_settled",
		zap.Int("eligible", len(eligible)),
		zap.Int("succeeded", len(quotes)),
		zap.Int("failed", len(failures)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if len(quotes) == 0 {
		return nil, services.NewNoProvidersError(failures)
	}
	return &GatherResult{Quotes: quotes, Failures: failures}, nil
}

// fetchQuote performs one provider's quote call under its bulkhead slot and
// the reliability wrapper. Quote reads are idempotent, so the provider's
// configured retry budget applies (clamped to two).
func (s *Service) fetchQuote(ctx context.Context, cfg models.ProviderConfig, req *GatherRequest) (*models.Quote, error) {
	release, err := s.limiter.Acquire(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	adapter, err := s.registry.Adapter(cfg.ID)
	if err != nil {
		return nil, services.NewUnknownError("provider adapter missing", err)
	}

	quote, err := reliability.Call(ctx, s.logger, fmt.Sprintf("get_quote.%s", cfg.ID),
		func(ctx context.Context) (*models.Quote, error) {
			return adapter.GetQuote(ctx, req.Items, req.Address)
		},
		reliability.Options{
			Timeout:        time.Duration(cfg.TimeoutMs) * time.Millisecond,
			MaxRetries:     cfg.QuoteRetries(),
			RetryableCodes: reliability.DefaultRetryableCodes(),
		},
	)
	if err != nil {
		return nil, err
	}
	if quote.ProviderID == "" {
		quote.ProviderID = cfg.ID
	}
	return quote, nil
}

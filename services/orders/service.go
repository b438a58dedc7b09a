package orders

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services"
	"github.com/grocerlink/commerce-router/services/decisions"
	"github.com/grocerlink/commerce-router/services/events"
	"github.com/grocerlink/commerce-router/services/providers"
	"github.com/grocerlink/commerce-router/services/quotes"
	"github.com/grocerlink/commerce-router/services/reliability"
	"github.com/grocerlink/commerce-router/services/scoring"
)

// DefaultMaxAlternatives bounds how many ranked alternatives a decision carries
const DefaultMaxAlternatives = 2

// MetricsRecorder is the slice of the metrics layer the router depends on:
// outcome recording that never fails the order path, and the batch read
// that feeds scoring.
type MetricsRecorder interface {
	RecordOutcome(ctx context.Context, outcome *models.OrderOutcome)
	GetBatch(ctx context.Context, providerIDs []string) (map[string]*models.ProviderMetrics, error)
}

// Service runs the three order operations end to end: route (quote, score,
// decide), confirm (primary attempt, at most one failover) and cancel.
type Service struct {
	registry        *providers.Registry
	quotes          *quotes.Service
	scorer          *scoring.Service
	recorder        MetricsRecorder
	store           *decisions.Store
	tokens          *decisions.TokenIssuer
	events          *events.Service
	maxAlternatives int
	logger          *zap.Logger
}

// NewService wires the order routing pipeline
func NewService(
	registry *providers.Registry,
	quoteService *quotes.Service,
	scorer *scoring.Service,
	recorder MetricsRecorder,
	store *decisions.Store,
	tokens *decisions.TokenIssuer,
	eventService *events.Service,
	maxAlternatives int,
	logger *zap.Logger,
) *Service {
	if maxAlternatives < 0 {
		maxAlternatives = DefaultMaxAlternatives
	}
	return &Service{
		registry:        registry,
		quotes:          quoteService,
		scorer:          scorer,
		recorder:        recorder,
		store:           store,
		tokens:          tokens,
		events:          eventService,
		maxAlternatives: maxAlternatives,
		logger:          logger,
	}
}

// RouteOrder prices the cart across all eligible providers, ranks the
// surviving quotes and returns a decision holding the primary candidate,
// ranked alternatives and a single-use confirmation token.
func (s *Service) RouteOrder(ctx context.Context, req *RouteOrderRequest) (*models.RoutingDecision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	strategy := req.Preferences.StrategyOrDefault()
	start := time.Now()

	s.events.Emit(&events.Event{
		Name:      events.RouteOrderStart,
		RequestID: requestID,
		Fields: map[string]interface{}{
			"item_count": len(req.Items),
			"region":     req.Address.State,
			"strategy":   string(strategy),
		},
	})

	gather, err := s.quotes.Gather(ctx, &quotes.GatherRequest{
		Items:       req.Items,
		Address:     req.Address,
		Preferences: req.Preferences,
	})
	if err != nil {
		s.emitRouteFailure(requestID, start, err)
		return nil, err
	}

	candidateIDs := make([]string, 0, len(gather.Quotes))
	for _, q := range gather.Quotes {
		candidateIDs = append(candidateIDs, q.ProviderID)
	}

	history, err := s.recorder.GetBatch(ctx, candidateIDs)
	if err != nil {
		// score on neutral history rather than failing the route
		s.logger.Warn("orders.metrics_unavailable",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		history = map[string]*models.ProviderMetrics{}
	}

	scored := s.scorer.Score(gather.Quotes, strategy, history, s.configsFor(candidateIDs))
	s.emitScoringDecision(requestID, strategy, scored)

	primary := scored[0]
	altCount := len(scored) - 1
	if altCount > s.maxAlternatives {
		altCount = s.maxAlternatives
	}
	alternatives := make([]models.ScoredQuote, altCount)
	copy(alternatives, scored[1:1+altCount])

	now := time.Now()
	token, expiresAt, err := s.tokens.Issue(requestID, now)
	if err != nil {
		wrapped := services.NewUnknownError("could not issue confirmation token", err)
		s.emitRouteFailure(requestID, start, wrapped)
		return nil, wrapped
	}

	decision := &models.RoutingDecision{
		RequestID:         requestID,
		ConfirmationToken: token,
		Primary:           primary,
		Alternatives:      alternatives,
		Address:           req.Address,
		IssuedAt:          now,
		ExpiresAt:         expiresAt,
	}
	s.store.Put(decision)

	s.events.Emit(&events.Event{
		Name:       events.RouteOrderSuccess,
		RequestID:  requestID,
		ProviderID: primary.ProviderID,
		DurationMs: time.Since(start).Milliseconds(),
		Fields: map[string]interface{}{
			"strategy":       string(strategy),
			"total_cents":    primary.TotalCents,
			"weighted_total": primary.WeightedTotal,
			"alternatives":   len(alternatives),
			"quote_failures": len(gather.Failures),
		},
	})
	return decision, nil
}

// ConfirmOrder places the order with the decision's primary provider,
// failing over to the top alternative exactly once when the primary's
// failure is retryable. Attempts are strictly sequential; the primary must
// fully settle before the alternative is touched, and each attempted
// provider gets exactly one outcome row.
func (s *Service) ConfirmOrder(ctx context.Context, req *ConfirmOrderRequest) (*ConfirmOrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID, err := s.tokens.Parse(req.ConfirmationToken)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	decision, err := s.store.Consume(requestID, start)
	if err != nil {
		s.events.Emit(&events.Event{
			Name:      events.ConfirmOrderFailure,
			RequestID: requestID,
			Fields:    map[string]interface{}{"code": string(services.CodeOf(err))},
		})
		return nil, err
	}

	orderID := uuid.New().String()
	primary := decision.Primary

	s.events.Emit(&events.Event{
		Name:       events.ConfirmOrderStart,
		RequestID:  requestID,
		OrderID:    orderID,
		ProviderID: primary.ProviderID,
		Fields: map[string]interface{}{
			"alternatives": len(decision.Alternatives),
			"total_cents":  primary.TotalCents,
		},
	})

	confirmation, primaryErr := s.placeWith(ctx, orderID, decision, primary, req.PaymentMethod)
	if primaryErr == nil {
		s.recordSuccess(ctx, orderID, primary, "")
		s.attachOrder(requestID, orderID, primary.ProviderID, confirmation.ProviderOrderID)
		s.events.Emit(&events.Event{
			Name:       events.ConfirmOrderSuccess,
			RequestID:  requestID,
			OrderID:    orderID,
			ProviderID: primary.ProviderID,
			DurationMs: time.Since(start).Milliseconds(),
			Fields:     map[string]interface{}{"total_cents": primary.TotalCents},
		})
		return &ConfirmOrderResult{
			Success:                  true,
			Provider:                 primary.ProviderID,
			OrderID:                  orderID,
			ProviderOrderID:          confirmation.ProviderOrderID,
			EstimatedDeliveryMinutes: confirmation.EstimatedDeliveryMinutes,
			Message:                  "order confirmed",
		}, nil
	}

	primaryCode := string(services.CodeOf(primaryErr))
	s.recordFailure(ctx, orderID, primary, primaryCode, "")

	if !services.IsRetryable(primaryErr) || len(decision.Alternatives) == 0 {
		s.events.Emit(&events.Event{
			Name:       events.ConfirmOrderFailure,
			RequestID:  requestID,
			OrderID:    orderID,
			ProviderID: primary.ProviderID,
			DurationMs: time.Since(start).Milliseconds(),
			Fields: map[string]interface{}{
				"code":      primaryCode,
				"retryable": services.IsRetryable(primaryErr),
			},
		})
		return nil, primaryErr
	}

	// one failover, never a third attempt
	alternative := decision.Alternatives[0]
	s.events.Emit(&events.Event{
		Name:       events.FailoverAttempt,
		RequestID:  requestID,
		OrderID:    orderID,
		ProviderID: alternative.ProviderID,
		Fields: map[string]interface{}{
			"failover_from": primary.ProviderID,
			"primary_code":  primaryCode,
		},
	})

	confirmation, altErr := s.placeWith(ctx, orderID, decision, alternative, req.PaymentMethod)
	if altErr != nil {
		altCode := string(services.CodeOf(altErr))
		s.recordFailure(ctx, orderID, alternative, altCode, primary.ProviderID)
		s.events.Emit(&events.Event{
			Name:       events.FailoverFailure,
			RequestID:  requestID,
			OrderID:    orderID,
			ProviderID: alternative.ProviderID,
			Fields: map[string]interface{}{
				"failover_from": primary.ProviderID,
				"code":          altCode,
			},
		})
		s.events.Emit(&events.Event{
			Name:       events.ConfirmOrderFailure,
			RequestID:  requestID,
			OrderID:    orderID,
			ProviderID: alternative.ProviderID,
			DurationMs: time.Since(start).Milliseconds(),
			Fields: map[string]interface{}{
				"code":          altCode,
				"failover_from": primary.ProviderID,
			},
		})
		return nil, altErr
	}

	s.recordSuccess(ctx, orderID, alternative, primary.ProviderID)
	s.attachOrder(requestID, orderID, alternative.ProviderID, confirmation.ProviderOrderID)
	s.events.Emit(&events.Event{
		Name:       events.FailoverSuccess,
		RequestID:  requestID,
		OrderID:    orderID,
		ProviderID: alternative.ProviderID,
		Fields:     map[string]interface{}{"failover_from": primary.ProviderID},
	})
	s.events.Emit(&events.Event{
		Name:       events.ConfirmOrderSuccess,
		RequestID:  requestID,
		OrderID:    orderID,
		ProviderID: alternative.ProviderID,
		DurationMs: time.Since(start).Milliseconds(),
		Fields: map[string]interface{}{
			"total_cents":   alternative.TotalCents,
			"failover_from": primary.ProviderID,
		},
	})
	return &ConfirmOrderResult{
		Success:                  true,
		Provider:                 alternative.ProviderID,
		OrderID:                  orderID,
		ProviderOrderID:          confirmation.ProviderOrderID,
		FailoverFrom:             primary.ProviderID,
		EstimatedDeliveryMinutes: confirmation.EstimatedDeliveryMinutes,
		Message:                  "order confirmed after failover",
	}, nil
}

// CancelOrder releases a pending decision or cancels a confirmed order.
// Pending decisions are voided locally with no provider call. Confirmed
// orders are cancelled at the provider and recorded as a counter-only
// outcome. Expiry is judged by the decision store, so a confirmed order
// stays cancellable after its confirmation window closes.
func (s *Service) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID, err := s.tokens.ParseAllowExpired(req.ConfirmationToken)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snap, err := s.store.Get(requestID, start)
	if err != nil {
		return nil, err
	}

	s.events.Emit(&events.Event{
		Name:      events.CancelOrderStart,
		RequestID: requestID,
		Fields:    map[string]interface{}{"consumed": snap.Consumed},
	})

	if !snap.Consumed {
		if err := s.store.Release(requestID, start); err != nil {
			s.emitCancelFailure(requestID, "", "", start, err)
			return nil, err
		}
		s.events.Emit(&events.Event{
			Name:       events.CancelOrderSuccess,
			RequestID:  requestID,
			DurationMs: time.Since(start).Milliseconds(),
			Fields:     map[string]interface{}{"released": true},
		})
		return &CancelOrderResult{Success: true, Message: "routing decision released"}, nil
	}

	if snap.Order == nil {
		s.emitCancelFailure(requestID, "", "", start, services.ErrOrderNotConfirmed)
		return nil, services.ErrOrderNotConfirmed
	}
	order := snap.Order
	if order.CancelledAt != nil {
		s.emitCancelFailure(requestID, order.OrderID, order.ProviderID, start, services.ErrOrderAlreadyCancelled)
		return nil, services.ErrOrderAlreadyCancelled
	}

	if err := s.cancelWithProvider(ctx, order); err != nil {
		s.emitCancelFailure(requestID, order.OrderID, order.ProviderID, start, err)
		return nil, err
	}

	if err := s.store.MarkCancelled(requestID, time.Now()); err != nil {
		s.emitCancelFailure(requestID, order.OrderID, order.ProviderID, start, err)
		return nil, err
	}

	s.recorder.RecordOutcome(ctx, models.NewOrderOutcome(order.OrderID, order.ProviderID, models.OutcomeCancelled, 0, 0))

	s.events.Emit(&events.Event{
		Name:       events.CancelOrderSuccess,
		RequestID:  requestID,
		OrderID:    order.OrderID,
		ProviderID: order.ProviderID,
		DurationMs: time.Since(start).Milliseconds(),
		Fields:     map[string]interface{}{"released": false},
	})
	return &CancelOrderResult{Success: true, Message: "order cancelled"}, nil
}

// placeWith runs a single confirmation attempt against one provider. Order
// placement is a write, so the wrapper gets no retry budget; the classified
// error drives the caller's failover choice instead.
func (s *Service) placeWith(ctx context.Context, orderID string, decision *models.RoutingDecision, candidate models.ScoredQuote, paymentMethod string) (*providers.Confirmation, error) {
	adapter, err := s.registry.Adapter(candidate.ProviderID)
	if err != nil {
		return nil, services.NewUnknownError("provider adapter missing", err)
	}
	cfg, err := s.registry.Config(candidate.ProviderID)
	if err != nil {
		return nil, services.NewUnknownError("provider config missing", err)
	}

	return reliability.Call(ctx, s.logger, fmt.Sprintf("confirm_order.%s", candidate.ProviderID),
		func(ctx context.Context) (*providers.Confirmation, error) {
			return adapter.ConfirmOrder(ctx, &providers.ConfirmRequest{
				OrderID:      orderID,
				Items:        candidate.Items,
				Address:      decision.Address,
				PaymentToken: paymentMethod,
				TotalCents:   candidate.TotalCents,
			})
		},
		reliability.Options{
			Timeout:    time.Duration(cfg.TimeoutMs) * time.Millisecond,
			MaxRetries: 0,
		},
	)
}

// cancelWithProvider revokes the order at the provider, one attempt only
func (s *Service) cancelWithProvider(ctx context.Context, order *decisions.ConfirmedOrder) error {
	adapter, err := s.registry.Adapter(order.ProviderID)
	if err != nil {
		return services.NewUnknownError("provider adapter missing", err)
	}
	cfg, err := s.registry.Config(order.ProviderID)
	if err != nil {
		return services.NewUnknownError("provider config missing", err)
	}

	_, err = reliability.Call(ctx, s.logger, fmt.Sprintf("cancel_order.%s", order.ProviderID),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, adapter.CancelOrder(ctx, order.ProviderOrderID)
		},
		reliability.Options{
			Timeout:    time.Duration(cfg.TimeoutMs) * time.Millisecond,
			MaxRetries: 0,
		},
	)
	return err
}

// recordSuccess writes the success outcome row: order value plus the
// commission earned at the provider's configured rate.
func (s *Service) recordSuccess(ctx context.Context, orderID string, candidate models.ScoredQuote, failoverFrom string) {
	outcome := models.NewOrderOutcome(orderID, candidate.ProviderID, models.OutcomeSuccess, candidate.TotalCents, s.commissionCents(candidate))
	if failoverFrom != "" {
		outcome.SetFailoverFrom(failoverFrom)
	}
	s.recorder.RecordOutcome(ctx, outcome)
}

// recordFailure writes the failed outcome row; failed attempts carry no value
func (s *Service) recordFailure(ctx context.Context, orderID string, candidate models.ScoredQuote, code string, failoverFrom string) {
	outcome := models.NewOrderOutcome(orderID, candidate.ProviderID, models.OutcomeFailed, 0, 0)
	outcome.SetErrorCode(code)
	if failoverFrom != "" {
		outcome.SetFailoverFrom(failoverFrom)
	}
	s.recorder.RecordOutcome(ctx, outcome)
}

// commissionCents computes the platform commission for a confirmed order
func (s *Service) commissionCents(candidate models.ScoredQuote) int64 {
	cfg, err := s.registry.Config(candidate.ProviderID)
	if err != nil {
		return 0
	}
	return int64(math.Round(float64(candidate.TotalCents) * cfg.CommissionRate / 100))
}

// attachOrder links the confirmed order to its decision for later cancellation
func (s *Service) attachOrder(requestID, orderID, providerID, providerOrderID string) {
	err := s.store.AttachOrder(requestID, decisions.ConfirmedOrder{
		ProviderID:      providerID,
		OrderID:         orderID,
		ProviderOrderID: providerOrderID,
	})
	if err != nil {
		// entry evicted between consume and attach; a later cancel will miss it
		s.logger.Warn("orders.attach_order_failed",
			zap.String("request_id", requestID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (s *Service) configsFor(ids []string) map[string]models.ProviderConfig {
	configs := make(map[string]models.ProviderConfig, len(ids))
	for _, id := range ids {
		if cfg, err := s.registry.Config(id); err == nil {
			configs[id] = cfg
		}
	}
	return configs
}

func (s *Service) emitRouteFailure(requestID string, start time.Time, err error) {
	s.events.Emit(&events.Event{
		Name:       events.RouteOrderFailure,
		RequestID:  requestID,
		DurationMs: time.Since(start).Milliseconds(),
		Fields: map[string]interface{}{
			"code":      string(services.CodeOf(err)),
			"retryable": services.IsRetryable(err),
		},
	})
}

func (s *Service) emitCancelFailure(requestID, orderID, providerID string, start time.Time, err error) {
	s.events.Emit(&events.Event{
		Name:       events.CancelOrderFailure,
		RequestID:  requestID,
		OrderID:    orderID,
		ProviderID: providerID,
		DurationMs: time.Since(start).Milliseconds(),
		Fields:     map[string]interface{}{"code": string(services.CodeOf(err))},
	})
}

func (s *Service) emitScoringDecision(requestID string, strategy models.OptimizeStrategy, scored []models.ScoredQuote) {
	candidates := make([]map[string]interface{}, 0, len(scored))
	for _, sq := range scored {
		candidates = append(candidates, map[string]interface{}{
			"provider_id":        sq.ProviderID,
			"weighted_total":     sq.WeightedTotal,
			"price_score":        sq.PriceScore,
			"speed_score":        sq.SpeedScore,
			"availability_score": sq.AvailabilityScore,
			"margin_score":       sq.MarginScore,
			"reliability_score":  sq.ReliabilityScore,
		})
	}
	s.events.Emit(&events.Event{
		Name:       events.ScoringDecision,
		RequestID:  requestID,
		ProviderID: scored[0].ProviderID,
		Fields: map[string]interface{}{
			"strategy":   string(strategy),
			"candidates": candidates,
		},
	})
}

package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/repositories"
	"github.com/grocerlink/commerce-router/services/events"
)

// recordTimeout bounds each outcome write independently of the request context
const recordTimeout = 5 * time.Second

// Service maintains provider performance history. Writes are best-effort:
// an order that confirmed successfully must never look failed to the caller
// because a metrics write failed.
type Service struct {
	txManager repositories.TransactionManager
	metrics   repositories.MetricsRepository
	outcomes  repositories.OutcomeRepository
	events    *events.Service
	logger    *zap.Logger
}

// NewService creates a new metrics service
func NewService(
	txManager repositories.TransactionManager,
	metricsRepo repositories.MetricsRepository,
	outcomeRepo repositories.OutcomeRepository,
	eventService *events.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		txManager: txManager,
		metrics:   metricsRepo,
		outcomes:  outcomeRepo,
		events:    eventService,
		logger:    logger,
	}
}

// RecordOutcome persists one provider attempt: the append-only outcome row
// and the aggregate counter update commit in a single transaction. Failures
// are logged and swallowed. The write runs on a detached context so a caller
// whose request deadline already passed still gets its history recorded.
func (s *Service) RecordOutcome(ctx context.Context, outcome *models.OrderOutcome) {
	recordCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := s.txManager.InTransaction(recordCtx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := s.outcomes.Insert(txCtx, outcome); err != nil {
			return err
		}
		return s.metrics.Apply(txCtx, outcome)
	})

	fields := map[string]interface{}{
		"outcome":          string(outcome.Outcome),
		"gmv_cents":        outcome.GmvCents(),
		"commission_cents": outcome.CommissionContribution(),
		"persisted":        err == nil,
	}
	if outcome.FailoverFrom != nil {
		fields["failover_from"] = *outcome.FailoverFrom
	}
	if outcome.ErrorCode != nil {
		fields["error_code"] = *outcome.ErrorCode
	}

	if err != nil {
		s.logger.Error("failed to record order outcome",
			zap.Error(err),
			zap.String("order_id", outcome.OrderID),
			zap.String("provider_id", outcome.ProviderID),
			zap.String("outcome", string(outcome.Outcome)))
	}

	s.events.Emit(&events.Event{
		Name:       events.RecordOutcome,
		OrderID:    outcome.OrderID,
		ProviderID: outcome.ProviderID,
		Fields:     fields,
	})
}

// GetBatch returns the stored aggregates for the given providers. Providers
// without history are absent from the map; callers treat them as neutral.
func (s *Service) GetBatch(ctx context.Context, providerIDs []string) (map[string]*models.ProviderMetrics, error) {
	return s.metrics.GetBatch(ctx, providerIDs)
}

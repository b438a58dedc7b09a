package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/repositories"
)

// MetricsRepository implements the repositories.MetricsRepository interface
type MetricsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMetricsRepository creates a new provider metrics repository
func NewMetricsRepository(db *DB, logger *zap.Logger) repositories.MetricsRepository {
	return &MetricsRepository{
		db:     db,
		logger: logger,
	}
}

// Apply folds one order outcome into the provider's aggregate row. The
// whole update, including the derived success_rate and avg_margin_rate, is
// one atomic INSERT ... ON CONFLICT statement so concurrent writers never
// observe or produce torn counters.
func (r *MetricsRepository) Apply(ctx context.Context, outcome *models.OrderOutcome) error {
	query := `
		INSERT INTO provider_metrics (
			provider_id, total_orders, successful_orders, failed_orders, cancelled_orders,
			total_gmv_cents, total_commission_cents, success_rate, avg_margin_rate, last_order_at
		) VALUES (
			$1, 1, $2, $3, $4, $5, $6,
			$2::double precision * 100,
			CASE WHEN $5 > 0 THEN $6::double precision / $5::double precision * 100 END,
			$7
		)
		ON CONFLICT (provider_id) DO UPDATE SET
			total_orders           = provider_metrics.total_orders + 1,
			successful_orders      = provider_metrics.successful_orders + EXCLUDED.successful_orders,
			failed_orders          = provider_metrics.failed_orders + EXCLUDED.failed_orders,
			cancelled_orders       = provider_metrics.cancelled_orders + EXCLUDED.cancelled_orders,
			total_gmv_cents        = provider_metrics.total_gmv_cents + EXCLUDED.total_gmv_cents,
			total_commission_cents = provider_metrics.total_commission_cents + EXCLUDED.total_commission_cents,
			success_rate           = (provider_metrics.successful_orders + EXCLUDED.successful_orders)::double precision
			                           / (provider_metrics.total_orders + 1)::double precision * 100,
			avg_margin_rate        = CASE WHEN provider_metrics.total_gmv_cents + EXCLUDED.total_gmv_cents > 0
			                           THEN (provider_metrics.total_commission_cents + EXCLUDED.total_commission_cents)::double precision
			                                / (provider_metrics.total_gmv_cents + EXCLUDED.total_gmv_cents)::double precision * 100
			                           END,
			last_order_at          = EXCLUDED.last_order_at
	`

	var successInc, failedInc, cancelledInc int64
	switch outcome.Outcome {
	case models.OutcomeSuccess:
		successInc = 1
	case models.OutcomeFailed:
		failedInc = 1
	case models.OutcomeCancelled:
		cancelledInc = 1
	default:
		return fmt.Errorf("unknown outcome status: %s", outcome.Outcome)
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		outcome.ProviderID,
		successInc,
		failedInc,
		cancelledInc,
		outcome.GmvCents(),
		outcome.CommissionContribution(),
		outcome.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to apply outcome to provider metrics: %w", err)
	}

	r.logger.Debug("provider metrics updated",
		zap.String("provider_id", outcome.ProviderID),
		zap.String("outcome", string(outcome.Outcome)))
	return nil
}

// GetByProviderID retrieves the aggregate row for one provider
func (r *MetricsRepository) GetByProviderID(ctx context.Context, providerID string) (*models.ProviderMetrics, error) {
	query := `
		SELECT provider_id, total_orders, successful_orders, failed_orders, cancelled_orders,
		       total_gmv_cents, total_commission_cents, success_rate, avg_margin_rate, last_order_at
		FROM provider_metrics
		WHERE provider_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	metrics := &models.ProviderMetrics{}

	err := executor.QueryRowContext(ctx, query, providerID).Scan(
		&metrics.ProviderID,
		&metrics.TotalOrders,
		&metrics.SuccessfulOrders,
		&metrics.FailedOrders,
		&metrics.CancelledOrders,
		&metrics.TotalGmvCents,
		&metrics.TotalCommissionCents,
		&metrics.SuccessRate,
		&metrics.AvgMarginRate,
		&metrics.LastOrderAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("provider metrics not found: %s", providerID)
		}
		return nil, fmt.Errorf("failed to get provider metrics: %w", err)
	}

	return metrics, nil
}

// GetBatch retrieves aggregate rows for the given providers in one query.
// Providers with no history are absent from the result map.
func (r *MetricsRepository) GetBatch(ctx context.Context, providerIDs []string) (map[string]*models.ProviderMetrics, error) {
	result := make(map[string]*models.ProviderMetrics, len(providerIDs))
	if len(providerIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT provider_id, total_orders, successful_orders, failed_orders, cancelled_orders,
		       total_gmv_cents, total_commission_cents, success_rate, avg_margin_rate, last_order_at
		FROM provider_metrics
		WHERE provider_id = ANY($1)
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pq.Array(providerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query provider metrics batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		metrics := &models.ProviderMetrics{}
		err := rows.Scan(
			&metrics.ProviderID,
			&metrics.TotalOrders,
			&metrics.SuccessfulOrders,
			&metrics.FailedOrders,
			&metrics.CancelledOrders,
			&metrics.TotalGmvCents,
			&metrics.TotalCommissionCents,
			&metrics.SuccessRate,
			&metrics.AvgMarginRate,
			&metrics.LastOrderAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider metrics: %w", err)
		}
		result[metrics.ProviderID] = metrics
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider metrics rows: %w", err)
	}

	return result, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *MetricsRepository) WithTx(tx repositories.Transaction) repositories.MetricsRepository {
	return &MetricsRepository{
		db:     r.db,
		logger: r.logger,
	}
}

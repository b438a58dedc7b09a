package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/repositories"
)

// OutcomeRepository implements the repositories.OutcomeRepository interface
type OutcomeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOutcomeRepository creates a new order outcome repository
func NewOutcomeRepository(db *DB, logger *zap.Logger) repositories.OutcomeRepository {
	return &OutcomeRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new outcome row. The ledger is append-only; there is no
// update path.
func (r *OutcomeRepository) Insert(ctx context.Context, outcome *models.OrderOutcome) error {
	query := `
		INSERT INTO order_outcomes (
			id, order_id, provider_id, outcome, total_value_cents,
			commission_cents, failover_from, error_code, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		outcome.ID,
		outcome.OrderID,
		outcome.ProviderID,
		outcome.Outcome,
		outcome.TotalValueCents,
		outcome.CommissionCents,
		outcome.FailoverFrom,
		outcome.ErrorCode,
		outcome.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert order outcome: %w", err)
	}

	r.logger.Debug("order outcome inserted",
		zap.String("id", outcome.ID.String()),
		zap.String("order_id", outcome.OrderID),
		zap.String("outcome", string(outcome.Outcome)))
	return nil
}

// GetByID retrieves an outcome by ID
func (r *OutcomeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderOutcome, error) {
	query := `
		SELECT id, order_id, provider_id, outcome, total_value_cents,
		       commission_cents, failover_from, error_code, created_at
		FROM order_outcomes
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	outcome := &models.OrderOutcome{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&outcome.ID,
		&outcome.OrderID,
		&outcome.ProviderID,
		&outcome.Outcome,
		&outcome.TotalValueCents,
		&outcome.CommissionCents,
		&outcome.FailoverFrom,
		&outcome.ErrorCode,
		&outcome.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("order outcome not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get order outcome: %w", err)
	}

	return outcome, nil
}

// GetByOrderID retrieves all outcomes recorded for an order, oldest first,
// so the primary attempt precedes any failover attempt.
func (r *OutcomeRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.OrderOutcome, error) {
	query := `
		SELECT id, order_id, provider_id, outcome, total_value_cents,
		       commission_cents, failover_from, error_code, created_at
		FROM order_outcomes
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	return r.queryOutcomes(ctx, query, orderID)
}

// GetByProviderID retrieves recent outcomes for a provider with pagination
func (r *OutcomeRepository) GetByProviderID(ctx context.Context, providerID string, limit, offset int) ([]*models.OrderOutcome, error) {
	query := `
		SELECT id, order_id, provider_id, outcome, total_value_cents,
		       commission_cents, failover_from, error_code, created_at
		FROM order_outcomes
		WHERE provider_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryOutcomes(ctx, query, providerID, limit, offset)
}

// WithTx returns a new repository instance bound to the transaction
func (r *OutcomeRepository) WithTx(tx repositories.Transaction) repositories.OutcomeRepository {
	return &OutcomeRepository{
		db:     r.db,
		logger: r.logger,
	}
}

// queryOutcomes is a helper method to query multiple outcome rows
func (r *OutcomeRepository) queryOutcomes(ctx context.Context, query string, args ...interface{}) ([]*models.OrderOutcome, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.OrderOutcome
	for rows.Next() {
		outcome := &models.OrderOutcome{}
		err := rows.Scan(
			&outcome.ID,
			&outcome.OrderID,
			&outcome.ProviderID,
			&outcome.Outcome,
			&outcome.TotalValueCents,
			&outcome.CommissionCents,
			&outcome.FailoverFrom,
			&outcome.ErrorCode,
			&outcome.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order outcome rows: %w", err)
	}

	return outcomes, nil
}

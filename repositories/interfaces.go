package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/grocerlink/commerce-router/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// MetricsRepository handles provider performance counters
type MetricsRepository interface {
	// Apply folds one order outcome into the provider's aggregate row.
	// The counters and the derived rates update in a single atomic statement.
	Apply(ctx context.Context, outcome *models.OrderOutcome) error

	// GetByProviderID retrieves the aggregate row for one provider
	GetByProviderID(ctx context.Context, providerID string) (*models.ProviderMetrics, error)

	// GetBatch retrieves aggregate rows for the given providers in one query.
	// Providers with no history are simply absent from the result map.
	GetBatch(ctx context.Context, providerIDs []string) (map[string]*models.ProviderMetrics, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) MetricsRepository
}

// OutcomeRepository handles the append-only order outcome ledger
type OutcomeRepository interface {
	// Insert appends a new outcome row
	Insert(ctx context.Context, outcome *models.OrderOutcome) error

	// GetByID retrieves an outcome by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderOutcome, error)

	// GetByOrderID retrieves all outcomes recorded for an order, oldest first
	GetByOrderID(ctx context.Context, orderID string) ([]*models.OrderOutcome, error)

	// GetByProviderID retrieves recent outcomes for a provider with pagination
	GetByProviderID(ctx context.Context, providerID string, limit, offset int) ([]*models.OrderOutcome, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) OutcomeRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Metrics  MetricsRepository
	Outcomes OutcomeRepository
}

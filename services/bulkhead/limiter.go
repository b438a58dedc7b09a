package bulkhead

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/services"
)

// DefaultLimit is the per-provider in-flight cap when none is configured
const DefaultLimit = 4

// Limiter caps concurrent in-flight calls per provider across requests.
// One saturated or slow provider queues against its own slots only and
// never starves calls to its siblings.
type Limiter struct {
	logger *zap.Logger
	limit  int

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLimiter creates a limiter allowing `limit` concurrent calls per provider
func NewLimiter(limit int, logger *zap.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{
		logger: logger,
		limit:  limit,
		slots:  make(map[string]chan struct{}),
	}
}

// Acquire claims an in-flight slot for the provider, blocking until one
// frees up or ctx is done. The returned release function must be called
// exactly once when the provider call settles.
func (l *Limiter) Acquire(ctx context.Context, providerID string) (func(), error) {
	slot := l.slotFor(providerID)

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		l.logger.Warn("bulkhead.saturated",
			zap.String("provider_id", providerID),
			zap.Int("limit", l.limit),
		)
		return nil, services.NewTimeoutError("provider is at capacity", ctx.Err())
	}
}

// InFlight reports the number of currently held slots for the provider
func (l *Limiter) InFlight(providerID string) int {
	return len(l.slotFor(providerID))
}

// Limit returns the per-provider cap
func (l *Limiter) Limit() int {
	return l.limit
}

func (l *Limiter) slotFor(providerID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[providerID]
	if !ok {
		slot = make(chan struct{}, l.limit)
		l.slots[providerID] = slot
	}
	return slot
}

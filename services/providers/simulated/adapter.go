package simulated

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services/providers"
)

// Adapter is a deterministic in-process vendor used by development
// configurations and tests. Prices, availability and delivery estimates are
// derived from stable hashes of the provider ID and item names, so the same
// cart always produces the same quote for the same provider.
type Adapter struct {
	id   string
	opts Options

	mu     sync.Mutex
	seq    int
	orders map[string]*placedOrder
}

// Options tune the simulated vendor's behavior
type Options struct {
	// FeeCents is the flat delivery fee added to every quote
	FeeCents int64

	// TaxRate is the sales tax percentage applied to the subtotal
	TaxRate float64

	// BaseDeliveryMinutes anchors the delivery estimate before per-provider variation
	BaseDeliveryMinutes int

	// Latency is simulated upstream work per call; honors ctx cancellation
	Latency time.Duration

	// QuoteErr, ConfirmErr and CancelErr script failures for tests
	QuoteErr   error
	ConfirmErr error
	CancelErr  error
}

type placedOrder struct {
	confirmedAt time.Time
	cancelled   bool
	totalCents  int64
}

// DefaultOptions returns the options used by development configs
func DefaultOptions() Options {
	return Options{
		FeeCents:            499,
		TaxRate:             8.25,
		BaseDeliveryMinutes: 45,
	}
}

// New creates a simulated vendor adapter for the given provider ID
func New(id string, opts Options) *Adapter {
	return &Adapter{
		id:     id,
		opts:   opts,
		orders: make(map[string]*placedOrder),
	}
}

// ID returns the provider ID the adapter serves
func (a *Adapter) ID() string {
	return a.id
}

// GetQuote prices the cart deterministically
func (a *Adapter) GetQuote(ctx context.Context, items []models.CartItem, address models.Address) (*models.Quote, error) {
	if err := a.simulateWork(ctx); err != nil {
		return nil, err
	}
	if a.opts.QuoteErr != nil {
		return nil, a.opts.QuoteErr
	}
	if len(items) == 0 {
		return nil, providers.NewProviderError(a.id, "EMPTY_CART", "cart has no items", 400, false, nil)
	}

	factor := priceFactor(a.id)
	var subtotal int64
	availability := make([]models.ItemAvailability, 0, len(items))

	for _, item := range items {
		status := a.availabilityFor(item.Name)
		ia := models.ItemAvailability{ItemName: item.Name, Status: status}
		if status == models.AvailabilitySubstituted {
			ia.SubstitutedWith = item.Name + " (store brand)"
		}
		availability = append(availability, ia)

		if status == models.AvailabilityUnavailable {
			continue
		}
		line := int64(item.Quantity) * item.UnitPriceCents
		subtotal += int64(float64(line) * factor)
	}

	tax := int64(float64(subtotal) * a.opts.TaxRate / 100)
	quote := &models.Quote{
		ProviderID:               a.id,
		Items:                    items,
		SubtotalCents:            subtotal,
		FeesCents:                a.opts.FeeCents,
		TaxCents:                 tax,
		TotalCents:               subtotal + a.opts.FeeCents + tax,
		EstimatedDeliveryMinutes: a.deliveryMinutes(),
		ItemAvailability:         availability,
	}
	return quote, nil
}

// ConfirmOrder places the order and issues a provider order reference
func (a *Adapter) ConfirmOrder(ctx context.Context, req *providers.ConfirmRequest) (*providers.Confirmation, error) {
	if err := a.simulateWork(ctx); err != nil {
		return nil, err
	}
	if a.opts.ConfirmErr != nil {
		return nil, a.opts.ConfirmErr
	}
	if req.PaymentToken == "" {
		return nil, providers.NewProviderError(a.id, "PAYMENT_DECLINED", "payment method was declined", 402, false, nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	ref := fmt.Sprintf("%s-%06d", a.id, a.seq)
	a.orders[ref] = &placedOrder{confirmedAt: time.Now(), totalCents: req.TotalCents}

	return &providers.Confirmation{
		ProviderOrderID:          ref,
		Status:                   "confirmed",
		EstimatedDeliveryMinutes: a.deliveryMinutes(),
	}, nil
}

// CancelOrder cancels a previously confirmed order
func (a *Adapter) CancelOrder(ctx context.Context, providerOrderID string) error {
	if err := a.simulateWork(ctx); err != nil {
		return err
	}
	if a.opts.CancelErr != nil {
		return a.opts.CancelErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	order, ok := a.orders[providerOrderID]
	if !ok {
		return providers.NewProviderError(a.id, "ORDER_NOT_FOUND", "unknown order reference", 404, false, nil)
	}
	if order.cancelled {
		return providers.NewProviderError(a.id, "ALREADY_CANCELLED", "order already cancelled", 409, false, nil)
	}
	order.cancelled = true
	return nil
}

// simulateWork sleeps for the configured latency, honoring cancellation
func (a *Adapter) simulateWork(ctx context.Context) error {
	if a.opts.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(a.opts.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliveryMinutes derives a stable per-provider delivery estimate
func (a *Adapter) deliveryMinutes() int {
	base := a.opts.BaseDeliveryMinutes
	if base <= 0 {
		base = 45
	}
	return base + int(stableHash(a.id)%31)
}

// availabilityFor maps an item name to a stable availability status.
// Roughly 86% found, 10% substituted, 4% unavailable.
func (a *Adapter) availabilityFor(itemName string) models.AvailabilityStatus {
	h := stableHash(a.id + "/" + itemName) % 100
	switch {
	case h < 86:
		return models.AvailabilityFound
	case h < 96:
		return models.AvailabilitySubstituted
	default:
		return models.AvailabilityUnavailable
	}
}

// priceFactor spreads providers across a 0.95x-1.10x price band
func priceFactor(id string) float64 {
	return 0.95 + float64(stableHash(id)%16)/100
}

func stableHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus classifies how a provider attempt for an order ended
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// OrderOutcome is one append-only log entry: one row per provider actually
// attempted for an order. FailoverFrom is set on at most one row per order,
// and only on the second (alternative) attempt.
type OrderOutcome struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	OrderID         string        `json:"order_id" db:"order_id"`
	ProviderID      string        `json:"provider_id" db:"provider_id"`
	Outcome         OutcomeStatus `json:"outcome" db:"outcome"`
	TotalValueCents int64         `json:"total_value_cents" db:"total_value_cents"`
	CommissionCents int64         `json:"commission_cents" db:"commission_cents"`
	FailoverFrom    *string       `json:"failover_from,omitempty" db:"failover_from"`
	ErrorCode       *string       `json:"error_code,omitempty" db:"error_code"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the OrderOutcome model
func (OrderOutcome) TableName() string {
	return "order_outcomes"
}

// NewOrderOutcome creates an outcome entry for one provider attempt
func NewOrderOutcome(orderID, providerID string, outcome OutcomeStatus, totalValueCents, commissionCents int64) *OrderOutcome {
	return &OrderOutcome{
		ID:              uuid.New(),
		OrderID:         orderID,
		ProviderID:      providerID,
		Outcome:         outcome,
		TotalValueCents: totalValueCents,
		CommissionCents: commissionCents,
		CreatedAt:       time.Now(),
	}
}

// SetFailoverFrom marks this attempt as the one-time failover away from a failed primary
func (oo *OrderOutcome) SetFailoverFrom(providerID string) {
	oo.FailoverFrom = &providerID
}

// SetErrorCode records the classified error that ended a failed attempt
func (oo *OrderOutcome) SetErrorCode(code string) {
	oo.ErrorCode = &code
}

// GmvCents returns the GMV contribution of this outcome. Only completed
// orders move the provider's GMV and commission aggregates.
func (oo *OrderOutcome) GmvCents() int64 {
	if oo.Outcome == OutcomeSuccess {
		return oo.TotalValueCents
	}
	return 0
}

// CommissionContribution returns the commission contribution of this outcome
func (oo *OrderOutcome) CommissionContribution() int64 {
	if oo.Outcome == OutcomeSuccess {
		return oo.CommissionCents
	}
	return 0
}

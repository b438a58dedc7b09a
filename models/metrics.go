package models

import "time"

// ProviderMetrics is the persisted, continuously-updated performance
// aggregate for one provider. Rows are mutated only through the atomic
// upsert in the metrics repository; derived rates are null until the
// first qualifying order exists.
type ProviderMetrics struct {
	ProviderID           string    `json:"provider_id" db:"provider_id"`
	TotalOrders          int64     `json:"total_orders" db:"total_orders"`
	SuccessfulOrders     int64     `json:"successful_orders" db:"successful_orders"`
	FailedOrders         int64     `json:"failed_orders" db:"failed_orders"`
	CancelledOrders      int64     `json:"cancelled_orders" db:"cancelled_orders"`
	TotalGmvCents        int64     `json:"total_gmv_cents" db:"total_gmv_cents"`
	TotalCommissionCents int64     `json:"total_commission_cents" db:"total_commission_cents"`
	SuccessRate          *float64  `json:"success_rate,omitempty" db:"success_rate"`       // 0-100
	AvgMarginRate        *float64  `json:"avg_margin_rate,omitempty" db:"avg_margin_rate"` // 0-100
	LastOrderAt          time.Time `json:"last_order_at" db:"last_order_at"`
}

// TableName returns the table name for the ProviderMetrics model
func (ProviderMetrics) TableName() string {
	return "provider_metrics"
}

// HasHistory reports whether any order has ever been recorded for the provider
func (pm *ProviderMetrics) HasHistory() bool {
	return pm != nil && pm.TotalOrders > 0
}

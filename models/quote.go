package models

// CartItem is a single line item in a customer cart. All money is integer cents.
type CartItem struct {
	Name           string `json:"name" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0"`
}

// Address is a delivery address. Only State participates in provider
// eligibility; the full address is passed to adapters and never logged.
type Address struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required,len=2"`
	PostalCode string `json:"postal_code" validate:"required"`
}

// AvailabilityStatus classifies how a provider can fill one cart item
type AvailabilityStatus string

const (
	AvailabilityFound       AvailabilityStatus = "found"
	AvailabilitySubstituted AvailabilityStatus = "substituted"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// ItemAvailability reports a provider's stock answer for one cart item
type ItemAvailability struct {
	ItemName        string             `json:"item_name"`
	Status          AvailabilityStatus `json:"status"`
	SubstitutedWith string             `json:"substituted_with,omitempty"`
}

// Quote is a provider's priced, availability-annotated answer to a cart.
// Quotes live only for the duration of a routing request.
type Quote struct {
	ProviderID               string             `json:"provider_id"`
	Items                    []CartItem         `json:"items"`
	SubtotalCents            int64              `json:"subtotal_cents"`
	FeesCents                int64              `json:"fees_cents"`
	TaxCents                 int64              `json:"tax_cents"`
	TotalCents               int64              `json:"total_cents"`
	EstimatedDeliveryMinutes int                `json:"estimated_delivery_minutes"`
	ItemAvailability         []ItemAvailability `json:"item_availability"`
}

// AvailabilityCounts returns how many items were found, substituted and unavailable
func (q *Quote) AvailabilityCounts() (found, substituted, unavailable int) {
	for _, ia := range q.ItemAvailability {
		switch ia.Status {
		case AvailabilityFound:
			found++
		case AvailabilitySubstituted:
			substituted++
		case AvailabilityUnavailable:
			unavailable++
		}
	}
	return found, substituted, unavailable
}

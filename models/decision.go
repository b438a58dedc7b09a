package models

import "time"

// ScoredQuote is a Quote plus its five normalized component scores and
// the strategy-weighted total, each on a 0-100 scale.
type ScoredQuote struct {
	Quote
	PriceScore        float64 `json:"price_score"`
	SpeedScore        float64 `json:"speed_score"`
	AvailabilityScore float64 `json:"availability_score"`
	MarginScore       float64 `json:"margin_score"`
	ReliabilityScore  float64 `json:"reliability_score"`
	WeightedTotal     float64 `json:"weighted_total"`
}

// RoutingDecision is the outcome of a route request: the selected primary
// provider, ranked alternatives and a single-use confirmation token.
// Address is retained for the confirmation call and never serialized.
type RoutingDecision struct {
	RequestID         string        `json:"request_id"`
	ConfirmationToken string        `json:"confirmation_token"`
	Primary           ScoredQuote   `json:"primary"`
	Alternatives      []ScoredQuote `json:"alternatives"`
	Address           Address       `json:"-"`
	IssuedAt          time.Time     `json:"issued_at"`
	ExpiresAt         time.Time     `json:"expires_at"`
}

// Expired reports whether the decision can no longer be confirmed
func (rd *RoutingDecision) Expired(now time.Time) bool {
	return now.After(rd.ExpiresAt)
}

// CandidateIDs returns the provider IDs of the primary and all alternatives, in rank order
func (rd *RoutingDecision) CandidateIDs() []string {
	ids := make([]string, 0, len(rd.Alternatives)+1)
	ids = append(ids, rd.Primary.ProviderID)
	for _, alt := range rd.Alternatives {
		ids = append(ids, alt.ProviderID)
	}
	return ids
}

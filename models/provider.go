package models

// RegionWildcard marks a provider as serving every region
const RegionWildcard = "*"

// ProviderConfig describes one fulfillment provider integration.
// Loaded once from the provider catalog at process start; immutable after.
type ProviderConfig struct {
	ID             string   `json:"id" yaml:"id"`
	DisplayName    string   `json:"display_name" yaml:"display_name"`
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Priority       int      `json:"priority" yaml:"priority"`
	CommissionRate float64  `json:"commission_rate" yaml:"commission_rate"` // percent, e.g. 12.5
	Regions        []string `json:"regions" yaml:"regions"`                 // state codes or "*"
	TimeoutMs      int      `json:"timeout_ms" yaml:"timeout_ms"`
	MaxRetries     int      `json:"max_retries" yaml:"max_retries"`
}

// ServesRegion reports whether the provider delivers to the given region code
func (pc ProviderConfig) ServesRegion(region string) bool {
	for _, r := range pc.Regions {
		if r == RegionWildcard || r == region {
			return true
		}
	}
	return false
}

// QuoteRetries returns the retry budget for idempotent quote reads, clamped to [0,2]
func (pc ProviderConfig) QuoteRetries() int {
	if pc.MaxRetries < 0 {
		return 0
	}
	if pc.MaxRetries > 2 {
		return 2
	}
	return pc.MaxRetries
}

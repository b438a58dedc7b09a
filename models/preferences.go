package models

// OptimizeStrategy selects the scoring weight vector for a routing request
type OptimizeStrategy string

const (
	OptimizePrice    OptimizeStrategy = "price"
	OptimizeSpeed    OptimizeStrategy = "speed"
	OptimizeMargin   OptimizeStrategy = "margin"
	OptimizeBalanced OptimizeStrategy = "balanced"
)

// Strategies lists every supported optimize strategy
func Strategies() []OptimizeStrategy {
	return []OptimizeStrategy{OptimizePrice, OptimizeSpeed, OptimizeMargin, OptimizeBalanced}
}

// Valid reports whether the strategy is one of the supported values
func (s OptimizeStrategy) Valid() bool {
	switch s {
	case OptimizePrice, OptimizeSpeed, OptimizeMargin, OptimizeBalanced:
		return true
	}
	return false
}

// Preferences steer provider selection for a single routing request
type Preferences struct {
	Optimize           OptimizeStrategy `json:"optimize" validate:"omitempty,oneof=price speed margin balanced"`
	ExcludeProviders   []string         `json:"exclude_providers,omitempty"`
	MaxDeliveryMinutes int              `json:"max_delivery_minutes,omitempty" validate:"gte=0"`
}

// StrategyOrDefault returns the requested strategy, defaulting to balanced
func (p Preferences) StrategyOrDefault() OptimizeStrategy {
	if p.Optimize.Valid() {
		return p.Optimize
	}
	return OptimizeBalanced
}

package models

import (
	"fmt"
	"math"
)

// WeightSumEpsilon is the tolerance for validating that a weight vector sums to 1.0
const WeightSumEpsilon = 1e-6

// ScoringWeights is the weight vector applied to the five component scores
// for one optimize strategy. Weights must be non-negative and sum to 1.0.
type ScoringWeights struct {
	Price        float64 `json:"price" yaml:"price"`
	Speed        float64 `json:"speed" yaml:"speed"`
	Availability float64 `json:"availability" yaml:"availability"`
	Margin       float64 `json:"margin" yaml:"margin"`
	Reliability  float64 `json:"reliability" yaml:"reliability"`
}

// Sum returns the total of all five weights
func (w ScoringWeights) Sum() float64 {
	return w.Price + w.Speed + w.Availability + w.Margin + w.Reliability
}

// Validate fails when any weight is negative or the vector does not sum to 1.0
func (w ScoringWeights) Validate() error {
	for name, v := range map[string]float64{
		"price": w.Price, "speed": w.Speed, "availability": w.Availability,
		"margin": w.Margin, "reliability": w.Reliability,
	} {
		if v < 0 {
			return fmt.Errorf("weight %q is negative: %f", name, v)
		}
	}
	if diff := math.Abs(w.Sum() - 1.0); diff > WeightSumEpsilon {
		return fmt.Errorf("weights sum to %f, expected 1.0", w.Sum())
	}
	return nil
}

// DefaultScoringWeights returns the built-in weight vector per strategy,
// used when the catalog file does not override them.
func DefaultScoringWeights() map[OptimizeStrategy]ScoringWeights {
	return map[OptimizeStrategy]ScoringWeights{
		OptimizePrice:    {Price: 0.45, Speed: 0.15, Availability: 0.20, Margin: 0.05, Reliability: 0.15},
		OptimizeSpeed:    {Price: 0.15, Speed: 0.45, Availability: 0.20, Margin: 0.05, Reliability: 0.15},
		OptimizeMargin:   {Price: 0.10, Speed: 0.10, Availability: 0.20, Margin: 0.45, Reliability: 0.15},
		OptimizeBalanced: {Price: 0.30, Speed: 0.20, Availability: 0.20, Margin: 0.10, Reliability: 0.20},
	}
}

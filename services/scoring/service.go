package scoring

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/models"
)

const (
	// neutralScore is used when a provider has no usable history
	neutralScore = 50.0

	// shrinkageThreshold is the order count below which reliability scores
	// are blended toward neutral to damp small-sample swings
	shrinkageThreshold = 10

	// DefaultSubstitutionPenalty is deducted from availabilityScore per substituted item
	DefaultSubstitutionPenalty = 10.0
)

// Service turns surviving quotes into a deterministic ranking. Each quote
// receives five 0-100 component scores normalized among the current
// candidates, then a weighted total per the active optimize strategy.
type Service struct {
	weights             map[models.OptimizeStrategy]models.ScoringWeights
	substitutionPenalty float64
	logger              *zap.Logger
}

// NewService creates a scorer, failing fast on an invalid weight table
func NewService(weights map[models.OptimizeStrategy]models.ScoringWeights, substitutionPenalty float64, logger *zap.Logger) (*Service, error) {
	if len(weights) == 0 {
		weights = models.DefaultScoringWeights()
	}
	for _, strategy := range models.Strategies() {
		w, ok := weights[strategy]
		if !ok {
			return nil, fmt.Errorf("missing weight vector for strategy %q", strategy)
		}
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("invalid weights for strategy %q: %w", strategy, err)
		}
	}
	if substitutionPenalty < 0 {
		substitutionPenalty = DefaultSubstitutionPenalty
	}
	return &Service{
		weights:             weights,
		substitutionPenalty: substitutionPenalty,
		logger:              logger,
	}, nil
}

// Weights returns the weight vector for a strategy
func (s *Service) Weights(strategy models.OptimizeStrategy) models.ScoringWeights {
	return s.weights[strategy]
}

// Score computes component scores for every quote and returns them ranked:
// index 0 is the primary candidate. Ranking is fully deterministic; ties on
// weighted total break by reliability, then total price, then configured
// priority, then provider ID.
func (s *Service) Score(
	quotes []models.Quote,
	strategy models.OptimizeStrategy,
	metrics map[string]*models.ProviderMetrics,
	configs map[string]models.ProviderConfig,
) []models.ScoredQuote {
	if len(quotes) == 0 {
		return nil
	}
	weights := s.weights[strategy]

	priceMin, priceMax := int64Bounds(quotes, func(q models.Quote) int64 { return q.TotalCents })
	speedMin, speedMax := int64Bounds(quotes, func(q models.Quote) int64 { return int64(q.EstimatedDeliveryMinutes) })
	marginValues := make([]float64, len(quotes))
	for i, q := range quotes {
		marginValues[i] = s.marginInput(q.ProviderID, metrics, configs)
	}
	marginMin, marginMax := floatBounds(marginValues)

	scored := make([]models.ScoredQuote, 0, len(quotes))
	for i, q := range quotes {
		sq := models.ScoredQuote{Quote: q}
		sq.PriceScore = inverseNormalize(float64(q.TotalCents), float64(priceMin), float64(priceMax))
		sq.SpeedScore = inverseNormalize(float64(q.EstimatedDeliveryMinutes), float64(speedMin), float64(speedMax))
		sq.AvailabilityScore = s.availabilityScore(&q)
		sq.MarginScore = normalize(marginValues[i], marginMin, marginMax)
		sq.ReliabilityScore = s.reliabilityScore(metrics[q.ProviderID])
		sq.WeightedTotal = weights.Price*sq.PriceScore +
			weights.Speed*sq.SpeedScore +
			weights.Availability*sq.AvailabilityScore +
			weights.Margin*sq.MarginScore +
			weights.Reliability*sq.ReliabilityScore

		s.logger.Debug("scoring.candidate",
			zap.String("provider_id", q.ProviderID),
			zap.String("strategy", string(strategy)),
			zap.Float64("price_score", sq.PriceScore),
			zap.Float64("speed_score", sq.SpeedScore),
			zap.Float64("availability_score", sq.AvailabilityScore),
			zap.Float64("margin_score", sq.MarginScore),
			zap.Float64("reliability_score", sq.ReliabilityScore),
			zap.Float64("weighted_total", sq.WeightedTotal),
		)
		scored = append(scored, sq)
	}

	s.rank(scored, configs)
	return scored
}

// rank orders candidates best-first with a total, deterministic ordering
func (s *Service) rank(scored []models.ScoredQuote, configs map[string]models.ProviderConfig) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.WeightedTotal != b.WeightedTotal {
			return a.WeightedTotal > b.WeightedTotal
		}
		if a.ReliabilityScore != b.ReliabilityScore {
			return a.ReliabilityScore > b.ReliabilityScore
		}
		if a.TotalCents != b.TotalCents {
			return a.TotalCents < b.TotalCents
		}
		if pa, pb := configs[a.ProviderID].Priority, configs[b.ProviderID].Priority; pa != pb {
			return pa > pb
		}
		return a.ProviderID < b.ProviderID
	})
}

// availabilityScore is 100 * found/total with a penalty per substitution
func (s *Service) availabilityScore(q *models.Quote) float64 {
	total := len(q.ItemAvailability)
	if total == 0 {
		return 100
	}
	found, substituted, _ := q.AvailabilityCounts()
	score := 100*float64(found+substituted)/float64(total) - s.substitutionPenalty*float64(substituted)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// marginInput picks the provider's observed margin rate, falling back to
// the configured commission rate when no history exists.
func (s *Service) marginInput(providerID string, metrics map[string]*models.ProviderMetrics, configs map[string]models.ProviderConfig) float64 {
	if m := metrics[providerID]; m.HasHistory() && m.AvgMarginRate != nil {
		return *m.AvgMarginRate
	}
	return configs[providerID].CommissionRate
}

// reliabilityScore maps historical success rate onto 0-100. Providers with
// no history sit at neutral 50; providers with thin history are blended
// toward neutral so a few lucky orders cannot dominate established ones.
func (s *Service) reliabilityScore(m *models.ProviderMetrics) float64 {
	if !m.HasHistory() || m.SuccessRate == nil {
		return neutralScore
	}
	raw := mapSuccessRate(*m.SuccessRate)
	if m.TotalOrders < shrinkageThreshold {
		n := float64(m.TotalOrders)
		return raw*(n/shrinkageThreshold) + neutralScore*(1-n/shrinkageThreshold)
	}
	return raw
}

// mapSuccessRate converts a 0-100 success rate into the reliability bands:
// >=95 lands in 90-100, 85-95 in 70-90, 70-85 in 50-70, below 70 in 0-50.
func mapSuccessRate(rate float64) float64 {
	switch {
	case rate >= 95:
		return 90 + (rate-95)/5*10
	case rate >= 85:
		return 70 + (rate-85)/10*20
	case rate >= 70:
		return 50 + (rate-70)/15*20
	default:
		return rate / 70 * 50
	}
}

// inverseNormalize gives 100 to the minimum value and 0 to the maximum.
// A degenerate band (all candidates equal) scores 100.
func inverseNormalize(value, min, max float64) float64 {
	if max <= min {
		return 100
	}
	return 100 * (max - value) / (max - min)
}

// normalize gives 100 to the maximum value and 0 to the minimum
func normalize(value, min, max float64) float64 {
	if max <= min {
		return 100
	}
	return 100 * (value - min) / (max - min)
}

func int64Bounds(quotes []models.Quote, f func(models.Quote) int64) (int64, int64) {
	min, max := f(quotes[0]), f(quotes[0])
	for _, q := range quotes[1:] {
		v := f(q)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func floatBounds(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

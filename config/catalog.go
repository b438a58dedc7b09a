package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/grocerlink/commerce-router/models"
)

// Catalog is the provider catalog file: the static integration config for
// every fulfillment provider, plus optional scoring weight overrides.
// Loaded once at startup; the registry it populates is immutable after.
type Catalog struct {
	Providers []models.ProviderConfig                           `yaml:"providers"`
	Weights   map[models.OptimizeStrategy]models.ScoringWeights `yaml:"weights"`
}

// LoadCatalog reads and validates the provider catalog file
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog %s: %w", path, err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider catalog %s: %w", path, err)
	}

	return &catalog, nil
}

// Validate checks the catalog for structural problems. It fails fast at
// startup rather than surfacing a broken provider mid-request.
func (c *Catalog) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("provider catalog is empty")
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider at index %d has no id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true

		if p.Enabled && len(p.Regions) == 0 {
			return fmt.Errorf("provider %q is enabled but serves no regions", p.ID)
		}
		if p.CommissionRate < 0 || p.CommissionRate > 100 {
			return fmt.Errorf("provider %q commission rate %f out of range [0,100]", p.ID, p.CommissionRate)
		}
		if p.TimeoutMs < 0 {
			return fmt.Errorf("provider %q has negative timeout", p.ID)
		}
	}

	for strategy, weights := range c.Weights {
		if !strategy.Valid() {
			return fmt.Errorf("unknown optimize strategy %q in weights", strategy)
		}
		if err := weights.Validate(); err != nil {
			return fmt.Errorf("weights for strategy %q: %w", strategy, err)
		}
	}

	return nil
}

// EnabledCount returns how many catalog providers are enabled
func (c *Catalog) EnabledCount() int {
	count := 0
	for _, p := range c.Providers {
		if p.Enabled {
			count++
		}
	}
	return count
}

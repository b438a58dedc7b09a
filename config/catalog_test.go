package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerlink/commerce-router/models"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validCatalogYAML = `
providers:
  - id: freshmart
    display_name: FreshMart
    enabled: true
    priority: 1
    commission_rate: 12.5
    regions: ["CA", "WA"]
    timeout_ms: 2000
    max_retries: 2
  - id: quickbite
    display_name: QuickBite
    enabled: true
    priority: 2
    commission_rate: 10
    regions: ["*"]
    timeout_ms: 1500
    max_retries: 1
  - id: grocerly
    display_name: Grocerly
    enabled: false
    priority: 3
    commission_rate: 15
    regions: []
    timeout_ms: 2000
weights:
  price:
    price: 0.45
    speed: 0.15
    availability: 0.20
    margin: 0.05
    reliability: 0.15
`

func TestLoadCatalog(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		path := writeCatalogFile(t, validCatalogYAML)

		catalog, err := LoadCatalog(path)
		require.NoError(t, err)

		require.Len(t, catalog.Providers, 3)

		freshmart := catalog.Providers[0]
		assert.Equal(t, "freshmart", freshmart.ID)
		assert.Equal(t, "FreshMart", freshmart.DisplayName)
		assert.True(t, freshmart.Enabled)
		assert.Equal(t, 1, freshmart.Priority)
		assert.Equal(t, 12.5, freshmart.CommissionRate)
		assert.Equal(t, []string{"CA", "WA"}, freshmart.Regions)
		assert.Equal(t, 2000, freshmart.TimeoutMs)
		assert.Equal(t, 2, freshmart.MaxRetries)

		assert.True(t, catalog.Providers[1].ServesRegion("NY"))
		assert.False(t, catalog.Providers[2].Enabled)
		assert.Equal(t, 2, catalog.EnabledCount())

		weights, ok := catalog.Weights[models.OptimizePrice]
		require.True(t, ok)
		assert.NoError(t, weights.Validate())
		assert.Equal(t, 0.45, weights.Price)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeCatalogFile(t, "providers: [not: valid: yaml")

		_, err := LoadCatalog(path)
		assert.Error(t, err)
	})

	t.Run("empty catalog", func(t *testing.T) {
		path := writeCatalogFile(t, "providers: []")

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("duplicate provider id", func(t *testing.T) {
		path := writeCatalogFile(t, `
providers:
  - id: freshmart
    enabled: true
    regions: ["CA"]
  - id: freshmart
    enabled: true
    regions: ["WA"]
`)

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("enabled provider without regions", func(t *testing.T) {
		path := writeCatalogFile(t, `
providers:
  - id: freshmart
    enabled: true
    regions: []
`)

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "regions")
	})

	t.Run("commission rate out of range", func(t *testing.T) {
		path := writeCatalogFile(t, `
providers:
  - id: freshmart
    enabled: true
    regions: ["CA"]
    commission_rate: 120
`)

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "commission rate")
	})

	t.Run("weights that do not sum to one", func(t *testing.T) {
		path := writeCatalogFile(t, `
providers:
  - id: freshmart
    enabled: true
    regions: ["CA"]
weights:
  balanced:
    price: 0.9
    speed: 0.9
`)

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "balanced")
	})

	t.Run("unknown strategy in weights", func(t *testing.T) {
		path := writeCatalogFile(t, `
providers:
  - id: freshmart
    enabled: true
    regions: ["CA"]
weights:
  cheapest:
    price: 1.0
`)

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown optimize strategy")
	})
}

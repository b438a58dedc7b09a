package providers

import (
	"errors"
	"sort"
	"sync"

	"github.com/grocerlink/commerce-router/models"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrAdapterMismatch is returned when an adapter's ID does not match its config
	ErrAdapterMismatch = errors.New("adapter ID does not match provider config")
)

// Registry pairs each ProviderConfig from the catalog with the Adapter
// instance serving it. It is populated explicitly at startup from config;
// there is no dynamic or reflective lookup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

type registryEntry struct {
	config  models.ProviderConfig
	adapter Adapter
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
	}
}

// Register binds an adapter to its catalog config
func (r *Registry) Register(config models.ProviderConfig, adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter cannot be nil")
	}
	if config.ID == "" {
		return errors.New("provider ID cannot be empty")
	}
	if adapter.ID() != config.ID {
		return ErrAdapterMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[config.ID]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.entries[config.ID] = registryEntry{config: config, adapter: adapter}
	return nil
}

// Adapter retrieves the adapter for a provider ID
func (r *Registry) Adapter(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return entry.adapter, nil
}

// Config retrieves the catalog config for a provider ID
func (r *Registry) Config(id string) (models.ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return models.ProviderConfig{}, ErrProviderNotFound
	}
	return entry.config, nil
}

// Eligible returns the configs of enabled providers serving the region and
// not present in exclude, sorted by ID for deterministic fan-out order.
func (r *Registry) Eligible(region string, exclude []string) []models.ProviderConfig {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var eligible []models.ProviderConfig
	for id, entry := range r.entries {
		if !entry.config.Enabled || excluded[id] || !entry.config.ServesRegion(region) {
			continue
		}
		eligible = append(eligible, entry.config)
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].ID < eligible[j].ID
	})
	return eligible
}

// IDs returns all registered provider IDs, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

package decisions

import (
	"container/list"
	"sync"
	"time"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services"
)

// DefaultMaxSize bounds the number of decisions held in memory
const DefaultMaxSize = 10000

// ConfirmedOrder links a consumed decision to the order it produced, so a
// later cancel request can reach the right provider.
type ConfirmedOrder struct {
	ProviderID      string
	OrderID         string
	ProviderOrderID string
	CancelledAt     *time.Time
}

// Snapshot is a read-only view of one stored decision's lifecycle
type Snapshot struct {
	Decision *models.RoutingDecision
	Consumed bool
	Released bool
	Order    *ConfirmedOrder
}

// storeEntry tracks one decision with LRU position
type storeEntry struct {
	decision *models.RoutingDecision
	consumed bool
	released bool
	order    *ConfirmedOrder
	element  *list.Element
}

// Store holds pending and recently-consumed routing decisions in memory,
// bounded by an LRU cap. Tokens are single-use: Consume atomically claims a
// decision exactly once, which is what prevents concurrent confirmations of
// the same order. Entries for unconsumed decisions disappear once expired;
// consumed entries stay (until evicted) so confirmed orders remain
// cancellable.
type Store struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
	lruList *list.List
	maxSize int
}

// NewStore creates a decision store bounded to maxSize entries
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		entries: make(map[string]*storeEntry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Put stores a freshly issued decision, evicting the least recently used
// entry when the store is full.
func (s *Store) Put(decision *models.RoutingDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.entries[decision.RequestID]; exists {
		entry.decision = decision
		s.lruList.MoveToFront(entry.element)
		return
	}

	if s.lruList.Len() >= s.maxSize {
		s.evictLRU()
	}

	entry := &storeEntry{decision: decision}
	entry.element = s.lruList.PushFront(decision.RequestID)
	s.entries[decision.RequestID] = entry
}

// Consume atomically claims the decision for confirmation. Exactly one
// caller ever succeeds per request ID; everyone else gets a validation
// error describing why the token is unusable.
func (s *Store) Consume(requestID string, now time.Time) (*models.RoutingDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[requestID]
	if !exists {
		return nil, services.ErrDecisionNotFound
	}
	if entry.consumed {
		return nil, services.ErrDecisionConsumed
	}
	if entry.decision.Expired(now) {
		s.removeEntry(requestID)
		return nil, services.ErrDecisionExpired
	}

	entry.consumed = true
	s.lruList.MoveToFront(entry.element)
	return entry.decision, nil
}

// Release voids an unconsumed decision so its token can never confirm
func (s *Store) Release(requestID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[requestID]
	if !exists {
		return services.ErrDecisionNotFound
	}
	if entry.consumed {
		return services.ErrDecisionConsumed
	}
	if entry.decision.Expired(now) {
		s.removeEntry(requestID)
		return services.ErrDecisionExpired
	}

	entry.consumed = true
	entry.released = true
	return nil
}

// Get returns the lifecycle snapshot for a request ID. Unconsumed expired
// decisions read as expired; consumed entries stay readable so their
// orders can be cancelled.
func (s *Store) Get(requestID string, now time.Time) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[requestID]
	if !exists {
		return nil, services.ErrDecisionNotFound
	}
	if !entry.consumed && entry.decision.Expired(now) {
		s.removeEntry(requestID)
		return nil, services.ErrDecisionExpired
	}

	s.lruList.MoveToFront(entry.element)
	return entry.snapshot(), nil
}

// AttachOrder records the confirmed order behind a consumed decision
func (s *Store) AttachOrder(requestID string, order ConfirmedOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[requestID]
	if !exists {
		return services.ErrDecisionNotFound
	}
	entry.order = &order
	return nil
}

// MarkCancelled flips the confirmed order to cancelled exactly once
func (s *Store) MarkCancelled(requestID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[requestID]
	if !exists {
		return services.ErrDecisionNotFound
	}
	if entry.order == nil {
		return services.ErrOrderNotConfirmed
	}
	if entry.order.CancelledAt != nil {
		return services.ErrOrderAlreadyCancelled
	}
	entry.order.CancelledAt = &now
	return nil
}

// Len returns the number of stored decisions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lruList.Len()
}

// CleanupExpired removes expired decisions that were never consumed.
// Consumed entries survive so confirmed orders stay addressable.
func (s *Store) CleanupExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]string, 0)
	for requestID, entry := range s.entries {
		if !entry.consumed && entry.decision.Expired(now) {
			expired = append(expired, requestID)
		}
	}
	for _, requestID := range expired {
		s.removeEntry(requestID)
	}
	return len(expired)
}

// StartCleanupWorker sweeps expired decisions every interval until stopCh
// closes. It blocks; callers run it in its own goroutine.
func (s *Store) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired(time.Now())
		case <-stopCh:
			return
		}
	}
}

func (e *storeEntry) snapshot() *Snapshot {
	snap := &Snapshot{
		Decision: e.decision,
		Consumed: e.consumed,
		Released: e.released,
	}
	if e.order != nil {
		orderCopy := *e.order
		snap.Order = &orderCopy
	}
	return snap
}

// removeEntry removes an entry (must be called with lock held)
func (s *Store) removeEntry(requestID string) {
	if entry, exists := s.entries[requestID]; exists {
		s.lruList.Remove(entry.element)
		delete(s.entries, requestID)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (s *Store) evictLRU() {
	backElement := s.lruList.Back()
	if backElement == nil {
		return
	}
	requestID := backElement.Value.(string)
	s.lruList.Remove(backElement)
	delete(s.entries, requestID)
}

package memstore

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/consult/pkg/consult/kbstore"
)

// Store is an in-memory implementation of kbstore.Store for tests.
type Store struct {
	mu        sync.RWMutex
	entropy   *ulid.MonotonicEntropy
	rulebases map[string]kbstore.Rulebase
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entropy:   ulid.Monotonic(rand.Reader, 0),
		rulebases: make(map[string]kbstore.Rulebase),
	}
}

// Close implements kbstore.Store.
func (s *Store) Close() error { return nil }

// UpsertRulebase inserts or replaces a rulebase, keyed by name.
func (s *Store) UpsertRulebase(ctx context.Context, rb kbstore.Rulebase) (kbstore.Rulebase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rb.Name == "" {
		return kbstore.Rulebase{}, fmt.Errorf("rulebase name must not be empty")
	}

	rb.Revision = ulid.MustNew(ulid.Now(), s.entropy).String()
	rb.ImportedAt = time.Now().UTC()
	rb.Document = append([]byte(nil), rb.Document...)
	s.rulebases[rb.Name] = rb
	return rb, nil
}

// GetRulebase returns a rulebase by name.
func (s *Store) GetRulebase(ctx context.Context, name string) (kbstore.Rulebase, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rb, ok := s.rulebases[name]
	if !ok {
		return kbstore.Rulebase{}, false, nil
	}
	rb.Document = append([]byte(nil), rb.Document...)
	return rb, true, nil
}

// ListRulebases returns summaries of all stored rulebases, by name.
func (s *Store) ListRulebases(ctx context.Context) ([]kbstore.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]kbstore.Info, 0, len(s.rulebases))
	for _, rb := range s.rulebases {
		infos = append(infos, kbstore.Info{
			Name:       rb.Name,
			Target:     rb.Target,
			Revision:   rb.Revision,
			ImportedAt: rb.ImportedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// DeleteRulebase removes a rulebase by name.
func (s *Store) DeleteRulebase(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rulebases, name)
	return nil
}

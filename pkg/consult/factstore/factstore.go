// Package factstore holds the current facts of one consultation session.
package factstore

import (
	"sort"

	"github.com/cognicore/consult/pkg/consult/knowledge"
)

// Store maps each variable to at most one current fact. Putting a fact
// always replaces any prior fact for the same variable. A Store is owned
// and mutated by exactly one session; it provides no internal locking.
type Store struct {
	facts map[knowledge.VarID]knowledge.Fact
}

// New creates an empty store.
func New() *Store {
	return &Store{
		facts: make(map[knowledge.VarID]knowledge.Fact),
	}
}

// Get returns the current fact for a variable, if any.
func (s *Store) Get(v knowledge.VarID) (knowledge.Fact, bool) {
	f, ok := s.facts[v]
	return f, ok
}

// Put inserts a fact, replacing any prior fact for the same variable.
func (s *Store) Put(f knowledge.Fact) {
	s.facts[f.Var] = f
}

// Remove deletes the fact for a variable and returns it. It is a no-op
// on variables with no current fact.
func (s *Store) Remove(v knowledge.VarID) (knowledge.Fact, bool) {
	f, ok := s.facts[v]
	if ok {
		delete(s.facts, v)
	}
	return f, ok
}

// Len returns the number of facts currently held.
func (s *Store) Len() int { return len(s.facts) }

// Snapshot returns all current facts ordered by variable handle.
func (s *Store) Snapshot() []knowledge.Fact {
	out := make([]knowledge.Fact, 0, len(s.facts))
	for _, f := range s.facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

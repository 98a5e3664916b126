// Package consult is a small rule-based consultation engine. A Session
// owns the facts of one interactive consultation: asserting an answer
// forward-chains new conclusions, retracting one cascades dependent
// conclusions away, and after every mutation the session recomputes
// which open questions are still worth asking to determine the target.
package consult

import (
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cognicore/consult/pkg/consult/chain"
	"github.com/cognicore/consult/pkg/consult/factstore"
	"github.com/cognicore/consult/pkg/consult/internalerr"
	"github.com/cognicore/consult/pkg/consult/knowledge"
	"github.com/cognicore/consult/pkg/consult/plan"
)

// Session is one consultation over a knowledge base. It is intended to
// be owned and mutated by exactly one logical caller; every operation
// runs synchronously to completion.
type Session struct {
	id      string
	base    *knowledge.Base
	target  knowledge.VarID
	store   *factstore.Store
	engine  *chain.Engine
	planner *plan.Planner
	toQuery []*knowledge.Variable
	log     zerolog.Logger
}

// Options configures a Session.
type Options struct {
	// Base is the frozen knowledge base to consult. Required.
	Base *knowledge.Base
	// Target is the variable the consultation aims to determine. Required.
	Target knowledge.VarID
	// Logger receives debug events from the chaining engine. Optional;
	// defaults to a disabled logger.
	Logger *zerolog.Logger
}

// New creates a Session with an empty fact store and an initial query plan.
func New(opts Options) (*Session, error) {
	if opts.Base == nil {
		return nil, fmt.Errorf("session requires a knowledge base: %w", internalerr.ErrInvalidInput)
	}
	if opts.Base.Variable(opts.Target) == nil {
		return nil, fmt.Errorf("session target handle %d: %w", opts.Target, internalerr.ErrNotFound)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	id := ulid.MustNew(ulid.Now(), rand.Reader).String()
	log = log.With().Str("session", id).Logger()

	store := factstore.New()
	s := &Session{
		id:      id,
		base:    opts.Base,
		target:  opts.Target,
		store:   store,
		engine:  chain.New(opts.Base, store, log),
		planner: plan.New(opts.Base, store),
		log:     log,
	}
	s.RefreshQueryPlan()
	return s, nil
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Base returns the knowledge base the session consults.
func (s *Session) Base() *knowledge.Base { return s.base }

// Target returns the handle of the goal variable.
func (s *Session) Target() knowledge.VarID { return s.target }

// Assert introduces an answer or conclusion, forward-chains to a
// fixpoint, and refreshes the query plan.
func (s *Session) Assert(f knowledge.Fact) {
	s.engine.Assert(f)
	s.RefreshQueryPlan()
}

// Retract removes the current fact for a variable together with every
// conclusion derived from it (entered facts survive the cascade), then
// refreshes the query plan.
func (s *Session) Retract(v knowledge.VarID) {
	s.engine.Retract(v)
	s.RefreshQueryPlan()
}

// RefreshQueryPlan recomputes the list of variables still worth asking
// about. When the target is currently unreachable the list is empty.
func (s *Session) RefreshQueryPlan() {
	s.toQuery = s.toQuery[:0]

	needed, ok := s.planner.Resolve(s.target, 0)
	if !ok {
		s.log.Debug().Msg("target unreachable under current facts")
		return
	}

	seen := make(map[knowledge.VarID]bool, len(needed))
	for _, id := range needed {
		if seen[id] {
			continue
		}
		seen[id] = true
		s.toQuery = append(s.toQuery, s.base.Variable(id))
	}
}

// VariablesToQuery returns the open questions from the last plan, in
// stable discovery order.
func (s *Session) VariablesToQuery() []*knowledge.Variable {
	out := make([]*knowledge.Variable, len(s.toQuery))
	copy(out, s.toQuery)
	return out
}

// TargetValue returns the currently known value of the target, if any.
func (s *Session) TargetValue() (*knowledge.Value, bool) {
	f, ok := s.store.Get(s.target)
	if !ok {
		return nil, false
	}
	return s.base.Value(f.Value), true
}

// Fact returns the current fact for a variable, if any.
func (s *Session) Fact(v knowledge.VarID) (knowledge.Fact, bool) {
	return s.store.Get(v)
}

// Facts returns all current facts ordered by variable handle.
func (s *Session) Facts() []knowledge.Fact {
	return s.store.Snapshot()
}

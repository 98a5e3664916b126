// Package chain implements the forward-chaining and retraction half of
// the inference core: asserting a fact runs rule application to a
// fixpoint, retracting a fact cascades through everything derived from it.
package chain

import (
	"github.com/rs/zerolog"

	"github.com/cognicore/consult/pkg/consult/factstore"
	"github.com/cognicore/consult/pkg/consult/knowledge"
)

// Engine mutates a fact store under the rules of one knowledge base.
// It is synchronous and runs each operation to completion.
type Engine struct {
	base  *knowledge.Base
	store *factstore.Store
	log   zerolog.Logger
}

// New creates an engine over a base and the store it owns. The logger
// may be zerolog.Nop() to keep the core silent.
func New(base *knowledge.Base, store *factstore.Store, log zerolog.Logger) *Engine {
	return &Engine{base: base, store: store, log: log}
}

// Assert introduces a fact and forward-chains to a fixpoint: every rule
// whose reasons become fully satisfied has its conclusion added, unless
// the conclusion's variable already holds a conflicting user-entered
// fact. Replaced facts are retracted first so stale derivations are
// cascaded away before the new fact lands.
func (e *Engine) Assert(f knowledge.Fact) {
	queue := []knowledge.Fact{f}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		e.retract(cur.Var, 0, false)
		e.store.Put(cur)
		e.log.Debug().
			Str("variable", e.base.Variable(cur.Var).Name).
			Str("value", e.base.Value(cur.Value).Name).
			Str("origin", cur.Origin.String()).
			Msg("fact asserted")

		// Candidate rules are found by the asserted value alone; full
		// reason satisfaction is checked before anything fires.
		for _, rule := range e.base.RulesConsumingValue(cur.Value) {
			if !e.satisfied(rule) {
				continue
			}
			conclusion := knowledge.Fact{
				Var:    rule.Result.Var,
				Value:  rule.Result.Value,
				Origin: knowledge.Derived,
			}
			if existing, ok := e.store.Get(conclusion.Var); ok {
				// An identical fact needs no re-derivation; this is
				// also what stops a mutually recursive rule pair from
				// cycling the queue forever.
				if existing.Value == conclusion.Value {
					continue
				}
				if existing.Origin == knowledge.Entered {
					e.log.Debug().
						Str("rule", rule.Name).
						Str("variable", e.base.Variable(conclusion.Var).Name).
						Msg("conclusion blocked by entered fact")
					continue
				}
			}
			if pendingFor(queue, conclusion.Var) {
				continue
			}
			e.log.Debug().
				Str("rule", rule.Name).
				Str("variable", e.base.Variable(conclusion.Var).Name).
				Str("value", e.base.Value(conclusion.Value).Name).
				Msg("rule fired")
			queue = append(queue, conclusion)
		}
	}
}

// Retract removes the current fact for a variable, whatever its origin,
// and cascades through every fact derived from it. Entered facts survive
// the cascade; they are only removed by a direct Retract on their own
// variable.
func (e *Engine) Retract(v knowledge.VarID) {
	e.retract(v, 0, false)
}

// retract removes the fact for v if present. A non-zero val restricts
// removal to a fact holding exactly that value. With onlyDerived set,
// entered facts are left untouched, which is how cascades stop at user
// input.
func (e *Engine) retract(v knowledge.VarID, val knowledge.ValueID, onlyDerived bool) {
	f, ok := e.store.Get(v)
	if !ok {
		return
	}
	if val != 0 && f.Value != val {
		return
	}
	if onlyDerived && f.Origin == knowledge.Entered {
		return
	}

	e.store.Remove(v)
	e.log.Debug().
		Str("variable", e.base.Variable(v).Name).
		Str("value", e.base.Value(f.Value).Name).
		Bool("cascade", onlyDerived).
		Msg("fact retracted")

	for _, rule := range e.base.Rules() {
		if !consumes(rule, v, f.Value) {
			continue
		}
		e.retract(rule.Result.Var, rule.Result.Value, true)
	}
}

// satisfied reports whether every reason of a rule matches the store.
func (e *Engine) satisfied(rule *knowledge.Rule) bool {
	for _, reason := range rule.Reasons {
		f, ok := e.store.Get(reason.Var)
		if !ok || f.Value != reason.Value {
			return false
		}
	}
	return true
}

func pendingFor(queue []knowledge.Fact, v knowledge.VarID) bool {
	for _, f := range queue {
		if f.Var == v {
			return true
		}
	}
	return false
}

func consumes(rule *knowledge.Rule, v knowledge.VarID, val knowledge.ValueID) bool {
	for _, reason := range rule.Reasons {
		if reason.Var == v && reason.Value == val {
			return true
		}
	}
	return false
}

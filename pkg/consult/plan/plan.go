// Package plan implements the backward-chaining half of the inference
// core: given the current facts, which user-queryable variables still
// stand between the session and a value for the goal variable.
package plan

import (
	"github.com/cognicore/consult/pkg/consult/factstore"
	"github.com/cognicore/consult/pkg/consult/knowledge"
)

// Planner walks the rule graph backwards from a goal. It reads the fact
// store but never mutates it.
type Planner struct {
	base  *knowledge.Base
	store *factstore.Store
}

// New creates a planner over a base and the session's fact store.
func New(base *knowledge.Base, store *factstore.Store) *Planner {
	return &Planner{base: base, store: store}
}

// Resolve answers which unknown queryable variables remain before v can
// be known to hold val (any value of v when val is zero).
//
// The second return distinguishes the two terminal outcomes: (nil, false)
// means no sequence of further answers can determine v along any rule
// path, while (empty, true) means v is already determined. A non-empty
// list accumulates the variables needed by every rule alternative that
// is still syntactically satisfiable, not the cheapest single one.
//
// A dependency cycle in the rule graph resolves as unsatisfiable rather
// than recursing without bound.
func (p *Planner) Resolve(v knowledge.VarID, val knowledge.ValueID) ([]knowledge.VarID, bool) {
	return p.resolve(v, val, make(map[knowledge.VarID]bool))
}

func (p *Planner) resolve(v knowledge.VarID, val knowledge.ValueID, path map[knowledge.VarID]bool) ([]knowledge.VarID, bool) {
	if f, known := p.store.Get(v); known {
		if val == 0 || f.Value == val {
			return []knowledge.VarID{}, true
		}
		// A specific value was required and the known value differs.
		return nil, false
	}

	variable := p.base.Variable(v)
	if variable.Kind == knowledge.Queryable {
		return []knowledge.VarID{v}, true
	}

	if path[v] {
		return nil, false
	}
	path[v] = true
	defer delete(path, v)

	var candidates []*knowledge.Rule
	for _, rule := range p.base.RulesConcluding(v) {
		if val == 0 || rule.Result.Value == val {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		// No rule path; a "both" variable can still be asked directly.
		if variable.Kind == knowledge.Both {
			return []knowledge.VarID{v}, true
		}
		return nil, false
	}

	// Union the needs of every rule that fully resolves. The choice
	// between alternatives is left to the answers, so the plan asks for
	// all of them.
	var needed []knowledge.VarID
	seen := make(map[knowledge.VarID]bool)
	resolvedAny := false

	for _, rule := range candidates {
		var contribution []knowledge.VarID
		satisfiable := true
		for _, reason := range rule.Reasons {
			sub, ok := p.resolve(reason.Var, reason.Value, path)
			if !ok {
				satisfiable = false
				break
			}
			contribution = append(contribution, sub...)
		}
		if !satisfiable {
			continue
		}
		resolvedAny = true
		for _, id := range contribution {
			if !seen[id] {
				seen[id] = true
				needed = append(needed, id)
			}
		}
	}

	if !resolvedAny {
		return nil, false
	}
	if needed == nil {
		needed = []knowledge.VarID{}
	}
	return needed, true
}

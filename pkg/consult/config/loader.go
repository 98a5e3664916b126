package config

import (
	"fmt"

	"github.com/cognicore/consult/pkg/consult/internalerr"
	"github.com/cognicore/consult/pkg/consult/knowledge"
)

// Loader loads a rulebase document and resolves it into a frozen
// knowledge base. Name references are resolved exactly once, here; the
// engine only ever sees handles.
type Loader struct {
	Path string
}

// Components holds the resolved outcome of a load.
type Components struct {
	Base   *knowledge.Base
	Target knowledge.VarID
	Doc    *Document
}

// Load reads the document at Path and resolves it.
func (l *Loader) Load() (*Components, error) {
	doc, err := LoadDocument(l.Path)
	if err != nil {
		return nil, fmt.Errorf("load rulebase: %w", err)
	}

	base, target, err := Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("resolve rulebase: %w", err)
	}

	return &Components{Base: base, Target: target, Doc: doc}, nil
}

// Resolve builds one shared knowledge base from a document. Every name
// reference in the rules and the target must resolve to a declared
// variable or value; a miss is a configuration error, not an engine
// error.
func Resolve(doc *Document) (*knowledge.Base, knowledge.VarID, error) {
	base := knowledge.NewBase()

	for _, vd := range doc.Variables {
		kind, err := knowledge.ParseKind(vd.Type)
		if err != nil {
			return nil, 0, fmt.Errorf("variable %q: %w", vd.Name, err)
		}
		if len(vd.Values) == 0 {
			return nil, 0, fmt.Errorf("variable %q declares no values: %w", vd.Name, internalerr.ErrInvalidConfig)
		}

		id, err := base.AddVariable(vd.Name, vd.Question, kind)
		if err != nil {
			return nil, 0, err
		}
		for _, val := range vd.Values {
			if _, err := base.AddValue(id, val.Name, val.Label); err != nil {
				return nil, 0, err
			}
		}
	}

	for i, rd := range doc.Rules {
		name := rd.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}

		reasons := make([]knowledge.Condition, 0, len(rd.When))
		for _, cd := range rd.When {
			cond, err := resolveCondition(base, cd)
			if err != nil {
				return nil, 0, fmt.Errorf("rule %q: %w", name, err)
			}
			reasons = append(reasons, cond)
		}

		result, err := resolveCondition(base, rd.Then)
		if err != nil {
			return nil, 0, fmt.Errorf("rule %q: %w", name, err)
		}

		if err := base.AddRule(name, reasons, result); err != nil {
			return nil, 0, err
		}
	}

	target, ok := base.VariableByName(doc.Target)
	if !ok {
		return nil, 0, fmt.Errorf("target %q: %w", doc.Target, internalerr.ErrUnknownReference)
	}

	base.Freeze()
	return base, target, nil
}

func resolveCondition(base *knowledge.Base, cd ConditionDoc) (knowledge.Condition, error) {
	varID, ok := base.VariableByName(cd.Variable)
	if !ok {
		return knowledge.Condition{}, fmt.Errorf("variable %q: %w", cd.Variable, internalerr.ErrUnknownReference)
	}
	valID, ok := base.ValueByName(varID, cd.Value)
	if !ok {
		return knowledge.Condition{}, fmt.Errorf("value %q of variable %q: %w", cd.Value, cd.Variable, internalerr.ErrUnknownReference)
	}
	return knowledge.Condition{Var: varID, Value: valID}, nil
}

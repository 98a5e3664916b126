// Package knowledge holds the immutable data model a consultation reasons
// over: variables, their possible values, and the if-then rules connecting
// them. A Base owns every object and hands out opaque integer handles;
// all identity comparison anywhere in the engine is by handle, never by
// name, so a reparsed document can never alias a live Base.
package knowledge

import (
	"fmt"

	"github.com/cognicore/consult/pkg/consult/internalerr"
)

// VarID is an opaque handle for a variable. Zero is never a valid handle.
type VarID int

// ValueID is an opaque handle for a possible value. Zero is never a valid handle.
type ValueID int

// Kind classifies how a variable can obtain a value.
type Kind int

const (
	// Deductible variables are only ever derived by rules.
	Deductible Kind = iota + 1
	// Queryable variables are only ever answered by the user.
	Queryable
	// Both variables are derived when a rule path exists and asked otherwise.
	Both
)

// String returns the document-format name of the kind.
func (k Kind) String() string {
	switch k {
	case Deductible:
		return "deductible"
	case Queryable:
		return "queryable"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a document-format kind name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "deductible":
		return Deductible, nil
	case "queryable":
		return Queryable, nil
	case "both":
		return Both, nil
	default:
		return 0, fmt.Errorf("unknown variable type %q: %w", s, internalerr.ErrInvalidConfig)
	}
}

// Variable is a named question with a closed set of possible values.
type Variable struct {
	ID       VarID
	Name     string
	Question string
	Kind     Kind
	Values   []ValueID
}

// Value is one possible value of exactly one variable.
type Value struct {
	ID    ValueID
	Var   VarID
	Name  string
	Label string
}

// Origin records how a fact entered the session.
type Origin int

const (
	// Entered facts were supplied by the user and survive cascades.
	Entered Origin = iota + 1
	// Derived facts were concluded by a rule and are removed when their
	// derivation chain breaks.
	Derived
)

// String returns a short label for the origin.
func (o Origin) String() string {
	switch o {
	case Entered:
		return "entered"
	case Derived:
		return "derived"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Fact pairs a variable with one of its values, tagged with provenance.
type Fact struct {
	Var    VarID
	Value  ValueID
	Origin Origin
}

// Condition is a (variable, value) pair used as a rule reason or result.
type Condition struct {
	Var   VarID
	Value ValueID
}

// Rule fires its single result when every reason is simultaneously
// present in the fact store.
type Rule struct {
	Name    string
	Reasons []Condition
	Result  Condition
}

// Base is the immutable rule graph a session consults. Build one with
// NewBase and the Add* methods (or the config loader), then Freeze it.
// Handles are assigned once, in insertion order, starting at 1.
type Base struct {
	vars   []*Variable
	values []*Value
	rules  []*Rule

	varsByName map[string]VarID

	// byResultVar indexes rules by the variable they conclude;
	// byReasonValue indexes rules by each value their reasons consume.
	byResultVar   map[VarID][]*Rule
	byReasonValue map[ValueID][]*Rule

	frozen bool
}

// NewBase returns an empty, unfrozen Base.
func NewBase() *Base {
	return &Base{
		varsByName:    make(map[string]VarID),
		byResultVar:   make(map[VarID][]*Rule),
		byReasonValue: make(map[ValueID][]*Rule),
	}
}

// AddVariable declares a variable and returns its handle.
func (b *Base) AddVariable(name, question string, kind Kind) (VarID, error) {
	if b.frozen {
		return 0, fmt.Errorf("add variable %q: base is frozen: %w", name, internalerr.ErrInvalidInput)
	}
	if name == "" {
		return 0, fmt.Errorf("variable name must not be empty: %w", internalerr.ErrInvalidConfig)
	}
	if _, exists := b.varsByName[name]; exists {
		return 0, fmt.Errorf("variable %q: %w", name, internalerr.ErrDuplicate)
	}

	id := VarID(len(b.vars) + 1)
	b.vars = append(b.vars, &Variable{
		ID:       id,
		Name:     name,
		Question: question,
		Kind:     kind,
	})
	b.varsByName[name] = id
	return id, nil
}

// AddValue declares a possible value for an existing variable and returns
// its handle. Value names must be unique within their variable.
func (b *Base) AddValue(v VarID, name, label string) (ValueID, error) {
	if b.frozen {
		return 0, fmt.Errorf("add value %q: base is frozen: %w", name, internalerr.ErrInvalidInput)
	}
	variable := b.lookupVar(v)
	if variable == nil {
		return 0, fmt.Errorf("add value %q: variable handle %d: %w", name, v, internalerr.ErrNotFound)
	}
	if name == "" {
		return 0, fmt.Errorf("value name must not be empty: %w", internalerr.ErrInvalidConfig)
	}
	for _, existing := range variable.Values {
		if b.Value(existing).Name == name {
			return 0, fmt.Errorf("value %q of variable %q: %w", name, variable.Name, internalerr.ErrDuplicate)
		}
	}
	if label == "" {
		label = name
	}

	id := ValueID(len(b.values) + 1)
	b.values = append(b.values, &Value{
		ID:    id,
		Var:   v,
		Name:  name,
		Label: label,
	})
	variable.Values = append(variable.Values, id)
	return id, nil
}

// AddRule declares a rule. Every reason and the result must reference a
// declared variable together with one of that variable's own values.
func (b *Base) AddRule(name string, reasons []Condition, result Condition) error {
	if b.frozen {
		return fmt.Errorf("add rule %q: base is frozen: %w", name, internalerr.ErrInvalidInput)
	}
	if len(reasons) == 0 {
		return fmt.Errorf("rule %q must have at least one reason: %w", name, internalerr.ErrInvalidConfig)
	}
	for i, reason := range reasons {
		if err := b.checkCondition(reason); err != nil {
			return fmt.Errorf("rule %q reason %d: %w", name, i, err)
		}
	}
	if err := b.checkCondition(result); err != nil {
		return fmt.Errorf("rule %q result: %w", name, err)
	}

	rule := &Rule{
		Name:    name,
		Reasons: append([]Condition(nil), reasons...),
		Result:  result,
	}
	b.rules = append(b.rules, rule)
	b.byResultVar[result.Var] = append(b.byResultVar[result.Var], rule)
	for _, reason := range rule.Reasons {
		b.byReasonValue[reason.Value] = append(b.byReasonValue[reason.Value], rule)
	}
	return nil
}

func (b *Base) checkCondition(c Condition) error {
	variable := b.lookupVar(c.Var)
	if variable == nil {
		return fmt.Errorf("variable handle %d: %w", c.Var, internalerr.ErrNotFound)
	}
	value := b.lookupValue(c.Value)
	if value == nil {
		return fmt.Errorf("value handle %d: %w", c.Value, internalerr.ErrNotFound)
	}
	if value.Var != c.Var {
		return fmt.Errorf("value %q belongs to variable %q, not %q: %w",
			value.Name, b.Variable(value.Var).Name, variable.Name, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Freeze marks the Base immutable. Further Add* calls fail.
func (b *Base) Freeze() { b.frozen = true }

// Variable returns the variable for a handle, or nil for an unknown handle.
func (b *Base) Variable(id VarID) *Variable { return b.lookupVar(id) }

// Value returns the value for a handle, or nil for an unknown handle.
func (b *Base) Value(id ValueID) *Value { return b.lookupValue(id) }

// VariableByName resolves a document name to its handle.
func (b *Base) VariableByName(name string) (VarID, bool) {
	id, ok := b.varsByName[name]
	return id, ok
}

// ValueByName resolves a value name within one variable to its handle.
func (b *Base) ValueByName(v VarID, name string) (ValueID, bool) {
	variable := b.lookupVar(v)
	if variable == nil {
		return 0, false
	}
	for _, id := range variable.Values {
		if b.Value(id).Name == name {
			return id, true
		}
	}
	return 0, false
}

// Variables returns all variables in declaration order.
func (b *Base) Variables() []*Variable { return b.vars }

// Rules returns all rules in declaration order.
func (b *Base) Rules() []*Rule { return b.rules }

// RulesConcluding returns the rules whose result variable is v.
func (b *Base) RulesConcluding(v VarID) []*Rule { return b.byResultVar[v] }

// RulesConsumingValue returns the rules with some reason whose value is val.
// The match is on value identity alone, not variable+value; the chaining
// engine re-checks full reason satisfaction before firing anything.
func (b *Base) RulesConsumingValue(val ValueID) []*Rule { return b.byReasonValue[val] }

func (b *Base) lookupVar(id VarID) *Variable {
	if id < 1 || int(id) > len(b.vars) {
		return nil
	}
	return b.vars[id-1]
}

func (b *Base) lookupValue(id ValueID) *Value {
	if id < 1 || int(id) > len(b.values) {
		return nil
	}
	return b.values[id-1]
}

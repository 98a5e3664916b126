package chain

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/consult/pkg/consult/factstore"
	"github.com/cognicore/consult/pkg/consult/knowledge"
)

// triage is the handle set of a small two-question base:
// a=yes AND b=yes => t=yes.
type triage struct {
	base      *knowledge.Base
	a, b, t   knowledge.VarID
	aYes, aNo knowledge.ValueID
	bYes, bNo knowledge.ValueID
	tYes, tNo knowledge.ValueID
}

func newTriage(t *testing.T) triage {
	t.Helper()
	base := knowledge.NewBase()

	mustVar := func(name string, kind knowledge.Kind) knowledge.VarID {
		id, err := base.AddVariable(name, name+"?", kind)
		require.NoError(t, err)
		return id
	}
	mustVal := func(v knowledge.VarID, name string) knowledge.ValueID {
		id, err := base.AddValue(v, name, "")
		require.NoError(t, err)
		return id
	}

	tr := triage{base: base}
	tr.a = mustVar("a", knowledge.Queryable)
	tr.aYes, tr.aNo = mustVal(tr.a, "yes"), mustVal(tr.a, "no")
	tr.b = mustVar("b", knowledge.Queryable)
	tr.bYes, tr.bNo = mustVal(tr.b, "yes"), mustVal(tr.b, "no")
	tr.t = mustVar("t", knowledge.Deductible)
	tr.tYes, tr.tNo = mustVal(tr.t, "yes"), mustVal(tr.t, "no")

	require.NoError(t, base.AddRule("both-yes",
		[]knowledge.Condition{{Var: tr.a, Value: tr.aYes}, {Var: tr.b, Value: tr.bYes}},
		knowledge.Condition{Var: tr.t, Value: tr.tYes},
	))
	base.Freeze()
	return tr
}

func entered(v knowledge.VarID, val knowledge.ValueID) knowledge.Fact {
	return knowledge.Fact{Var: v, Value: val, Origin: knowledge.Entered}
}

func TestAssertDerivesWhenAllReasonsHold(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	engine.Assert(entered(tr.a, tr.aYes))
	_, ok := store.Get(tr.t)
	require.False(t, ok, "one reason must not fire the rule")

	engine.Assert(entered(tr.b, tr.bYes))
	f, ok := store.Get(tr.t)
	require.True(t, ok)
	require.Equal(t, tr.tYes, f.Value)
	require.Equal(t, knowledge.Derived, f.Origin)
}

func TestAssertReplacesPriorFact(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	engine.Assert(entered(tr.a, tr.aYes))
	engine.Assert(entered(tr.a, tr.aNo))

	f, ok := store.Get(tr.a)
	require.True(t, ok)
	require.Equal(t, tr.aNo, f.Value)
	require.Equal(t, 1, store.Len(), "at most one fact per variable")
}

func TestAssertReplacementCascadesStaleDerivations(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	engine.Assert(entered(tr.a, tr.aYes))
	engine.Assert(entered(tr.b, tr.bYes))
	_, derived := store.Get(tr.t)
	require.True(t, derived)

	// Changing an answer must also remove what was derived from it.
	engine.Assert(entered(tr.a, tr.aNo))
	_, still := store.Get(tr.t)
	require.False(t, still)
}

func TestAssertChainsToFixpoint(t *testing.T) {
	base := knowledge.NewBase()
	x, err := base.AddVariable("x", "", knowledge.Queryable)
	require.NoError(t, err)
	xYes, err := base.AddValue(x, "yes", "")
	require.NoError(t, err)
	y, err := base.AddVariable("y", "", knowledge.Deductible)
	require.NoError(t, err)
	yYes, err := base.AddValue(y, "yes", "")
	require.NoError(t, err)
	z, err := base.AddVariable("z", "", knowledge.Deductible)
	require.NoError(t, err)
	zYes, err := base.AddValue(z, "yes", "")
	require.NoError(t, err)

	require.NoError(t, base.AddRule("x-implies-y",
		[]knowledge.Condition{{Var: x, Value: xYes}},
		knowledge.Condition{Var: y, Value: yYes}))
	require.NoError(t, base.AddRule("y-implies-z",
		[]knowledge.Condition{{Var: y, Value: yYes}},
		knowledge.Condition{Var: z, Value: zYes}))
	base.Freeze()

	store := factstore.New()
	engine := New(base, store, zerolog.Nop())
	engine.Assert(entered(x, xYes))

	for _, v := range []knowledge.VarID{y, z} {
		f, ok := store.Get(v)
		require.True(t, ok, "chain must reach %d", v)
		require.Equal(t, knowledge.Derived, f.Origin)
	}
}

func TestAssertTerminatesOnRuleCycle(t *testing.T) {
	base := knowledge.NewBase()
	x, err := base.AddVariable("x", "", knowledge.Deductible)
	require.NoError(t, err)
	xYes, err := base.AddValue(x, "yes", "")
	require.NoError(t, err)
	y, err := base.AddVariable("y", "", knowledge.Deductible)
	require.NoError(t, err)
	yYes, err := base.AddValue(y, "yes", "")
	require.NoError(t, err)

	// x=yes => y=yes and y=yes => x=yes form a cycle; chaining must
	// still reach a fixpoint and return.
	require.NoError(t, base.AddRule("x-implies-y",
		[]knowledge.Condition{{Var: x, Value: xYes}},
		knowledge.Condition{Var: y, Value: yYes}))
	require.NoError(t, base.AddRule("y-implies-x",
		[]knowledge.Condition{{Var: y, Value: yYes}},
		knowledge.Condition{Var: x, Value: xYes}))
	base.Freeze()

	store := factstore.New()
	engine := New(base, store, zerolog.Nop())
	engine.Assert(entered(x, xYes))

	fx, ok := store.Get(x)
	require.True(t, ok)
	require.Equal(t, knowledge.Entered, fx.Origin, "the seeded answer keeps its origin")
	fy, ok := store.Get(y)
	require.True(t, ok)
	require.Equal(t, yYes, fy.Value)
	require.Equal(t, knowledge.Derived, fy.Origin)
}

func TestAssertSkipsAlreadyHeldConclusion(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	// The user has already stated t=yes; deriving the same value must
	// not demote it to a derived fact.
	engine.Assert(entered(tr.t, tr.tYes))
	engine.Assert(entered(tr.a, tr.aYes))
	engine.Assert(entered(tr.b, tr.bYes))

	f, ok := store.Get(tr.t)
	require.True(t, ok)
	require.Equal(t, tr.tYes, f.Value)
	require.Equal(t, knowledge.Entered, f.Origin)
}

func TestDerivationNeverOverwritesConflictingEnteredFact(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	// The user has already stated t=no; deriving t=yes must be blocked.
	engine.Assert(entered(tr.t, tr.tNo))
	engine.Assert(entered(tr.a, tr.aYes))
	engine.Assert(entered(tr.b, tr.bYes))

	f, ok := store.Get(tr.t)
	require.True(t, ok)
	require.Equal(t, tr.tNo, f.Value)
	require.Equal(t, knowledge.Entered, f.Origin)
}

func TestRetractCascadesThroughDerivations(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	engine.Assert(entered(tr.a, tr.aYes))
	engine.Assert(entered(tr.b, tr.bYes))
	engine.Retract(tr.a)

	_, aOK := store.Get(tr.a)
	require.False(t, aOK)
	_, tOK := store.Get(tr.t)
	require.False(t, tOK, "derived conclusion must cascade away")
	f, bOK := store.Get(tr.b)
	require.True(t, bOK, "independent answer must survive")
	require.Equal(t, tr.bYes, f.Value)
}

func TestCascadeSparesEnteredFacts(t *testing.T) {
	base := knowledge.NewBase()
	x, err := base.AddVariable("x", "", knowledge.Queryable)
	require.NoError(t, err)
	xYes, err := base.AddValue(x, "yes", "")
	require.NoError(t, err)
	y, err := base.AddVariable("y", "", knowledge.Both)
	require.NoError(t, err)
	yYes, err := base.AddValue(y, "yes", "")
	require.NoError(t, err)

	require.NoError(t, base.AddRule("x-implies-y",
		[]knowledge.Condition{{Var: x, Value: xYes}},
		knowledge.Condition{Var: y, Value: yYes}))
	base.Freeze()

	store := factstore.New()
	engine := New(base, store, zerolog.Nop())

	engine.Assert(entered(x, xYes))
	// The user restates y=yes directly; it is now entered, not derived.
	engine.Assert(entered(y, yYes))

	engine.Retract(x)
	f, ok := store.Get(y)
	require.True(t, ok, "entered facts survive cascades")
	require.Equal(t, knowledge.Entered, f.Origin)

	// A direct retraction still removes it.
	engine.Retract(y)
	_, ok = store.Get(y)
	require.False(t, ok)
}

func TestRetractUnknownVariableIsNoop(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	engine.Retract(tr.a)
	require.Equal(t, 0, store.Len())
}

func TestAssertRetractRoundTrip(t *testing.T) {
	tr := newTriage(t)
	store := factstore.New()
	engine := New(tr.base, store, zerolog.Nop())

	engine.Assert(entered(tr.a, tr.aYes))
	before := store.Snapshot()

	engine.Assert(entered(tr.b, tr.bYes))
	engine.Retract(tr.b)

	require.Equal(t, before, store.Snapshot())
}

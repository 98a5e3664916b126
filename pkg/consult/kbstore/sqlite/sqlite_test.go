package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/consult/pkg/consult/internalerr"
	"github.com/cognicore/consult/pkg/consult/kbstore"
)

func openTestStore(t *testing.T) kbstore.Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	doc := []byte("target: t\nvariables:\n  - name: t\n    type: both\n    values: [yes]\n")
	stored, err := store.UpsertRulebase(ctx, kbstore.Rulebase{
		Name:     "triage",
		Target:   "t",
		Document: doc,
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.Revision)
	require.False(t, stored.ImportedAt.IsZero())

	got, found, err := store.GetRulebase(ctx, "triage")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "triage", got.Name)
	require.Equal(t, "t", got.Target)
	require.Equal(t, stored.Revision, got.Revision)
	require.Equal(t, doc, got.Document)
}

func TestUpsertReplacesByName(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertRulebase(ctx, kbstore.Rulebase{
		Name: "triage", Target: "t", Document: []byte("v1"),
	})
	require.NoError(t, err)

	second, err := store.UpsertRulebase(ctx, kbstore.Rulebase{
		Name: "triage", Target: "verdict", Document: []byte("v2"),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.Revision, second.Revision)

	got, found, err := store.GetRulebase(ctx, "triage")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "verdict", got.Target)
	require.Equal(t, []byte("v2"), got.Document)

	infos, err := store.ListRulebases(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
}

func TestOpenUnusablePath(t *testing.T) {
	// No parent directory, so SQLite cannot create the database file.
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "library.db"))
	require.Error(t, err)
	require.ErrorIs(t, err, internalerr.ErrStoreUnavailable)
}

func TestEmptyNameRejected(t *testing.T) {
	store := openTestStore(t)
	_, err := store.UpsertRulebase(context.Background(), kbstore.Rulebase{Target: "t"})
	require.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	_, found, err := store.GetRulebase(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, found)
}

func TestListAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		_, err := store.UpsertRulebase(ctx, kbstore.Rulebase{
			Name: name, Target: "t", Document: []byte("doc"),
		})
		require.NoError(t, err)
	}

	infos, err := store.ListRulebases(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "alpha", infos[0].Name)
	require.Equal(t, "zeta", infos[1].Name)

	require.NoError(t, store.DeleteRulebase(ctx, "alpha"))
	infos, err = store.ListRulebases(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "zeta", infos[0].Name)
}

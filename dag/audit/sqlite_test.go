package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SatisfiesContract(t *testing.T) {
	storeContract(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_CreatesSchemaIdempotently(t *testing.T) {
	store := newTestSQLiteStore(t)
	require.NoError(t, store.createSchema(context.Background()))
}

func TestSQLiteStore_ImplementsStore(t *testing.T) {
	var _ Store = newTestSQLiteStore(t)
}

// Package databasetest holds the behaviour every KV backend must share.
package databasetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roamfree/internal/database"
)

// RunKVTests exercises get/set/delete semantics against kv. Keys are prefixed
// with the test name so a shared backend can be reused.
func RunKVTests(t *testing.T, kv database.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := kv.Get(ctx, t.Name()+"/absent")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		key := t.Name() + "/k"
		require.NoError(t, kv.Set(ctx, key, []byte(`{"a":1}`)))

		got, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		key := t.Name() + "/k"
		require.NoError(t, kv.Set(ctx, key, []byte("one")))
		require.NoError(t, kv.Set(ctx, key, []byte("two")))

		got, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		key := t.Name() + "/k"
		require.NoError(t, kv.Set(ctx, key, []byte("v")))
		require.NoError(t, kv.Delete(ctx, key))

		_, err := kv.Get(ctx, key)
		assert.ErrorIs(t, err, database.ErrNotFound)

		assert.NoError(t, kv.Delete(ctx, key), "deleting an absent key is a no-op")
	})

	t.Run("json helpers", func(t *testing.T) {
		key := t.Name() + "/wishlist"
		type item struct {
			ID string `json:"id"`
		}
		require.NoError(t, database.SetJSON(ctx, kv, key, []item{{ID: "a"}, {ID: "b"}}))

		var items []item
		require.NoError(t, database.GetJSON(ctx, kv, key, &items))
		assert.Equal(t, []item{{ID: "a"}, {ID: "b"}}, items)
	})

	t.Run("corrupt json", func(t *testing.T) {
		key := t.Name() + "/wishlist"
		require.NoError(t, kv.Set(ctx, key, []byte("{not json")))

		var items []string
		err := database.GetJSON(ctx, kv, key, &items)

		var corrupt *database.CorruptValueError
		require.ErrorAs(t, err, &corrupt)
		assert.Equal(t, key, corrupt.Key)
	})
}

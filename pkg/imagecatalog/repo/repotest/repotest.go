// Package repotest provides a conformance suite shared by the metadata store
// implementations.
package repotest

import (
	"context"
	"testing"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a MetadataStore created by newStore. Each subtest gets an
// empty store.
func Run(t *testing.T, newStore func(t *testing.T) imagecatalog.MetadataStore) {
	ctx := context.Background()

	t.Run("UpsertCreates", func(t *testing.T) {
		store := newStore(t)
		stored, err := store.Upsert(ctx, record("Alice_1-map-town", "Alice_1", "map", "town"))
		require.NoError(t, err)
		assert.Equal(t, "Alice_1-map-town", stored.ID)

		got, err := store.QueryByOwner(ctx, "Alice_1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "town", got[0].ImageName)
		assert.Equal(t, "map", got[0].Category)
		assert.Equal(t, "a town", got[0].Description)
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Upsert(ctx, record("Alice_1-map-town", "Alice_1", "map", "town"))
		require.NoError(t, err)

		updated := record("Alice_1-map-town", "Alice_1", "map", "town")
		updated.Description = "a bigger town"
		_, err = store.Upsert(ctx, updated)
		require.NoError(t, err)

		got, err := store.QueryAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a bigger town", got[0].Description)
	})

	t.Run("PayloadIsNotPersisted", func(t *testing.T) {
		store := newStore(t)
		rec := record("bob-misc-cat", "bob", "misc", "cat")
		rec.ImageBytes = []byte{1, 2, 3}
		_, err := store.Upsert(ctx, rec)
		require.NoError(t, err)

		got, err := store.QueryByOwner(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Empty(t, got[0].ImageBytes)
	})

	t.Run("QueryByOwner", func(t *testing.T) {
		store := newStore(t)
		seed(t, store)

		got, err := store.QueryByOwner(ctx, "Alice_1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Alice_1-map-town", "Alice_1-map-castle", "Alice_1-portrait-hero"}, ids(got))

		got, err = store.QueryByOwner(ctx, "alice_1")
		require.NoError(t, err)
		assert.Empty(t, got, "owner match is case sensitive")

		got, err = store.QueryByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("QueryByOwnerAndCategory", func(t *testing.T) {
		store := newStore(t)
		seed(t, store)

		got, err := store.QueryByOwnerAndCategory(ctx, "Alice_1", "map")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Alice_1-map-town", "Alice_1-map-castle"}, ids(got))

		got, err = store.QueryByOwnerAndCategory(ctx, "bob", "map")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("QueryAll", func(t *testing.T) {
		store := newStore(t)
		seed(t, store)

		got, err := store.QueryAll(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Upsert(ctx, record("Alice_1-map-town", "Alice_1", "map", "town"))
		require.NoError(t, err)

		got, err := store.QueryByOwner(ctx, "Alice_1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		got[0].Description = "mutated"

		again, err := store.QueryByOwner(ctx, "Alice_1")
		require.NoError(t, err)
		assert.Equal(t, "a town", again[0].Description)
	})
}

func record(id, owner, category, name string) *imagecatalog.ImageRecord {
	return &imagecatalog.ImageRecord{
		ID:          id,
		UserName:    owner,
		Category:    category,
		ImageName:   name,
		Description: "a " + name,
	}
}

func seed(t *testing.T, store imagecatalog.MetadataStore) {
	t.Helper()
	for _, rec := range []*imagecatalog.ImageRecord{
		record("Alice_1-map-town", "Alice_1", "map", "town"),
		record("Alice_1-map-castle", "Alice_1", "map", "castle"),
		record("Alice_1-portrait-hero", "Alice_1", "portrait", "hero"),
		record("bob-misc-cat", "bob", "misc", "cat"),
	} {
		_, err := store.Upsert(context.Background(), rec)
		require.NoError(t, err)
	}
}

func ids(records []*imagecatalog.ImageRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

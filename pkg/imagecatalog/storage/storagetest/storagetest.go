// Package storagetest provides a conformance suite shared by the blob store
// backends.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a BlobStore created by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) imagecatalog.BlobStore) {
	ctx := context.Background()

	t.Run("EnsureContainerIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		c1, err := store.EnsureContainer(ctx, "alice1")
		require.NoError(t, err)
		require.NoError(t, c1.Upload(ctx, "town.png", bytes.NewReader([]byte{1, 2, 3})))

		c2, err := store.EnsureContainer(ctx, "alice1")
		require.NoError(t, err)
		assert.Equal(t, "alice1", c2.Name())
		assert.Equal(t, []byte{1, 2, 3}, download(t, c2, "town.png"))
	})

	t.Run("UploadOverwrites", func(t *testing.T) {
		store := newStore(t)
		c, err := store.EnsureContainer(ctx, "alice1")
		require.NoError(t, err)

		require.NoError(t, c.Upload(ctx, "town.png", bytes.NewReader([]byte{1, 2, 3})))
		require.NoError(t, c.Upload(ctx, "town.png", bytes.NewReader([]byte{9, 9})))

		assert.Equal(t, []byte{9, 9}, download(t, c, "town.png"))
		assert.Len(t, list(t, c), 1)
	})

	t.Run("DownloadMissingIsNotFound", func(t *testing.T) {
		store := newStore(t)
		c, err := store.EnsureContainer(ctx, "alice1")
		require.NoError(t, err)

		rc, err := c.Download(ctx, "missing.png")
		assert.ErrorIs(t, err, imagecatalog.ErrNotFound)
		assert.Nil(t, rc)
	})

	t.Run("ListIsScopedToContainer", func(t *testing.T) {
		store := newStore(t)
		alice, err := store.EnsureContainer(ctx, "alice1")
		require.NoError(t, err)
		bob, err := store.EnsureContainer(ctx, "bob")
		require.NoError(t, err)

		require.NoError(t, alice.Upload(ctx, "a.png", bytes.NewReader([]byte("a"))))
		require.NoError(t, alice.Upload(ctx, "b.png", bytes.NewReader([]byte("bb"))))
		require.NoError(t, bob.Upload(ctx, "c.png", bytes.NewReader([]byte("c"))))

		refs := list(t, alice)
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			names = append(names, ref.Name)
			assert.False(t, ref.CreatedOn.IsZero(), "blob %s has no creation time", ref.Name)
		}
		assert.ElementsMatch(t, []string{"a.png", "b.png"}, names)

		sizes := map[string]int64{}
		for _, ref := range refs {
			sizes[ref.Name] = ref.Size
		}
		assert.Equal(t, int64(2), sizes["b.png"])
	})

	t.Run("ListEmptyContainer", func(t *testing.T) {
		store := newStore(t)
		c, err := store.EnsureContainer(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, list(t, c))
	})

	t.Run("ListStopsEarly", func(t *testing.T) {
		store := newStore(t)
		c, err := store.EnsureContainer(ctx, "many")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			require.NoError(t, c.Upload(ctx, fmt.Sprintf("img%d.png", i), bytes.NewReader([]byte{byte(i)})))
		}

		seen := 0
		for _, err := range c.List(ctx) {
			require.NoError(t, err)
			seen++
			if seen == 2 {
				break
			}
		}
		assert.Equal(t, 2, seen)
	})

	t.Run("ListIsRestartable", func(t *testing.T) {
		store := newStore(t)
		c, err := store.EnsureContainer(ctx, "again")
		require.NoError(t, err)
		require.NoError(t, c.Upload(ctx, "x.png", bytes.NewReader([]byte("x"))))

		assert.Len(t, list(t, c), 1)
		assert.Len(t, list(t, c), 1)
	})
}

func download(t *testing.T, c imagecatalog.Container, name string) []byte {
	t.Helper()
	rc, err := c.Download(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func list(t *testing.T, c imagecatalog.Container) []imagecatalog.BlobRef {
	t.Helper()
	var refs []imagecatalog.BlobRef
	for ref, err := range c.List(context.Background()) {
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return refs
}

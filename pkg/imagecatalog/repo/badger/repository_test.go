package badger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/badger"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempRepository(t *testing.T, dir string) *badger.Repository {
	t.Helper()
	repo, err := badger.Open(dir)
	require.NoError(t, err)
	return repo
}

func TestRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) imagecatalog.MetadataStore {
		repo := tempRepository(t, filepath.Join(t.TempDir(), "badger"))
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestRepository_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	repo := tempRepository(t, dir)
	_, err := repo.Upsert(ctx, &imagecatalog.ImageRecord{ID: "alice-map-town", UserName: "alice", Category: "map", ImageName: "town"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo = tempRepository(t, dir)
	defer repo.Close()

	got, err := repo.QueryByOwnerAndCategory(ctx, "alice", "map")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "town", got[0].ImageName)
}

func TestRepository_CancelledQuery(t *testing.T) {
	repo := tempRepository(t, filepath.Join(t.TempDir(), "badger"))
	defer repo.Close()

	_, err := repo.Upsert(context.Background(), &imagecatalog.ImageRecord{ID: "a", UserName: "alice"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.QueryAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

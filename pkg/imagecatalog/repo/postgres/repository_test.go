package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/postgres"
	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/repo/repotest"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testPoolErr  error
)

// sharedPool starts one PostgreSQL container for the whole package.
func sharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:16-alpine",
			pgcontainer.WithDatabase("imagecatalog"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testPoolErr = fmt.Errorf("failed to start postgres container: %w", err)
			return
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			testPoolErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}

		testPool, testPoolErr = pgxpool.New(ctx, connectionStr)
	})
	require.NoError(t, testPoolErr)
	return testPool
}

// newRepository migrates a table unique to the calling test.
func newRepository(t *testing.T) *postgres.Repository {
	t.Helper()
	pool := sharedPool(t)
	ctx := context.Background()

	table := "images_" + uuid.NewString()[:8]
	require.NoError(t, postgres.Migrate(ctx, pool, table))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table))
	})
	return postgres.New(pool, table)
}

func TestRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) imagecatalog.MetadataStore {
		return newRepository(t)
	})
}

func TestRepository_MigrateIsIdempotent(t *testing.T) {
	pool := sharedPool(t)
	ctx := context.Background()

	table := "images_" + uuid.NewString()[:8]
	require.NoError(t, postgres.Migrate(ctx, pool, table))
	require.NoError(t, postgres.Migrate(ctx, pool, table))
	_, _ = pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table))
}

func TestRepository_MissingTable(t *testing.T) {
	pool := sharedPool(t)
	repo := postgres.New(pool, "does_not_exist")

	_, err := repo.QueryAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration required")
}

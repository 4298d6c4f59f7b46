package sqlcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/sqlcache"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormPostgres.Open(connStr), &gorm.Config{})
	require.NoError(t, err)

	return db, func() {
		postgresContainer.Terminate(ctx)
	}
}

func TestStore_Integration_PutAndLoadAll(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := sqlcache.New(db)
	require.NoError(t, err)

	ctx := context.Background()

	tests := []struct {
		name string
		key  cache.EntryKey
		res  sqlcache.StoredResult
	}{
		{
			name: "successful value",
			key:  cache.EntryKey{Category: "shortlink", Key: "https://short.example/a"},
			res:  sqlcache.StoredResult{Value: "https://example.com/resolved", Duration: 15 * time.Millisecond},
		},
		{
			name: "errored build",
			key:  cache.EntryKey{Category: "shortlink", Key: "https://short.example/dead"},
			res:  sqlcache.StoredResult{Err: errors.New("upstream 404"), Duration: 5 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		require.NoError(t, store.Put(ctx, tt.key, tt.res))
	}

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := loaded[tt.key]
			require.True(t, ok)
			assert.Equal(t, tt.res.Duration, got.Duration)
			if tt.res.Err != nil {
				require.Error(t, got.Err)
				assert.Equal(t, tt.res.Err.Error(), got.Err.Error())
			} else {
				assert.NoError(t, got.Err)
				assert.Equal(t, tt.res.Value, got.Value)
			}
		})
	}
}

func TestStore_Integration_PutOverwritesExisting(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := sqlcache.New(db)
	require.NoError(t, err)

	ctx := context.Background()
	key := cache.EntryKey{Category: "cat", Key: "key"}

	require.NoError(t, store.Put(ctx, key, sqlcache.StoredResult{Value: "first"}))
	require.NoError(t, store.Put(ctx, key, sqlcache.StoredResult{Value: "second"}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)

	got, ok := loaded[key]
	require.True(t, ok)
	assert.Equal(t, "second", got.Value)
}

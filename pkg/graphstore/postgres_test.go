package graphstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore spins up a throwaway Postgres container, runs migrations
// against it, and returns a PostgresStore; the container is terminated
// through t.Cleanup. Skipped in short mode since it needs a container
// runtime.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("vulnassess"),
		postgres.WithUsername("vulnassess"),
		postgres.WithPassword("vulnassess"),
		postgres.BasicWaitStrategies(),
		wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(ctx, Config{DSN: dsn, RunMigrations: true})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func TestPostgresStore_CreateNodeAndRelationshipRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	repoID, err := store.CreateNode(ctx, []string{LabelRepository}, map[string]any{"name": "demo"})
	require.NoError(t, err)
	fileID, err := store.CreateNode(ctx, []string{LabelFile}, map[string]any{"path": "app.py", "language": "python"})
	require.NoError(t, err)
	require.NoError(t, store.CreateRelationship(ctx, repoID, fileID, RelHasFile, nil))

	ids, err := store.FilesForRepository(ctx, repoID)
	require.NoError(t, err)
	require.Equal(t, []string{fileID}, ids)
}

func TestPostgresStore_LoadFileContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fileID, err := store.CreateNode(ctx, []string{LabelFile}, map[string]any{"path": "app.py", "language": "python"})
	require.NoError(t, err)
	contentID, err := store.CreateNode(ctx, []string{LabelCodeContent}, map[string]any{"content": "print('hi')"})
	require.NoError(t, err)
	require.NoError(t, store.CreateRelationship(ctx, fileID, contentID, RelHasContent, nil))

	content, path, language, found, err := store.LoadFileContent(ctx, fileID)

	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "print('hi')", content)
	require.Equal(t, "app.py", path)
	require.Equal(t, "python", language)
}

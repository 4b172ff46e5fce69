package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfold/printq/internal/queue"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, sampleJobs()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleJobs(), got)
}

func TestSQLiteStoreEmpty(t *testing.T) {
	s, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStoreSaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, sampleJobs()))
	require.NoError(t, s.Save(ctx, []queue.Job{{QueuePosition: 1, OrderID: "only"}}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].OrderID)
}

func TestSQLiteStoreOrdersByPosition(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, []queue.Job{
		{QueuePosition: 2, OrderID: "second"},
		{QueuePosition: 1, OrderID: "first"},
	}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].OrderID)
	assert.Equal(t, "second", got[1].OrderID)
}

func TestSQLiteStoreCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.db")

	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ml_dashboard/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend runs the shared contract every backend must honour
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Load(ctx, "ml-dashboard-state")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Save(ctx, "ml-dashboard-state", []byte(`{"sessionId":"s1"}`)))
	data, err := b.Load(ctx, "ml-dashboard-state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"s1"}`, string(data))

	require.NoError(t, b.Save(ctx, "ml-dashboard-state", []byte(`{"sessionId":"s2"}`)))
	data, err = b.Load(ctx, "ml-dashboard-state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"s2"}`, string(data))

	// keys are independent
	_, err = b.Load(ctx, "ml-dashboard-models")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Delete(ctx, "ml-dashboard-state"))
	_, err = b.Load(ctx, "ml-dashboard-state")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Delete(ctx, "never-written"))
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	b, err := NewFileStorage(dir)
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)
}

func TestFileStorageLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), "ml-dashboard-models", []byte(`[]`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ml-dashboard-models.json", entries[0].Name())
}

func TestFileStorageSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), "../escape", []byte(`1`)))
	_, err = os.Stat(filepath.Join(dir, ".._escape.json"))
	assert.NoError(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "dashboard.db")
	b, err := NewSQLiteStorage(context.Background(), path)
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)
}

func TestSQLiteStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dashboard.db")

	b, err := NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, b.Close())

	b, err = NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	defer b.Close()
	data, err := b.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestMemoryStorage(t *testing.T) {
	exerciseBackend(t, NewMemoryStorage(0))
}

func TestMemoryStorageExpires(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryStorage(time.Millisecond)
	require.NoError(t, b.Save(ctx, "k", []byte(`1`)))

	time.Sleep(5 * time.Millisecond)
	_, err := b.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	b, err := NewRedisStorage(context.Background(), redisURL, time.Minute)
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)

	ctx := context.Background()
	require.NoError(t, b.Save(ctx, "ttl-check", []byte(`1`)))
	ttl, err := b.TTL(ctx, "ttl-check")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, b.Delete(ctx, "ttl-check"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, model.StorageConfig{Driver: "file", Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, b)

	b, err = Open(ctx, model.StorageConfig{Driver: "SQLite", SQLitePath: filepath.Join(dir, "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, b)
	require.NoError(t, b.Close())

	b, err = Open(ctx, model.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, b)

	_, err = Open(ctx, model.StorageConfig{Driver: "etcd"})
	assert.Error(t, err)
}

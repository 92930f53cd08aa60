package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

func TestKVStorage_CaseInsensitiveKeys(t *testing.T) {
	storage := NewKVStorage(openTestDB(t), common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "Default_Provider", "claude", "preferred AI provider"))

	value, err := storage.Get(ctx, "default_provider")
	require.NoError(t, err)
	assert.Equal(t, "claude", value)

	value, err = storage.Get(ctx, "DEFAULT_PROVIDER")
	require.NoError(t, err)
	assert.Equal(t, "claude", value)
}

func TestKVStorage_GetMissing(t *testing.T) {
	storage := NewKVStorage(openTestDB(t), common.GetLogger())

	_, err := storage.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorage_SetPreservesCreatedAt(t *testing.T) {
	storage := NewKVStorage(openTestDB(t), common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "theme", "dark", ""))

	pairs, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	created := pairs[0].CreatedAt

	require.NoError(t, storage.Set(ctx, "theme", "light", ""))

	pairs, err = storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "light", pairs[0].Value)
	assert.Equal(t, created.UnixNano(), pairs[0].CreatedAt.UnixNano())
}

func TestKVStorage_Delete(t *testing.T) {
	storage := NewKVStorage(openTestDB(t), common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "theme", "dark", ""))
	require.NoError(t, storage.Delete(ctx, "THEME"))

	_, err := storage.Get(ctx, "theme")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	assert.ErrorIs(t, storage.Delete(ctx, "theme"), interfaces.ErrKeyNotFound)
}

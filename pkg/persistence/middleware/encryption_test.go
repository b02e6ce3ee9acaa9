package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretSnapshot() domain.SnapshotNode {
	return domain.NewSnapshot(domain.Node{
		ID: domain.RootID,
		Fields: []domain.Node{
			{ID: "api", Type: "text", Payload: map[string]any{"token": "my-secret-sauce"}},
		},
	})
}

func encrypted(t *testing.T, next ports.SnapshotStore, cfg middleware.EncryptionConfig) ports.SnapshotStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "draft", secretSnapshot()))

	stored, err := underlying.Load(ctx, "draft")
	require.NoError(t, err)
	assert.Equal(t, domain.RootID, stored.ID)
	assert.Empty(t, stored.Fields, "structure is hidden")
	assert.Contains(t, stored.Payload, middleware.EnvelopeKey)
	assert.NotContains(t, stored.Payload[middleware.EnvelopeKey], "my-secret-sauce")

	loaded, err := secure.Load(ctx, "draft")
	require.NoError(t, err)
	api, ok := loaded.Node().Find("api")
	require.True(t, ok)
	assert.Equal(t, "my-secret-sauce", api.Payload["token"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldStore.Save(ctx, "rotation", secretSnapshot()))

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err, "fallback key decrypts old snapshots")
	assert.Equal(t, []string{"api"}, loaded.Node().IDs())

	require.NoError(t, newStore.Save(ctx, "rotation", loaded))
	_, err = oldStore.Load(ctx, "rotation")
	assert.Error(t, err, "old key alone cannot read snapshots sealed with the new key")
}

func TestEncryptionMiddleware_PlainSnapshot(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", secretSnapshot()))

	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(ctx, "plain")
	assert.ErrorContains(t, err, "missing its encrypted envelope")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

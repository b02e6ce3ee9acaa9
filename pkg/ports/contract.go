package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot() domain.SnapshotNode {
	return domain.NewSnapshot(domain.Node{
		ID: domain.RootID,
		Fields: []domain.Node{
			{
				ID:           "group",
				Type:         "group",
				Name:         "Contact",
				ContainerID:  domain.RootID,
				ParentNodeID: domain.RootID,
				Payload:      map[string]any{"legend": "Contact", "count": 42},
				Fields: []domain.Node{
					{ID: "email", Type: "text", ContainerID: "group-body", ParentNodeID: "group"},
				},
			},
			{ID: "submit", Type: "button", ContainerID: domain.RootID, ParentNodeID: domain.RootID},
		},
	})
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	name := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot()

		err := store.Save(ctx, name, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.RootID, loaded.ID)
		assert.Equal(t, snap.Node().IDs(), loaded.Node().IDs())

		group, ok := loaded.Node().Find("group")
		require.True(t, ok)
		assert.Equal(t, "Contact", group.Payload["legend"])
		assert.Equal(t, "group-body", group.Fields[0].ContainerID)
		// JSON backed stores turn ints into float64, only existence is checked.
		assert.NotNil(t, group.Payload["count"])
		require.Len(t, loaded.Fields[0].InitialElements, 1, "initialElements mirror fields")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, domain.NewSnapshot(domain.Node{ID: domain.RootID})))
		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, loaded.Node().Fields)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractSnapshot()))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		assert.NoError(t, store.Delete(ctx, name), "deleting twice is fine")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		_ = store.Save(ctx, id1, contractSnapshot())
		_ = store.Save(ctx, id2, contractSnapshot())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}

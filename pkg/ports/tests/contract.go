package tests

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// LayoutLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.LayoutLoader.
// want is the layout the loader is expected to produce.
func LayoutLoaderContractTest(t *testing.T, loader ports.LayoutLoader, want []domain.Node) {
	t.Helper()
	ctx := context.Background()

	// 1. Load (Success)
	t.Run("Load_Success", func(t *testing.T) {
		got, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading layout: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d top-level elements, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i].ID != want[i].ID {
				t.Errorf("element %d: got id %q, want %q", i, got[i].ID, want[i].ID)
			}
			if got[i].Count() != want[i].Count() {
				t.Errorf("element %s: got %d nodes, want %d", want[i].ID, got[i].Count(), want[i].Count())
			}
		}
	})

	// 2. Load produces a valid batch
	t.Run("Load_Valid", func(t *testing.T) {
		got, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading layout: %v", err)
		}
		if err := domain.ValidateTree(domain.Node{ID: domain.RootID, Fields: got}); err != nil {
			t.Errorf("layout is not a valid tree: %v", err)
		}
	})
}

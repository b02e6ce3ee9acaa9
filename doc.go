/*
Package arbor is a hierarchical tree state engine for drag-and-drop builders.

It keeps the tree of elements a visual builder renders (forms, pages, dashboards) as the
single source of truth, reconciles the child lists submitted by each container and
notifies subscribers through an event bus with four channels: change, flush,
elementUpdate and elementRemove.

# Concept

Every node of the tree may host one or more containers. A container owns the ordered
slice of its parent's fields that carries its id, so a group with a "body" and a
"footer" keeps both lists in the same Fields slice. Drag and drop is expressed as
operations on containers: reconcile a full child list, add at an index, remove, move
and trash. The engine serializes them and publishes the resulting tree.

# Key Features

  - Reconciliation: submitted child lists keep the subtree of known ids unless new fields are given.
  - Event Bus: listeners subscribe per channel; a flush suppresses the nested change.
  - Snapshots: function-free copies of the tree, persisted through pluggable stores.
  - Palette: element templates that spawn fresh ids for the builder's sidebar.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/adapters/layout"
		"github.com/aretw0/arbor/pkg/domain"
	)

	func main() {
		eng := arbor.New(arbor.WithLayoutLoader(layout.New("./layout.yaml")))

		eng.Bus().OnChange(func(tree domain.Node) {
			fmt.Println("tree changed:", tree.IDs())
		})

		ctx := context.Background()
		if err := eng.Bootstrap(ctx); err != nil {
			log.Fatal(err)
		}

		// A container submits its new child list after a drop.
		err := eng.Reconcile(ctx, "contact-body", "contact", []domain.Node{
			{ID: "email", Type: "text"},
			{ID: "phone", Type: "text"},
		})
		if err != nil {
			log.Fatal(err)
		}
	}
*/
package arbor

/*
Package ports defines the driven ports (interfaces) for the Arbor engine.

These interfaces decouple the tree engine from external implementations, allowing
snapshots to be kept in various storage backends and layouts to come from various sources.

# Key Interfaces

  - SnapshotStore: Responsible for persisting and loading named tree snapshots.
  - LayoutLoader: Responsible for loading the initial elements of the canvas (e.g., from YAML).
  - DistributedLocker: Provides distributed locking for snapshot writes across replicas.
  - TreeEngine: The operations the outer adapters (HTTP, MCP) drive.
*/
package ports

/*
Package domain contains the core data model of the Arbor state engine.

It defines the plain, serializable records that make up the canonical tree and the
payloads published on the event bus. Behavior (removal, update and flush hooks) is
kept apart from data in Binding, so a Node is always safe to encode.

# Key Entities

  - Node: one placed element or container, with its ordered children in Fields.
  - Element: the sanitized projection of a Node handed to external code.
  - SnapshotNode: a function-free copy of a Node that mirrors Fields into InitialElements.
  - Binding: the capability hooks a container registers for each node it owns.
  - Channel: one of the four event categories (change, flush, elementUpdate, elementRemove).
*/
package domain

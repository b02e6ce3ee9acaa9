package domain

import "errors"

var (
	// ErrNodeNotFound is returned when a parent node cannot be located in the tree.
	ErrNodeNotFound = errors.New("node not found")

	// ErrElementNotFound is returned when an element is not a child of the expected parent.
	ErrElementNotFound = errors.New("element not found")

	// ErrInvalidID is returned when a submitted node has an empty id.
	ErrInvalidID = errors.New("invalid element id")

	// ErrDuplicateID is returned when an id collides with a sibling.
	ErrDuplicateID = errors.New("duplicate element id")

	// ErrCapacityExceeded is returned by containers holding a maximum number of children.
	ErrCapacityExceeded = errors.New("container capacity exceeded")

	// ErrUnknownChannel is returned when subscribing to a channel that does not exist.
	ErrUnknownChannel = errors.New("no such event")

	// ErrNilListener is returned when subscribing without a callback.
	ErrNilListener = errors.New("listener has to be a function")

	// ErrSnapshotNotFound is returned when a named snapshot does not exist in the store.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrUnknownTemplate is returned when the palette has no template for a type.
	ErrUnknownTemplate = errors.New("unknown palette template")
)

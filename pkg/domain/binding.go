package domain

// DoneFunc is invoked with the full tree once a mutation has been applied.
type DoneFunc func(tree Node)

// RemoveHook removes elementID from the owner's local list and reconciles.
// When dispatch is true the owner asks the store to publish elementRemove{trashed: true}.
type RemoveHook func(elementID string, onDone DoneFunc, dispatch bool)

// UpdateHook applies the allow-listed subset of patch and reports whether the element was found.
type UpdateHook func(patch map[string]any, onDone DoneFunc) bool

// FlushHook clears the owner's local children.
type FlushHook func(onDone DoneFunc)

// SyncHook re-submits the owner's local list.
type SyncHook func(onDone DoneFunc)

// Binding holds the capability hooks a container registers for one node.
// Owner is the id of the container that registered it.
type Binding struct {
	Owner  string
	Remove RemoveHook
	Update UpdateHook
	Flush  FlushHook
	Sync   SyncHook
}

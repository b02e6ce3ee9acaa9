/*
Package container implements the collaborator side of Arbor: drop targets that own a
local ordered list of elements and submit it to the tree.Store on every change.

A Container registers a domain.Binding for every element it holds, so the store can
delegate removal, update and flush back to the owner. NewCanvas builds the root
container, whose id and parent are both "root".

DragState replaces the global drag bookkeeping of a browser drag-and-drop session:
which element is being dragged, from where, whether the pointer left its container,
and the current drop position. Trash removes dragged elements with the dispatch flag,
so the store reports them as trashed.
*/
package container

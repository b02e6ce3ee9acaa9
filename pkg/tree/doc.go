/*
Package tree implements the canonical node tree of Arbor and its reconciliation algorithm.

Containers only know their own local list of children. Store.Reconcile merges such a
partial batch into the shared tree, deciding from the batch alone whether it is an
initial population, a removal, an in-place update or the arrival of a moved-in
element. Every applied mutation invokes the caller's completion callback and is then
announced on the events.Bus.

Nodes live in an arena of slots addressed by integer handles; children are stored as
handle lists, so the tree owns no cyclic pointers. Behavior is bound per node id
through domain.Binding and never stored inside the tree.

A Store is not safe for concurrent use. Callers serialize access (see arbor.Engine);
hooks invoked from inside an operation may call back into the Store.
*/
package tree

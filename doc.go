/*
Package pathtree provides an immutable, path-addressable tree of
JSON-like data (objects, arrays and scalars) with structural sharing.
Every update returns a new version of the tree; the old version is
untouched, and the new one shares every subtree that the update did
not touch. Versions can be diffed cheaply, persisted to anything that
can store named blobs (a filesystem, KV store, or blob store), and
loaded back, sharing nodes across versions through a cache.

Uses

- Snapshots of application state for undo, time travel, and change
detection by reference comparison

- Copy-on-write alternative to deep-copying nested maps and slices

- Content-addressed storage of document versions

Paths

A Path is a sequence of Keys: Field names descend into objects and
Index positions descend into arrays. Reads of paths that do not
resolve report "not found" rather than failing. Writes create missing
intermediates: an Index key creates an array and a Field key an
object, and writing past the end of an array pads it with nulls, up to
MaxArrayPad of them.

	t := pathtree.New()
	t2, err := t.SetIn(pathtree.MustPath("todos", 0, "done"), true)
	// t is still {}; t2 is {"todos": [{"done": true}]}

Structural sharing

SetIn copies only the branches from the root to the written node.
Siblings of every copied branch are the same *Node in both versions,
so equality of an unchanged part can be checked with ==, and Diff
skips shared subtrees without visiting them.

Drafts

Produce runs a recipe that reads and writes a Draft, and
ProduceWithPatches also returns the recorded Patches and their
inverses, so a change can be replayed elsewhere or undone.

Concurrency

Nodes are never modified after construction, so any number of
goroutines may read, update and persist a shared Tree. Each update
produces an independent version.

Persistence

Save encodes each branch as a record whose branch children are
replaced by links, the base64url BLAKE2b-256 hash of their records.
Records are content addressed, so a Persist need only be write-once,
and a NodeCache avoids re-encoding and re-storing nodes that an
earlier Save or Load has already seen.
*/
package pathtree

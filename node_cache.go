package pathtree

import lru "github.com/hashicorp/golang-lru"

// NodeCache caches the immutable nodes from a remote storage source, by
// link, and the links of nodes already persisted. It is also used to avoid
// re-storing nodes, so care should be taken to switch/invalidate NodeCache
// when the Persist is changed.
type NodeCache interface {
	// Add adds a freshly-persisted or freshly-loaded entry to the cache.
	Add(key, value interface{})
	// Contains indicates an entry with the given key is cached.
	Contains(key interface{}) bool
	// Get retrieves the cached entry with the given key.
	Get(key interface{}) (value interface{}, ok bool)
}

// NewNodeCache creates a new ARC-based node cache of the given size. One
// cache can be shared by any number of trees, and by loads and saves from
// any number of goroutines.
func NewNodeCache(size int) NodeCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}

// nodeKey is the cache key under which a persisted node's link is kept.
type nodeKey struct {
	format NodeFormat
	node   *Node
}

package pathtree

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/minio/blake2b-simd"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is how many Store calls Save keeps in flight.
const DefaultConcurrency = 40

// Persist is the interface for loading and storing (serialized) tree nodes.
// The given string identity corresponds to the content which is immutable
// (never modified).
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// RemoteConfig controls how nodes are persisted and loaded.
type RemoteConfig struct {
	// StoreImmutablePartsWith is used to store and load serialized nodes.
	StoreImmutablePartsWith Persist

	// NodeCache caches persisted and loaded nodes and may be shared across
	// multiple trees. Without one, every Save re-encodes the whole tree and
	// loaded versions share nothing.
	NodeCache NodeCache

	// NodeFormat is the serialization used by Save. Load uses the format
	// recorded in the Root.
	NodeFormat NodeFormat

	// Concurrency bounds in-flight Store calls; 0 means DefaultConcurrency.
	Concurrency int

	// Log receives debug logging; nil means logrus.StandardLogger().
	Log logrus.FieldLogger
}

func (cfg *RemoteConfig) log() logrus.FieldLogger {
	if cfg.Log == nil {
		return logrus.StandardLogger()
	}
	return cfg.Log
}

// Root identifies a version of a tree whose nodes are accessible in the
// persistent store.
type Root struct {
	Link   string     `json:"link"`
	Format NodeFormat `json:"format"`
}

func hashLink(b []byte) string {
	sum := blake2b.Sum256(b)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

type saver struct {
	codec   codec
	format  NodeFormat
	cache   NodeCache
	links   map[*Node]string
	pending map[string][]byte
	fresh   []*Node
}

// link encodes n and the branches beneath it that are not already
// persisted, returning n's content hash.
func (s *saver) link(n *Node) (string, error) {
	if l, ok := s.links[n]; ok {
		return l, nil
	}
	if s.cache != nil {
		if l, ok := s.cache.Get(nodeKey{s.format, n}); ok {
			return l.(string), nil
		}
	}
	encoded, err := s.codec.encode(n, s.link)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	l := hashLink(encoded)
	s.links[n] = l
	s.fresh = append(s.fresh, n)
	if s.cache == nil || !s.cache.Contains(l) {
		s.pending[l] = encoded
	}
	return l, nil
}

// Save writes every node of the tree not yet known to be persisted, and
// returns the Root by which the version can be loaded again.
func (t *Tree) Save(ctx context.Context, cfg *RemoteConfig) (*Root, error) {
	if cfg == nil || cfg.StoreImmutablePartsWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set RemoteConfig.StoreImmutablePartsWith")
	}
	c, err := codecFor(cfg.NodeFormat)
	if err != nil {
		return nil, err
	}
	s := saver{
		codec:   c,
		format:  cfg.NodeFormat,
		cache:   cfg.NodeCache,
		links:   map[*Node]string{},
		pending: map[string][]byte{},
	}
	link, err := s.link(t.root)
	if err != nil {
		return nil, err
	}

	limit := cfg.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for name, encoded := range s.pending {
		name, encoded := name, encoded
		g.Go(func() error {
			if err := cfg.StoreImmutablePartsWith.Store(gctx, name, encoded); err != nil {
				return fmt.Errorf("persist store %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.cache != nil {
		for _, n := range s.fresh {
			l := s.links[n]
			s.cache.Add(nodeKey{s.format, n}, l)
			s.cache.Add(l, n)
		}
	}
	cfg.log().WithFields(logrus.Fields{
		"link":    link,
		"stored":  len(s.pending),
		"encoded": len(s.fresh),
	}).Debug("saved tree")
	return &Root{Link: link, Format: cfg.NodeFormat}, nil
}

type loader struct {
	ctx     context.Context
	codec   codec
	format  NodeFormat
	persist Persist
	cache   NodeCache
	nodes   map[string]*Node
	loaded  int
	cached  int
}

func (l *loader) load(link string) (*Node, error) {
	if n, ok := l.nodes[link]; ok {
		return n, nil
	}
	if l.cache != nil {
		if n, ok := l.cache.Get(link); ok {
			l.cached++
			return n.(*Node), nil
		}
	}
	b, err := l.persist.Load(l.ctx, link)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", link, err)
	}
	if hashLink(b) != link {
		return nil, fmt.Errorf("%w: %s: content hash mismatch", ErrCorruptNode, link)
	}
	n, err := l.codec.decode(b, l.load)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptNode, link, err)
	}
	l.nodes[link] = n
	l.loaded++
	if l.cache != nil {
		l.cache.Add(link, n)
		l.cache.Add(nodeKey{l.format, n}, link)
	}
	return n, nil
}

// Load reads the tree version identified by r, verifying every node it
// reads against its link. Nodes found in the NodeCache are reused, so
// versions loaded through one cache share their common subtrees.
func (r *Root) Load(ctx context.Context, cfg *RemoteConfig) (*Tree, error) {
	if cfg == nil || cfg.StoreImmutablePartsWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set RemoteConfig.StoreImmutablePartsWith")
	}
	c, err := codecFor(r.Format)
	if err != nil {
		return nil, err
	}
	l := loader{
		ctx:     ctx,
		codec:   c,
		format:  r.Format,
		persist: cfg.StoreImmutablePartsWith,
		cache:   cfg.NodeCache,
		nodes:   map[string]*Node{},
	}
	root, err := l.load(r.Link)
	if err != nil {
		return nil, fmt.Errorf("load root: %w", err)
	}
	cfg.log().WithFields(logrus.Fields{
		"link":   r.Link,
		"loaded": l.loaded,
		"cached": l.cached,
	}).Debug("loaded tree")
	return &Tree{root: root}, nil
}

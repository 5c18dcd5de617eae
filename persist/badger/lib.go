// Package badger stores serialized tree nodes in a BadgerDB key-value
// store.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// Config controls how Open opens the database.
type Config struct {
	// Path is the database directory, created if missing. It is ignored
	// when InMemory is set.
	Path string
	// InMemory keeps the database in memory only, usually for testing.
	InMemory bool
	// Prefix is prepended to every node name to form its key, so one
	// database can hold several stores.
	Prefix string
	// SyncWrites makes each Store durable before it returns.
	SyncWrites bool
	// Log receives badger's internal logging; nil discards it.
	Log logrus.FieldLogger
}

// Persist implements the pathtree.Persist interface for storing and loading
// serialized nodes as BadgerDB entries.
type Persist struct {
	db     *badger.DB
	prefix string
	owned  bool
}

// Open opens the database described by cfg. The returned Persist must be
// closed.
func Open(cfg Config) (*Persist, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Log != nil {
		opts = opts.WithLogger(cfg.Log)
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Persist{db: db, prefix: cfg.Prefix, owned: true}, nil
}

// NewPersist returns a Persist using an already-open database, which the
// caller remains responsible for closing.
func NewPersist(db *badger.DB, prefix string) *Persist {
	return &Persist{db: db, prefix: prefix}
}

func (p *Persist) key(name string) []byte {
	return []byte(p.prefix + name)
}

// Load loads the bytes persisted under the given name.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var b []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key(name))
		if err != nil {
			return err
		}
		b, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger load %s: %w", name, err)
	}
	return b, nil
}

// Store persists the given bytes under the given name, if it isn't
// present already.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(p.key(name))
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Set(p.key(name), b)
		})
		if errors.Is(err, badger.ErrConflict) {
			// a concurrent Store of the same name; the retry will find it
			continue
		}
		if err != nil {
			return fmt.Errorf("badger store %s: %w", name, err)
		}
		return nil
	}
}

// Close closes the database if it was opened by Open.
func (p *Persist) Close() error {
	if !p.owned {
		return nil
	}
	return p.db.Close()
}

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Persist implements the pathtree.Persist interface for storing and loading
// serialized nodes as files in one directory.
type Persist struct {
	basepath string
}

func (p Persist) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid node name %q", name)
	}
	return filepath.Join(p.basepath, name), nil
}

// Load loads the bytes persisted in the named file.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := p.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Store persists the given bytes in a file of the given name, if it
// doesn't exist already. The file is written under a temporary name and
// renamed, so a reader never sees a partial node.
func (p Persist) Store(ctx context.Context, name string, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := p.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	tmp, err := os.CreateTemp(p.basepath, "."+name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// NewPersistForPath returns a Persist that loads and stores nodes as
// files in the directory at the given path.
//
//	p := NewPersistForPath("/var/db/docs")
//	b, err := p.Load(ctx, "aGVsbG8td29ybGQtbGluay1uYW1lLWV4YW1wbGU")
func NewPersistForPath(path string) Persist {
	return Persist{path}
}

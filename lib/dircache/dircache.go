// Package dircache provides a cache for canonical directory path to
// directory ID lookups.
package dircache

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/fs/fspath"
)

// Finder does the low level directory work for the cache.
type Finder interface {
	// FindLeaf looks for a directory named leaf in the directory with ID
	// pathID. found is false when no such directory exists.
	FindLeaf(ctx context.Context, pathID, leaf string) (leafID string, found bool, err error)

	// CreateDir makes a directory named leaf in the directory with ID
	// pathID and returns its ID.
	CreateDir(ctx context.Context, pathID, leaf string) (leafID string, err error)
}

// DirCache maps canonical directory paths to directory IDs.
//
// The root entry "/" is seeded at construction and survives every flush. The
// cache is safe for concurrent use; the lock protects the map only, never a
// remote call, so concurrent lookups of the same path may race and both go to
// the remote. That is harmless - last write wins with an ID that was valid
// when fetched.
type DirCache struct {
	mu     sync.RWMutex
	cache  map[string]string
	rootID string
	finder Finder
}

// New makes a DirCache rooted at rootID.
func New(rootID string, finder Finder) *DirCache {
	dc := &DirCache{
		rootID: rootID,
		finder: finder,
	}
	dc.Flush()
	return dc
}

// Get returns the cached ID for a canonical directory path.
func (dc *DirCache) Get(path string) (id string, ok bool) {
	dc.mu.RLock()
	id, ok = dc.cache[path]
	dc.mu.RUnlock()
	return id, ok
}

// Put stores the ID for a canonical directory path.
func (dc *DirCache) Put(path, id string) {
	dc.mu.Lock()
	dc.cache[path] = id
	dc.mu.Unlock()
}

// RootID returns the ID of the root directory.
func (dc *DirCache) RootID() string {
	return dc.rootID
}

// Flush drops every entry and re-seeds the root.
func (dc *DirCache) Flush() {
	dc.mu.Lock()
	dc.cache = map[string]string{"/": dc.rootID}
	dc.mu.Unlock()
}

// FlushDir drops the entry for path and for everything below it, then
// re-seeds the root. Flushing "/" is equivalent to Flush.
func (dc *DirCache) FlushDir(path string) {
	if fspath.IsRoot(path) {
		dc.Flush()
		return
	}
	prefix := path + "/"
	dc.mu.Lock()
	delete(dc.cache, path)
	for p := range dc.cache {
		if strings.HasPrefix(p, prefix) {
			delete(dc.cache, p)
		}
	}
	dc.cache["/"] = dc.rootID
	dc.mu.Unlock()
}

// FindDir finds the directory at the canonical path, returning its ID.
//
// If create is set missing directories are made on the way. Without create a
// missing directory returns fs.ErrorNotFound.
//
// Algorithm: look the path up in the cache; on a miss recurse for the parent
// directory, then look for (or create) the leaf under the parent and cache
// the result. Each cached prefix saves a round trip on the next walk.
func (dc *DirCache) FindDir(ctx context.Context, path string, create bool) (pathID string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if pathID, ok := dc.Get(path); ok {
		return pathID, nil
	}

	directory, leaf := fspath.Split(path)
	parentID, err := dc.FindDir(ctx, directory, create)
	if err != nil {
		return "", err
	}

	pathID, found, err := dc.finder.FindLeaf(ctx, parentID, leaf)
	if err != nil {
		return "", err
	}
	if !found {
		if !create {
			return "", errors.Wrapf(fs.ErrorNotFound, "directory %q", path)
		}
		pathID, err = dc.finder.CreateDir(ctx, parentID, leaf)
		if err != nil {
			return "", errors.Wrapf(err, "failed to make directory %q", path)
		}
	}

	dc.Put(path, pathID)
	return pathID, nil
}

// FindPath finds the directory ID for the parent of the canonical path and
// returns it with the leaf name. With create set the parent directories are
// made if missing.
func (dc *DirCache) FindPath(ctx context.Context, path string, create bool) (leaf, directoryID string, err error) {
	directory, leaf := fspath.Split(path)
	directoryID, err = dc.FindDir(ctx, directory, create)
	if err != nil {
		return "", "", err
	}
	return leaf, directoryID, nil
}

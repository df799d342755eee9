// Package graphfs implements the path-addressed fs.FileSystem API on top of
// an ID-addressed object graph.
//
// The remote store has no native notion of paths: nodes are opaque IDs tied
// together by parent-child edges, and the only name resolution primitive is a
// per-parent name lookup. graphfs projects a POSIX-style namespace onto that
// graph by walking path segments through a directory-ID cache and expressing
// every tree operation as graph edits.
package graphfs

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/fs/fspath"
	"github.com/treefs/treefs/lib/dircache"
)

// Fs implements fs.FileSystem over a Store.
//
// The directory cache is owned by the Fs instance and lives as long as it
// does. Entries can go stale if another client mutates the remote tree; that
// is an accepted limitation, not defended against.
type Fs struct {
	store    Store
	dirCache *dircache.DirCache
}

// New makes an Fs serving paths out of store.
func New(store Store) *Fs {
	f := &Fs{store: store}
	f.dirCache = dircache.New(store.RootID(), f)
	return f
}

// String converts this Fs to a string
func (f *Fs) String() string {
	return fmt.Sprintf("graph root '%s'", f.store.RootID())
}

// DirCacheFlush resets the directory cache.
func (f *Fs) DirCacheFlush() {
	f.dirCache.Flush()
}

// FindLeaf finds a directory of name leaf in the folder with ID pathID.
// Files don't count: a file at an intermediate path segment means the walk
// cannot descend and the directory is simply not found.
func (f *Fs) FindLeaf(ctx context.Context, pathID, leaf string) (pathIDOut string, found bool, err error) {
	node, err := f.store.FindChild(ctx, pathID, leaf)
	if err != nil {
		return "", false, err
	}
	if node == nil || !node.IsFolder() {
		return "", false, nil
	}
	return node.ID, true, nil
}

// CreateDir makes a directory with pathID as parent and name leaf. A file
// already holding the name is a conflict, never shadowed.
func (f *Fs) CreateDir(ctx context.Context, pathID, leaf string) (newID string, err error) {
	existing, err := f.store.FindChild(ctx, pathID, leaf)
	if err != nil {
		return "", err
	}
	if existing != nil && !existing.IsFolder() {
		return "", errors.Wrapf(fs.ErrorIsFile, "%q", leaf)
	}
	node, err := f.store.CreateFolder(ctx, pathID, leaf)
	if err != nil {
		return "", err
	}
	return node.ID, nil
}

// resolve finds the node the canonical path denotes, or fs.ErrorNotFound.
//
// The root resolves to a synthetic folder node wrapping the store's root ID.
// Otherwise the parent directory is found through the cache-backed walk and
// the leaf looked up under it; a resolved folder is put into the cache on the
// way out. A miss at any intermediate segment short-circuits - partial
// matches are never returned.
func (f *Fs) resolve(ctx context.Context, path string) (*Node, error) {
	if fspath.IsRoot(path) {
		return &Node{ID: f.store.RootID(), Kind: fs.KindFolder, Size: -1}, nil
	}
	dir, leaf := fspath.Split(path)
	dirID, err := f.dirCache.FindDir(ctx, dir, false)
	if err != nil {
		return nil, err
	}
	node, err := f.store.FindChild(ctx, dirID, leaf)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, errors.Wrapf(fs.ErrorNotFound, "%q", path)
	}
	if node.IsFolder() {
		f.dirCache.Put(path, node.ID)
	}
	return node, nil
}

// Exists reports whether path resolves.
func (f *Fs) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := f.resolve(ctx, fspath.Normalize(path))
	if errors.Is(err, fs.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadFile downloads and returns the full content of the file at path.
func (f *Fs) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := fspath.Normalize(path)
	node, err := f.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	if node.IsFolder() {
		return nil, errors.Wrapf(fs.ErrorNotFound, "%q is a directory", p)
	}
	data, err := f.store.DownloadContent(ctx, node.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %q", p)
	}
	return data, nil
}

// WriteFile stores data at path, replacing any existing file there. The
// replacement is delete-then-create, not an in-place update, so the node
// identity changes on overwrite.
func (f *Fs) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := fspath.Normalize(path)
	if fspath.IsRoot(p) {
		return errors.Wrapf(fs.ErrorIsDir, "%q", p)
	}
	leaf, dirID, err := f.dirCache.FindPath(ctx, p, true)
	if err != nil {
		return err
	}
	existing, err := f.store.FindChild(ctx, dirID, leaf)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsFolder() {
			return errors.Wrapf(fs.ErrorIsDir, "%q", p)
		}
		if err := f.store.DeleteNode(ctx, existing.ID); err != nil {
			return errors.Wrapf(err, "failed to replace %q", p)
		}
	}
	_, err = f.store.CreateFile(ctx, dirID, leaf, data)
	if err != nil {
		return errors.Wrapf(err, "failed to write %q", p)
	}
	return nil
}

// Delete removes path and all its descendants. Missing paths are a no-op;
// the root is refused.
func (f *Fs) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := fspath.Normalize(path)
	if fspath.IsRoot(p) {
		return fs.ErrorCantDeleteRoot
	}
	node, err := f.resolve(ctx, p)
	if errors.Is(err, fs.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := f.store.DeleteNode(ctx, node.ID); err != nil {
		return errors.Wrapf(err, "failed to delete %q", p)
	}
	if node.IsFolder() {
		f.dirCache.FlushDir(p)
	}
	return nil
}

// Mkdir creates the directory at path, making missing parents on the way.
// Calling it again on the same path is a no-op.
func (f *Fs) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := f.dirCache.FindDir(ctx, fspath.Normalize(path), true)
	return err
}

// List returns the immediate children of the directory at path sorted by
// name. Child folder IDs are cached for later walks.
func (f *Fs) List(ctx context.Context, path string) ([]fs.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := fspath.Normalize(path)
	node, err := f.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	if !node.IsFolder() {
		return nil, errors.Wrapf(fs.ErrorIsFile, "%q", p)
	}
	children, err := f.store.ListChildren(ctx, node.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't list directory %q", p)
	}
	entries := make([]fs.Entry, 0, len(children))
	for i := range children {
		child := &children[i]
		if child.IsFolder() {
			f.dirCache.Put(fspath.Join(p, child.Name), child.ID)
		}
		entries = append(entries, fs.Entry{Name: child.Name, Kind: child.Kind, Size: child.Size})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Check the interfaces are satisfied
var (
	_ fs.FileSystem   = (*Fs)(nil)
	_ dircache.Finder = (*Fs)(nil)
)

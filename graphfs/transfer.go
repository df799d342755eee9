package graphfs

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/fs/fspath"
)

// fileTarget is the concrete landing spot for a file copy or move.
type fileTarget struct {
	parentID string
	name     string
	existing *Node // file already holding the spot, replaced by the operation
}

// resolveFileTarget maps a user-given destination to a fileTarget.
//
// A destination resolving to a folder means "drop the file in there under its
// own name". A destination resolving to a file means "replace that file in
// place". An unresolved destination is read literally: a trailing separator
// makes it a directory to create, anything else splits into a directory to
// find-or-create plus the wanted leaf name.
func (f *Fs) resolveFileTarget(ctx context.Context, srcName, rawDst, dst string) (*fileTarget, error) {
	node, err := f.resolve(ctx, dst)
	if err == nil {
		if node.IsFolder() {
			return &fileTarget{parentID: node.ID, name: srcName}, nil
		}
		return &fileTarget{parentID: node.Parent(), name: node.Name, existing: node}, nil
	}
	if !errors.Is(err, fs.ErrorNotFound) {
		return nil, err
	}
	if fspath.EndsWithSeparator(rawDst) {
		dirID, err := f.dirCache.FindDir(ctx, dst, true)
		if err != nil {
			return nil, err
		}
		return &fileTarget{parentID: dirID, name: srcName}, nil
	}
	leaf, dirID, err := f.dirCache.FindPath(ctx, dst, true)
	if err != nil {
		return nil, err
	}
	sibling, err := f.store.FindChild(ctx, dirID, leaf)
	if err != nil {
		return nil, err
	}
	if sibling != nil && sibling.IsFolder() {
		return nil, errors.Wrapf(fs.ErrorIsDir, "%q", dst)
	}
	return &fileTarget{parentID: dirID, name: leaf, existing: sibling}, nil
}

// resolveOrCreateDir returns the ID of the directory at dst, creating it if
// missing. An existing file at dst is a conflict.
func (f *Fs) resolveOrCreateDir(ctx context.Context, dst string) (string, error) {
	node, err := f.resolve(ctx, dst)
	if err == nil {
		if !node.IsFolder() {
			return "", errors.Wrapf(fs.ErrorIsFile, "%q", dst)
		}
		return node.ID, nil
	}
	if !errors.Is(err, fs.ErrorNotFound) {
		return "", err
	}
	return f.dirCache.FindDir(ctx, dst, true)
}

// checkOverlap rejects a directory destination lying inside its own source.
// Same-path calls are not an overlap; callers treat those as no-ops.
func checkOverlap(srcPath, dstPath string) error {
	if strings.HasPrefix(dstPath, srcPath+"/") {
		return errors.Wrapf(fs.ErrorOverlapping, "%q into %q", srcPath, dstPath)
	}
	return nil
}

// copyFileInto server-side copies the file src into the folder dstParentID
// under name, replacing a same-named destination file. A same-named
// destination folder is a conflict.
func (f *Fs) copyFileInto(ctx context.Context, src *Node, dstParentID, name string) error {
	existing, err := f.store.FindChild(ctx, dstParentID, name)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsFolder() {
			return errors.Wrapf(fs.ErrorIsDir, "%q", name)
		}
		if err := f.store.DeleteNode(ctx, existing.ID); err != nil {
			return errors.Wrapf(err, "failed to replace %q", name)
		}
	}
	_, err = f.store.CopyNode(ctx, src.ID, dstParentID, name)
	return err
}

// copyContents recursively mirrors the children of srcDirID into dstDirID.
// Same-named destination folders are reused, same-named destination files
// replaced; kind clashes are conflicts. The source is left untouched.
func (f *Fs) copyContents(ctx context.Context, srcDirID, dstDirID string) error {
	children, err := f.store.ListChildren(ctx, srcDirID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := &children[i]
		if !child.IsFolder() {
			if err := f.copyFileInto(ctx, child, dstDirID, child.Name); err != nil {
				return err
			}
			continue
		}
		target, err := f.store.FindChild(ctx, dstDirID, child.Name)
		if err != nil {
			return err
		}
		if target != nil && !target.IsFolder() {
			return errors.Wrapf(fs.ErrorIsFile, "%q", child.Name)
		}
		if target == nil {
			target, err = f.store.CreateFolder(ctx, dstDirID, child.Name)
			if err != nil {
				return err
			}
		}
		if err := f.copyContents(ctx, child.ID, target.ID); err != nil {
			return err
		}
	}
	return nil
}

// Copy copies the file or directory tree at src to dst. A missing source and
// a destination equal to the source are no-ops; a directory destination
// inside the source is rejected with ErrorOverlapping. The source is never
// modified; a failure partway through a directory copy leaves the destination
// partially populated.
func (f *Fs) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcPath, dstPath := fspath.Normalize(src), fspath.Normalize(dst)
	srcNode, err := f.resolve(ctx, srcPath)
	if errors.Is(err, fs.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !srcNode.IsFolder() {
		target, err := f.resolveFileTarget(ctx, srcNode.Name, dst, dstPath)
		if err != nil {
			return err
		}
		if target.existing != nil {
			if target.existing.ID == srcNode.ID {
				// copying a file onto itself
				return nil
			}
			if err := f.store.DeleteNode(ctx, target.existing.ID); err != nil {
				return errors.Wrapf(err, "failed to replace %q", dstPath)
			}
		}
		_, err = f.store.CopyNode(ctx, srcNode.ID, target.parentID, target.name)
		return err
	}
	if dstPath == srcPath {
		return nil
	}
	if err := checkOverlap(srcPath, dstPath); err != nil {
		return err
	}
	dstID, err := f.resolveOrCreateDir(ctx, dstPath)
	if err != nil {
		return err
	}
	fs.Debugf(f, "copying directory %q to %q", srcPath, dstPath)
	return f.copyContents(ctx, srcNode.ID, dstID)
}

// Move moves src to dst. A missing source and a destination equal to the
// source are no-ops; a directory destination inside the source is rejected
// with ErrorOverlapping.
//
// A file moves as an in-place parent and name update, keeping its node ID.
// The store offers no server-side subtree move across a path rename, so a
// directory moves as copy-contents-then-delete-source; the tree shape changes
// too broadly for precise invalidation, so the whole cache is cleared after.
func (f *Fs) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcPath, dstPath := fspath.Normalize(src), fspath.Normalize(dst)
	srcNode, err := f.resolve(ctx, srcPath)
	if errors.Is(err, fs.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !srcNode.IsFolder() {
		target, err := f.resolveFileTarget(ctx, srcNode.Name, dst, dstPath)
		if err != nil {
			return err
		}
		if target.existing != nil {
			if target.existing.ID == srcNode.ID {
				// moving a file onto itself
				return nil
			}
			if err := f.store.DeleteNode(ctx, target.existing.ID); err != nil {
				return errors.Wrapf(err, "failed to replace %q", dstPath)
			}
		}
		update := NodeUpdate{Name: target.name}
		if target.parentID != srcNode.Parent() {
			update.AddParent = target.parentID
			update.RemoveParent = srcNode.Parent()
		}
		if err := f.store.UpdateNode(ctx, srcNode.ID, update); err != nil {
			return errors.Wrapf(err, "failed to move %q to %q", srcPath, dstPath)
		}
		return nil
	}
	if dstPath == srcPath {
		return nil
	}
	if err := checkOverlap(srcPath, dstPath); err != nil {
		return err
	}
	dstID, err := f.resolveOrCreateDir(ctx, dstPath)
	if err != nil {
		return err
	}
	fs.Debugf(f, "moving directory %q to %q", srcPath, dstPath)
	if err := f.copyContents(ctx, srcNode.ID, dstID); err != nil {
		return err
	}
	if err := f.store.DeleteNode(ctx, srcNode.ID); err != nil {
		return errors.Wrapf(err, "failed to remove moved directory %q", srcPath)
	}
	f.dirCache.Flush()
	return nil
}

// Rename changes the leaf name of path in place, without moving it. A
// different sibling already holding newName is a conflict; renaming to the
// current name is a permitted no-op. Folder renames clear the whole cache -
// every cached descendant path is wrong afterwards. File renames don't touch
// the cache.
func (f *Fs) Rename(ctx context.Context, path, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if newName == "" || strings.ContainsAny(newName, `/\`) {
		return errors.Wrapf(fs.ErrorInvalidName, "%q", newName)
	}
	p := fspath.Normalize(path)
	if fspath.IsRoot(p) {
		return errors.Wrap(fs.ErrorInvalidName, "can't rename the root directory")
	}
	node, err := f.resolve(ctx, p)
	if err != nil {
		return err
	}
	if node.Name == newName {
		return nil
	}
	sibling, err := f.store.FindChild(ctx, node.Parent(), newName)
	if err != nil {
		return err
	}
	if sibling != nil && sibling.ID != node.ID {
		return errors.Wrapf(fs.ErrorNameInUse, "%q", newName)
	}
	if err := f.store.UpdateNode(ctx, node.ID, NodeUpdate{Name: newName}); err != nil {
		return errors.Wrapf(err, "failed to rename %q", p)
	}
	if node.IsFolder() {
		f.dirCache.Flush()
	}
	return nil
}

// CopyAllFiles overlays every file found under src onto the equivalent
// relative position under dst. Destination directories are created lazily,
// only once a file actually lands in them, so empty source subtrees produce
// nothing. Nothing on the destination side is scanned or deleted beyond
// same-named files being replaced. A missing or non-directory source is a
// no-op.
func (f *Fs) CopyAllFiles(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcPath, dstPath := fspath.Normalize(src), fspath.Normalize(dst)
	srcNode, err := f.resolve(ctx, srcPath)
	if errors.Is(err, fs.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !srcNode.IsFolder() {
		return nil
	}
	if dstPath == srcPath {
		return nil
	}
	if err := checkOverlap(srcPath, dstPath); err != nil {
		return err
	}
	return f.copyFilesUnder(ctx, srcNode.ID, dstPath)
}

// copyFilesUnder copies the files among the children of srcDirID into the
// directory at dstDir, recursing into child folders. The destination
// directory ID is resolved on the first file only.
func (f *Fs) copyFilesUnder(ctx context.Context, srcDirID, dstDir string) error {
	children, err := f.store.ListChildren(ctx, srcDirID)
	if err != nil {
		return err
	}
	dstDirID := ""
	for i := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := &children[i]
		if child.IsFolder() {
			if err := f.copyFilesUnder(ctx, child.ID, fspath.Join(dstDir, child.Name)); err != nil {
				return err
			}
			continue
		}
		if dstDirID == "" {
			dstDirID, err = f.dirCache.FindDir(ctx, dstDir, true)
			if err != nil {
				return err
			}
		}
		if err := f.copyFileInto(ctx, child, dstDirID, child.Name); err != nil {
			return err
		}
	}
	return nil
}

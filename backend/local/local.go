// Package local provides a fs.FileSystem backed by the local filesystem.
//
// It is a direct pass-through to OS calls, kept to the same semantic envelope
// as the graph-backed variant: canonical paths, no-op on missing sources,
// overwrite-by-replace, overlay semantics for CopyAllFiles.
package local

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/fs/fspath"
)

// Fs serves canonical paths out of a base directory on local disk.
type Fs struct {
	base string
}

// New makes an Fs rooted at the directory base, creating it if missing.
func New(base string) (*Fs, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base directory %q", base)
	}
	if err := os.MkdirAll(abs, 0777); err != nil {
		return nil, errors.Wrapf(err, "failed to make base directory %q", abs)
	}
	return &Fs{base: abs}, nil
}

// String converts this Fs to a string
func (f *Fs) String() string {
	return "local root '" + f.base + "'"
}

// localPath maps a raw path onto disk under the base directory.
func (f *Fs) localPath(path string) string {
	return filepath.Join(f.base, filepath.FromSlash(fspath.Normalize(path)))
}

// isNotDir reports whether err means a file occupied a directory segment of
// the path.
func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

// checkOverlap rejects a directory destination lying inside its own source.
// Same-path calls are not an overlap; callers treat those as no-ops.
func checkOverlap(srcPath, dstPath string) error {
	if strings.HasPrefix(dstPath, srcPath+"/") {
		return errors.Wrapf(fs.ErrorOverlapping, "%q into %q", srcPath, dstPath)
	}
	return nil
}

// mapDirError converts MkdirAll failures caused by a file occupying a path
// segment into the conflict error the API promises.
func mapDirError(err error) error {
	if err == nil {
		return nil
	}
	if isNotDir(err) || errors.Is(err, syscall.EEXIST) {
		return errors.Wrap(fs.ErrorIsFile, err.Error())
	}
	return err
}

// Exists reports whether path resolves on disk.
func (f *Fs) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(f.localPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) || isNotDir(err) {
		return false, nil
	}
	return false, err
}

// ReadFile returns the full content of the file at path.
func (f *Fs) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	localPath := f.localPath(path)
	info, err := os.Stat(localPath)
	if os.IsNotExist(err) || isNotDir(err) {
		return nil, errors.Wrapf(fs.ErrorNotFound, "%q", path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.Wrapf(fs.ErrorNotFound, "%q is a directory", path)
	}
	return ioutil.ReadFile(localPath)
}

// WriteFile stores data at path, creating parent directories as needed and
// replacing an existing file.
func (f *Fs) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localPath := f.localPath(path)
	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		return errors.Wrapf(fs.ErrorIsDir, "%q", path)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0777); err != nil {
		return mapDirError(err)
	}
	return ioutil.WriteFile(localPath, data, 0666)
}

// Delete removes path recursively; missing paths are a no-op, the root is
// refused.
func (f *Fs) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fspath.IsRoot(fspath.Normalize(path)) {
		return fs.ErrorCantDeleteRoot
	}
	return os.RemoveAll(f.localPath(path))
}

// Mkdir creates the directory at path and any missing parents.
func (f *Fs) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localPath := f.localPath(path)
	if info, err := os.Stat(localPath); err == nil && !info.IsDir() {
		return errors.Wrapf(fs.ErrorIsFile, "%q", path)
	}
	if err := os.MkdirAll(localPath, 0777); err != nil {
		return mapDirError(err)
	}
	return nil
}

// List returns the immediate children of the directory at path sorted by
// name.
func (f *Fs) List(ctx context.Context, path string) ([]fs.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	localPath := f.localPath(path)
	info, err := os.Stat(localPath)
	if os.IsNotExist(err) || isNotDir(err) {
		return nil, errors.Wrapf(fs.ErrorNotFound, "%q", path)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(fs.ErrorIsFile, "%q", path)
	}
	dirEntries, err := os.ReadDir(localPath)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entry := fs.Entry{Name: de.Name(), Kind: fs.KindFile, Size: -1}
		if de.IsDir() {
			entry.Kind = fs.KindFolder
		} else if info, err := de.Info(); err == nil {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// fileTarget mirrors the destination resolution rule of the graph engine on
// local disk: an existing directory keeps the source name, an existing file
// is replaced, an unresolved destination is read literally with a trailing
// separator meaning "directory".
func (f *Fs) fileTarget(srcName, rawDst string) (localPath string, err error) {
	dst := fspath.Normalize(rawDst)
	localDst := f.localPath(dst)
	if info, err := os.Stat(localDst); err == nil {
		if info.IsDir() {
			return filepath.Join(localDst, srcName), nil
		}
		return localDst, nil
	}
	if fspath.EndsWithSeparator(rawDst) {
		if err := os.MkdirAll(localDst, 0777); err != nil {
			return "", mapDirError(err)
		}
		return filepath.Join(localDst, srcName), nil
	}
	if err := os.MkdirAll(filepath.Dir(localDst), 0777); err != nil {
		return "", mapDirError(err)
	}
	return localDst, nil
}

// Copy copies the file or directory tree at src to dst; missing sources are
// a no-op.
func (f *Fs) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localSrc := f.localPath(src)
	info, err := os.Stat(localSrc)
	if os.IsNotExist(err) || isNotDir(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		target, err := f.fileTarget(filepath.Base(localSrc), dst)
		if err != nil {
			return err
		}
		if target == localSrc {
			// copying a file onto itself
			return nil
		}
		return copyFileContents(localSrc, target)
	}
	srcP, dstP := fspath.Normalize(src), fspath.Normalize(dst)
	if dstP == srcP {
		return nil
	}
	if err := checkOverlap(srcP, dstP); err != nil {
		return err
	}
	localDst := f.localPath(dst)
	if info, err := os.Stat(localDst); err == nil && !info.IsDir() {
		return errors.Wrapf(fs.ErrorIsFile, "%q", dst)
	}
	return f.copyTree(ctx, localSrc, localDst)
}

// copyTree recursively mirrors a directory. Same-named destination files are
// replaced, kind clashes are conflicts.
func (f *Fs) copyTree(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(dst, 0777); err != nil {
		return mapDirError(err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if info, err := os.Stat(dstPath); err == nil && !info.IsDir() {
				return errors.Wrapf(fs.ErrorIsFile, "%q", entry.Name())
			}
			if err := f.copyTree(ctx, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if info, err := os.Stat(dstPath); err == nil && info.IsDir() {
			return errors.Wrapf(fs.ErrorIsDir, "%q", entry.Name())
		}
		if err := copyFileContents(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// copyFileContents duplicates one file's bytes.
func copyFileContents(src, dst string) error {
	data, err := ioutil.ReadFile(src)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(dst, data, 0666)
}

// Move moves src to dst; missing sources are a no-op. Files move with
// os.Rename; directories are copied then removed, matching the remote
// variant.
func (f *Fs) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localSrc := f.localPath(src)
	info, err := os.Stat(localSrc)
	if os.IsNotExist(err) || isNotDir(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		target, err := f.fileTarget(filepath.Base(localSrc), dst)
		if err != nil {
			return err
		}
		if target == localSrc {
			return nil
		}
		return os.Rename(localSrc, target)
	}
	srcP, dstP := fspath.Normalize(src), fspath.Normalize(dst)
	if dstP == srcP {
		return nil
	}
	if err := checkOverlap(srcP, dstP); err != nil {
		return err
	}
	localDst := f.localPath(dst)
	if info, err := os.Stat(localDst); err == nil && !info.IsDir() {
		return errors.Wrapf(fs.ErrorIsFile, "%q", dst)
	}
	if err := f.copyTree(ctx, localSrc, localDst); err != nil {
		return err
	}
	return os.RemoveAll(localSrc)
}

// Rename changes the leaf name of path in place.
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
	localPath := f.localPath(p)
	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) || isNotDir(err) {
			return errors.Wrapf(fs.ErrorNotFound, "%q", p)
		}
		return err
	}
	_, leaf := fspath.Split(p)
	if leaf == newName {
		return nil
	}
	sibling := filepath.Join(filepath.Dir(localPath), newName)
	if _, err := os.Stat(sibling); err == nil {
		return errors.Wrapf(fs.ErrorNameInUse, "%q", newName)
	}
	return os.Rename(localPath, sibling)
}

// CopyAllFiles overlays every file under src onto dst, creating destination
// directories only where a file lands. Missing or non-directory sources are
// a no-op.
func (f *Fs) CopyAllFiles(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localSrc := f.localPath(src)
	info, err := os.Stat(localSrc)
	if os.IsNotExist(err) || isNotDir(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	srcP, dstP := fspath.Normalize(src), fspath.Normalize(dst)
	if dstP == srcP {
		return nil
	}
	if err := checkOverlap(srcP, dstP); err != nil {
		return err
	}
	return f.copyFilesUnder(ctx, localSrc, f.localPath(dst))
}

func (f *Fs) copyFilesUnder(ctx context.Context, srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	madeDir := false
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			err := f.copyFilesUnder(ctx, filepath.Join(srcDir, entry.Name()), filepath.Join(dstDir, entry.Name()))
			if err != nil {
				return err
			}
			continue
		}
		if !madeDir {
			if err := os.MkdirAll(dstDir, 0777); err != nil {
				return mapDirError(err)
			}
			madeDir = true
		}
		err := copyFileContents(filepath.Join(srcDir, entry.Name()), filepath.Join(dstDir, entry.Name()))
		if err != nil {
			return err
		}
	}
	return nil
}

// Check the interface is satisfied
var _ fs.FileSystem = (*Fs)(nil)

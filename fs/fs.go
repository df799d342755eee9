// Package fs defines the generic file system interface implemented by
// the treefs backends.
package fs

import "context"

// Kind is the type of a directory entry.
type Kind byte

// Entry kinds.
const (
	KindFile Kind = iota
	KindFolder
)

// String turns a Kind into a string
func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// Entry describes one child of a directory as returned by List.
type Entry struct {
	Name string // leaf name of the entry
	Kind Kind
	Size int64 // size in bytes, -1 when unknown
}

// FileSystem is a hierarchical path → content API.
//
// Paths handed to any method may be in any raw form; implementations
// canonicalize them (see fspath.Normalize) before use. All methods honour
// cancellation of ctx. Delete, Copy, Move and CopyAllFiles succeed as no-ops
// when the source path doesn't exist; Rename and ReadFile report ErrorNotFound
// instead.
type FileSystem interface {
	// Exists reports whether path resolves to a file or directory.
	Exists(ctx context.Context, path string) (bool, error)

	// ReadFile returns the full content of the file at path. It fails with
	// ErrorNotFound if path is missing or is a directory.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile stores data at path, creating parent directories as needed.
	// An existing file at path is replaced; an existing directory is a
	// conflict.
	WriteFile(ctx context.Context, path string, data []byte) error

	// Delete removes path recursively. Deleting the root is rejected.
	Delete(ctx context.Context, path string) error

	// Mkdir creates the directory at path and any missing parents. It is
	// idempotent; a file occupying any segment is a conflict.
	Mkdir(ctx context.Context, path string) error

	// List returns the immediate children of the directory at path.
	List(ctx context.Context, path string) ([]Entry, error)

	// Copy copies the file or directory tree at src to dst, leaving src
	// untouched. Same-named file targets are replaced; kind clashes are
	// conflicts.
	Copy(ctx context.Context, src, dst string) error

	// Move moves src to dst. Files keep their identity where the backend
	// allows it; directories are copied then removed.
	Move(ctx context.Context, src, dst string) error

	// Rename changes the leaf name of path in place. newName must not be
	// empty or contain separators. A different sibling already using
	// newName is a conflict.
	Rename(ctx context.Context, path, newName string) error

	// CopyAllFiles overlays every file found under src onto the equivalent
	// relative position under dst, creating destination directories only
	// where a file lands. Destination-side extras are left alone.
	CopyAllFiles(ctx context.Context, src, dst string) error
}

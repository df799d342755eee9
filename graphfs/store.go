package graphfs

import (
	"context"

	"github.com/treefs/treefs/fs"
)

// Node is one object in the remote graph.
type Node struct {
	ID      string   // opaque store-assigned identifier, stable for the node's lifetime
	Name    string   // leaf name under one parent
	Kind    fs.Kind  // file or folder
	Parents []string // parent IDs; the first one is canonical for path purposes
	Size    int64    // content size for files, -1 when unknown
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == fs.KindFolder
}

// Parent returns the canonical parent ID, or "" for the root.
func (n *Node) Parent() string {
	if len(n.Parents) == 0 {
		return ""
	}
	return n.Parents[0]
}

// NodeUpdate describes an in-place metadata change for Store.UpdateNode.
// Zero-value fields are left unchanged.
type NodeUpdate struct {
	Name         string // rename to this when non-empty
	AddParent    string // attach to this parent
	RemoveParent string // detach from this parent
}

// Store is the remote object store surface the engine needs. Implementations
// are network-bound; all methods honour ctx cancellation and propagate
// transport failures unretried.
type Store interface {
	// RootID returns the identifier of the store's root folder.
	RootID() string

	// ListChildren returns every child of the folder parentID, draining
	// pagination before returning.
	ListChildren(ctx context.Context, parentID string) ([]Node, error)

	// FindChild looks up the child of parentID with exactly the given
	// name. It returns nil when there is no match.
	FindChild(ctx context.Context, parentID, name string) (*Node, error)

	// CreateFolder makes an empty folder under parentID.
	CreateFolder(ctx context.Context, parentID, name string) (*Node, error)

	// CreateFile makes a file with the given content under parentID.
	CreateFile(ctx context.Context, parentID, name string, data []byte) (*Node, error)

	// DeleteNode removes the node and, for folders, all its descendants.
	DeleteNode(ctx context.Context, id string) error

	// CopyNode server-side copies the node srcID into dstParentID as dstName.
	CopyNode(ctx context.Context, srcID, dstParentID, dstName string) (*Node, error)

	// UpdateNode applies an in-place name and/or parent change.
	UpdateNode(ctx context.Context, id string, update NodeUpdate) error

	// DownloadContent returns the full content of the file id.
	DownloadContent(ctx context.Context, id string) ([]byte, error)
}

// Package memory provides an in memory graphfs.Store.
//
// It exists for tests and scratch use: a real parent/child node graph with
// the same contract as the network-backed stores, minus the network.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/graphfs"
)

// node is the stored form of a graph node.
type node struct {
	id      string
	name    string
	kind    fs.Kind
	parents []string
	data    []byte
}

// Store is an in memory node graph implementing graphfs.Store. It is safe
// for concurrent use.
type Store struct {
	mu     sync.RWMutex
	nodes  map[string]*node
	rootID string
}

// New makes an empty Store with just a root folder.
func New() *Store {
	root := &node{id: newID(), kind: fs.KindFolder}
	return &Store{
		nodes:  map[string]*node{root.id: root},
		rootID: root.id,
	}
}

func newID() string {
	return uuid.NewString()
}

// String converts this Store to a string
func (s *Store) String() string {
	return "memory store"
}

// RootID returns the identifier of the root folder.
func (s *Store) RootID() string {
	return s.rootID
}

// external converts a stored node to its external form.
func (n *node) external() graphfs.Node {
	size := int64(-1)
	if n.kind == fs.KindFile {
		size = int64(len(n.data))
	}
	parents := make([]string, len(n.parents))
	copy(parents, n.parents)
	return graphfs.Node{ID: n.id, Name: n.name, Kind: n.kind, Parents: parents, Size: size}
}

// ListChildren returns every child of parentID.
func (s *Store) ListChildren(ctx context.Context, parentID string) ([]graphfs.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var children []graphfs.Node
	for _, n := range s.nodes {
		if n.hasParent(parentID) {
			children = append(children, n.external())
		}
	}
	return children, nil
}

// FindChild returns the child of parentID named name, or nil.
func (s *Store) FindChild(ctx context.Context, parentID, name string) (*graphfs.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.findChild(parentID, name)
	if n == nil {
		return nil, nil
	}
	ext := n.external()
	return &ext, nil
}

// findChild looks a child up by name - call with the lock held.
func (s *Store) findChild(parentID, name string) *node {
	for _, n := range s.nodes {
		if n.name == name && n.hasParent(parentID) {
			return n
		}
	}
	return nil
}

func (n *node) hasParent(id string) bool {
	for _, p := range n.parents {
		if p == id {
			return true
		}
	}
	return false
}

// CreateFolder makes an empty folder under parentID.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (*graphfs.Node, error) {
	return s.create(ctx, parentID, name, fs.KindFolder, nil)
}

// CreateFile makes a file with the given content under parentID.
func (s *Store) CreateFile(ctx context.Context, parentID, name string, data []byte) (*graphfs.Node, error) {
	return s.create(ctx, parentID, name, fs.KindFile, append([]byte(nil), data...))
}

func (s *Store) create(ctx context.Context, parentID, name string, kind fs.Kind, data []byte) (*graphfs.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodes[parentID] == nil {
		return nil, errors.Errorf("parent %q not found", parentID)
	}
	n := &node{id: newID(), name: name, kind: kind, parents: []string{parentID}, data: data}
	s.nodes[n.id] = n
	ext := n.external()
	return &ext, nil
}

// DeleteNode removes id and, for folders, everything below it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodes[id] == nil {
		return errors.Errorf("node %q not found", id)
	}
	s.deleteTree(id)
	return nil
}

// deleteTree removes a node and its descendants - call with the lock held.
func (s *Store) deleteTree(id string) {
	var children []string
	for _, n := range s.nodes {
		if n.hasParent(id) {
			children = append(children, n.id)
		}
	}
	for _, child := range children {
		s.deleteTree(child)
	}
	delete(s.nodes, id)
}

// CopyNode copies srcID into dstParentID as dstName. Folder copies are deep.
func (s *Store) CopyNode(ctx context.Context, srcID, dstParentID, dstName string) (*graphfs.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.nodes[srcID]
	if src == nil {
		return nil, errors.Errorf("node %q not found", srcID)
	}
	n := s.copyTree(src, dstParentID, dstName)
	ext := n.external()
	return &ext, nil
}

// copyTree deep-copies a node - call with the lock held.
func (s *Store) copyTree(src *node, dstParentID, dstName string) *node {
	dup := &node{
		id:      newID(),
		name:    dstName,
		kind:    src.kind,
		parents: []string{dstParentID},
		data:    append([]byte(nil), src.data...),
	}
	s.nodes[dup.id] = dup
	if src.kind == fs.KindFolder {
		var children []*node
		for _, n := range s.nodes {
			if n.hasParent(src.id) {
				children = append(children, n)
			}
		}
		for _, n := range children {
			s.copyTree(n, dup.id, n.name)
		}
	}
	return dup
}

// UpdateNode applies an in-place name and/or parent change.
func (s *Store) UpdateNode(ctx context.Context, id string, update graphfs.NodeUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.nodes[id]
	if n == nil {
		return errors.Errorf("node %q not found", id)
	}
	if update.Name != "" {
		n.name = update.Name
	}
	if update.RemoveParent != "" {
		kept := n.parents[:0]
		for _, p := range n.parents {
			if p != update.RemoveParent {
				kept = append(kept, p)
			}
		}
		n.parents = kept
	}
	if update.AddParent != "" && !n.hasParent(update.AddParent) {
		n.parents = append(n.parents, update.AddParent)
	}
	return nil
}

// DownloadContent returns the content of the file id.
func (s *Store) DownloadContent(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.nodes[id]
	if n == nil {
		return nil, errors.Errorf("node %q not found", id)
	}
	if n.kind != fs.KindFile {
		return nil, errors.Errorf("node %q is not a file", id)
	}
	return append([]byte(nil), n.data...), nil
}

// Check the interface is satisfied
var _ graphfs.Store = (*Store)(nil)

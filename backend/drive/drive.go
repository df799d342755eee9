// Package drive implements graphfs.Store on the Google Drive object storage
// system.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/graphfs"
)

// Constants
const (
	driveFolderType = "application/vnd.google-apps.folder"
	listChunk       = 1000
	partialFields   = "id,name,size,mimeType,parents"
)

// Options defines the configuration for this backend.
type Options struct {
	// RootFolderID scopes the store to a folder ID. Empty means the
	// drive's own top level root.
	RootFolderID string

	// AllDrives widens listing queries to search across all shared
	// drives the account can see, instead of a single corpus. Broader
	// results at the cost of slower queries.
	AllDrives bool

	// ServiceAccountFile is the path of service account credentials
	// JSON. Ignored when Client is set.
	ServiceAccountFile string

	// Client is a pre-authorized HTTP client to use instead of
	// service account auth.
	Client *http.Client
}

// Store is a graphfs.Store backed by Google Drive.
type Store struct {
	svc       *drive.Service
	rootID    string
	allDrives bool
}

// NewStore connects to Drive and resolves the root scope.
//
// There is no retry or backoff anywhere in this backend: a failed call
// propagates to the operation that issued it and the caller decides what to
// do about it.
func NewStore(ctx context.Context, opt Options) (*Store, error) {
	var clientOpts []option.ClientOption
	switch {
	case opt.Client != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opt.Client))
	case opt.ServiceAccountFile != "":
		data, err := ioutil.ReadFile(os.ExpandEnv(opt.ServiceAccountFile))
		if err != nil {
			return nil, errors.Wrap(err, "error opening service account credentials file")
		}
		conf, err := google.JWTConfigFromJSON(data, drive.DriveScope)
		if err != nil {
			return nil, errors.Wrap(err, "error processing credentials")
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(conf.Client(ctx)))
	default:
		clientOpts = append(clientOpts, option.WithScopes(drive.DriveScope))
	}
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create Drive client")
	}

	s := &Store{svc: svc, allDrives: opt.AllDrives}
	s.rootID = opt.RootFolderID
	if s.rootID == "" {
		// resolve the "root" alias to the real ID so cached parent
		// references compare equal to listed ones
		info, err := svc.Files.Get("root").Fields("id").SupportsAllDrives(s.allDrives).Context(ctx).Do()
		if err != nil {
			return nil, errors.Wrap(err, "couldn't read the Drive root folder")
		}
		s.rootID = info.Id
	}
	fs.Debugf(s, "connected")
	return s, nil
}

// String converts this Store to a string
func (s *Store) String() string {
	return fmt.Sprintf("Google drive root '%s'", s.rootID)
}

// RootID returns the identifier of the configured root scope.
func (s *Store) RootID() string {
	return s.rootID
}

// escapeQuery escapes a literal for use inside a Drive query string.
// Escaping the backslash isn't documented but works.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// nodeFromFile converts a drive.File into the external node form.
func nodeFromFile(item *drive.File) graphfs.Node {
	node := graphfs.Node{
		ID:      item.Id,
		Name:    item.Name,
		Kind:    fs.KindFile,
		Parents: item.Parents,
		Size:    item.Size,
	}
	if item.MimeType == driveFolderType {
		node.Kind = fs.KindFolder
		node.Size = -1
	}
	return node
}

// listAll runs a children query under parentID, optionally filtered to an
// exact name, draining every continuation page before returning.
func (s *Store) listAll(ctx context.Context, parentID, name string) ([]graphfs.Node, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(parentID))
	if name != "" {
		query += fmt.Sprintf(" and name = '%s'", escapeQuery(name))
	}
	call := s.svc.Files.List().
		Q(query).
		PageSize(listChunk).
		Fields(googleapi.Field("nextPageToken"), googleapi.Field("files("+partialFields+")"))
	if s.allDrives {
		call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true).Corpora("allDrives")
	}
	var nodes []graphfs.Node
	for {
		files, err := call.Context(ctx).Do()
		if err != nil {
			return nil, errors.Wrap(err, "couldn't list directory")
		}
		for _, item := range files.Files {
			nodes = append(nodes, nodeFromFile(item))
		}
		if files.NextPageToken == "" {
			break
		}
		call.PageToken(files.NextPageToken)
	}
	return nodes, nil
}

// ListChildren returns every child of parentID.
func (s *Store) ListChildren(ctx context.Context, parentID string) ([]graphfs.Node, error) {
	return s.listAll(ctx, parentID, "")
}

// FindChild returns the non-trashed child of parentID named exactly name, or
// nil. Drive permits duplicate names under one parent; the first match wins.
func (s *Store) FindChild(ctx context.Context, parentID, name string) (*graphfs.Node, error) {
	nodes, err := s.listAll(ctx, parentID, name)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// CreateFolder makes an empty folder under parentID.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (*graphfs.Node, error) {
	createInfo := &drive.File{
		Name:     name,
		MimeType: driveFolderType,
		Parents:  []string{parentID},
	}
	info, err := s.svc.Files.Create(createInfo).
		Fields(partialFields).
		SupportsAllDrives(s.allDrives).
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to make directory %q", name)
	}
	node := nodeFromFile(info)
	return &node, nil
}

// CreateFile uploads data as a new file under parentID.
func (s *Store) CreateFile(ctx context.Context, parentID, name string, data []byte) (*graphfs.Node, error) {
	createInfo := &drive.File{
		Name:    name,
		Parents: []string{parentID},
	}
	info, err := s.svc.Files.Create(createInfo).
		Media(bytes.NewReader(data), googleapi.ContentType("")).
		Fields(partialFields).
		SupportsAllDrives(s.allDrives).
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upload %q", name)
	}
	node := nodeFromFile(info)
	return &node, nil
}

// DeleteNode permanently deletes the node. Drive removes descendants of a
// folder as part of the same server-side operation.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	err := s.svc.Files.Delete(id).
		SupportsAllDrives(s.allDrives).
		Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "failed to delete node %s", id)
	}
	return nil
}

// CopyNode server-side copies srcID into dstParentID as dstName.
func (s *Store) CopyNode(ctx context.Context, srcID, dstParentID, dstName string) (*graphfs.Node, error) {
	copyInfo := &drive.File{
		Name:    dstName,
		Parents: []string{dstParentID},
	}
	info, err := s.svc.Files.Copy(srcID, copyInfo).
		Fields(partialFields).
		SupportsAllDrives(s.allDrives).
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to copy node %s", srcID)
	}
	node := nodeFromFile(info)
	return &node, nil
}

// UpdateNode applies an in-place rename and/or reparenting.
func (s *Store) UpdateNode(ctx context.Context, id string, update graphfs.NodeUpdate) error {
	updateInfo := &drive.File{}
	if update.Name != "" {
		updateInfo.Name = update.Name
	}
	call := s.svc.Files.Update(id, updateInfo).
		Fields(partialFields).
		SupportsAllDrives(s.allDrives)
	if update.AddParent != "" {
		call.AddParents(update.AddParent)
	}
	if update.RemoveParent != "" {
		call.RemoveParents(update.RemoveParent)
	}
	_, err := call.Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "failed to update node %s", id)
	}
	return nil
}

// DownloadContent fetches the full content of the file id.
func (s *Store) DownloadContent(ctx context.Context, id string) ([]byte, error) {
	res, err := s.svc.Files.Get(id).
		SupportsAllDrives(s.allDrives).
		Context(ctx).Download()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download node %s", id)
	}
	defer func() { _ = res.Body.Close() }()
	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read download of node %s", id)
	}
	return data, nil
}

// Check the interface is satisfied
var _ graphfs.Store = (*Store)(nil)

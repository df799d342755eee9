// Errors and error handling

package fs

import "github.com/pkg/errors"

// Sentinel errors returned by FileSystem implementations. Backend errors
// wrap these so callers can match with errors.Is.
var (
	// ErrorNotFound means the path didn't resolve to anything
	ErrorNotFound = errors.New("path not found")
	// ErrorIsFile means a file occupies a path where a directory is needed
	ErrorIsFile = errors.New("is a file not a directory")
	// ErrorIsDir means a directory occupies a path where a file is needed
	ErrorIsDir = errors.New("is a directory not a file")
	// ErrorNameInUse means a sibling with the wanted name already exists
	ErrorNameInUse = errors.New("name already in use")
	// ErrorInvalidName means a rename target was empty or contained separators
	ErrorInvalidName = errors.New("invalid name")
	// ErrorCantDeleteRoot is returned for attempts to delete the root directory
	ErrorCantDeleteRoot = errors.New("can't delete the root directory")
	// ErrorOverlapping means the destination of a tree operation lies inside
	// its own source
	ErrorOverlapping = errors.New("can't copy or move a directory into itself")
)

// IsConflict reports whether err is one of the kind-clash or name-clash
// errors that indicate the destination is occupied by something
// incompatible with the requested operation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrorIsFile) || errors.Is(err, ErrorIsDir) || errors.Is(err, ErrorNameInUse)
}

package tree

import "errors"

// Resolution and mutation outcomes. All of them are expected, recoverable
// conditions; callers match them with errors.Is.
var (
	// ErrNotFound means the path does not resolve to any node.
	ErrNotFound = errors.New("node not found")
	// ErrNotADirectory means a listing or traversal hit a leaf.
	ErrNotADirectory = errors.New("not a directory")
	// ErrNotAFile means a leaf operation hit a container.
	ErrNotAFile = errors.New("not a file")
	// ErrInvalidDestination means the parent of a create/rename target is not a container.
	ErrInvalidDestination = errors.New("invalid destination")
	ErrExists             = errors.New("node already exists")
	ErrNotEmpty           = errors.New("directory not empty")
	ErrInvalidArgument    = errors.New("invalid argument")
	// ErrBusy means the operation targets the root, which cannot be removed.
	ErrBusy = errors.New("resource busy")
	// ErrTooLarge means a write or truncate would grow a leaf past its limit.
	ErrTooLarge = errors.New("file too large")

	// ErrUnsupportedValue is returned when importing a Go value that has no
	// tree representation (funcs, channels, structs...).
	ErrUnsupportedValue = errors.New("unsupported value type")
	// ErrInvalidKey is returned when importing a map key that cannot be a
	// path segment.
	ErrInvalidKey = errors.New("invalid key")
)

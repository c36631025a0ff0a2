package filesystem

import (
	"errors"
	"syscall"

	"github.com/brettbedarf/varfs/tree"
	"golang.org/x/sys/unix"
)

// Errno maps a tree error onto the errno reported to the kernel.
// Unknown errors become EIO.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, tree.ErrNotFound), errors.Is(err, tree.ErrInvalidDestination):
		return unix.ENOENT
	case errors.Is(err, tree.ErrNotADirectory):
		return unix.ENOTDIR
	case errors.Is(err, tree.ErrNotAFile):
		return unix.EISDIR
	case errors.Is(err, tree.ErrExists):
		return unix.EEXIST
	case errors.Is(err, tree.ErrNotEmpty):
		return unix.ENOTEMPTY
	case errors.Is(err, tree.ErrBusy):
		return unix.EBUSY
	case errors.Is(err, tree.ErrTooLarge):
		return unix.EFBIG
	case errors.Is(err, tree.ErrInvalidArgument):
		return unix.EINVAL
	default:
		return unix.EIO
	}
}

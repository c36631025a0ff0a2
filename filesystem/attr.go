package filesystem

import (
	"os"
	"time"

	"github.com/brettbedarf/varfs/tree"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// newDefaultAttr returns the attributes shared by every node. Times all come
// from mtime since the tree only tracks modification.
// NOTE: Make sure to set the Mode field appropriately
func newDefaultAttr(mtime time.Time) fuse.Attr {
	sec, nsec := uint64(mtime.Unix()), uint32(mtime.Nanosecond())
	return fuse.Attr{
		Nlink: 1,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Atime:     sec,
		Mtime:     sec,
		Ctime:     sec,
		Atimensec: nsec,
		Mtimensec: nsec,
		Ctimensec: nsec,
		Blksize:   4096, // preferred size for fs ops
	}
}

// fillAttr synthesizes n's attributes into out. Containers are directories
// with nlink 2, leaves are regular files sized to their rendered content.
func (fs *FileSystem) fillAttr(n *tree.Node, out *fuse.Attr) {
	*out = newDefaultAttr(n.ModTime())
	if n.IsContainer() {
		out.Mode = unix.S_IFDIR | fs.cfg.DirPerms
		out.Nlink = 2
		return
	}
	leaf, _ := n.Leaf()
	out.Mode = unix.S_IFREG | fs.cfg.FilePerms
	out.Size = uint64(leaf.Len())
	out.Blocks = (out.Size + 511) / 512
}

// entryMode is the file type bits of n as used in directory listings.
func entryMode(n *tree.Node) uint32 {
	if n.IsContainer() {
		return unix.S_IFDIR
	}
	return unix.S_IFREG
}

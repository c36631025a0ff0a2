// Package fuse bridges go-fuse's node API onto a filesystem.FileSystem.
//
// The bridge keeps no state of its own: every request derives its
// root-relative path from the inode tree at call time and hands it to the
// FileSystem, which owns all data.
package fuse

import (
	"context"
	"syscall"

	"github.com/brettbedarf/varfs/filesystem"
	"github.com/brettbedarf/varfs/internal/util"
	"github.com/brettbedarf/varfs/tree"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// varNode is one path in the mounted tree. The same type serves containers
// and leaves; the FileSystem decides which operations apply.
type varNode struct {
	gofuse.Inode
	fsys     *filesystem.FileSystem
	directIO bool
}

var (
	_ gofuse.InodeEmbedder = (*varNode)(nil)
	_ gofuse.NodeLookuper  = (*varNode)(nil)
	_ gofuse.NodeGetattrer = (*varNode)(nil)
	_ gofuse.NodeSetattrer = (*varNode)(nil)
	_ gofuse.NodeReaddirer = (*varNode)(nil)
	_ gofuse.NodeOpener    = (*varNode)(nil)
	_ gofuse.NodeReader    = (*varNode)(nil)
	_ gofuse.NodeWriter    = (*varNode)(nil)
	_ gofuse.NodeCreater   = (*varNode)(nil)
	_ gofuse.NodeMkdirer   = (*varNode)(nil)
	_ gofuse.NodeUnlinker  = (*varNode)(nil)
	_ gofuse.NodeRmdirer   = (*varNode)(nil)
	_ gofuse.NodeRenamer   = (*varNode)(nil)
)

func newRoot(fsys *filesystem.FileSystem, directIO bool) *varNode {
	return &varNode{fsys: fsys, directIO: directIO}
}

// path is the node's root-relative path, "/" for the root.
func (n *varNode) path() string {
	return "/" + n.Path(nil)
}

func (n *varNode) childPath(name string) string {
	if p := n.Path(nil); p != "" {
		return tree.Join(p, name)
	}
	return tree.Join(name)
}

func (n *varNode) newChild(ctx context.Context, mode uint32) *gofuse.Inode {
	child := &varNode{fsys: n.fsys, directIO: n.directIO}
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: mode & syscall.S_IFMT})
}

// Lookup is called by the kernel when the VFS wants to know about a file
// inside a directory.
func (n *varNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	logger := util.GetLogger("Fuse.Lookup")
	p := n.childPath(name)
	logger.Trace().Str("path", p).Msg("Lookup called")

	if errno := n.fsys.Getattr(p, &out.Attr); errno != 0 {
		return nil, errno
	}
	return n.newChild(ctx, out.Attr.Mode), 0
}

func (n *varNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return n.fsys.Getattr(n.path(), &out.Attr)
}

// Setattr only honours size changes, which is how O_TRUNC and ftruncate
// arrive. Mode, owner and time changes are accepted and ignored.
func (n *varNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	logger := util.GetLogger("Fuse.Setattr")
	p := n.path()
	if size, ok := in.GetSize(); ok {
		logger.Debug().Str("path", p).Uint64("size", size).Msg("Truncate requested")
		if errno := n.fsys.Truncate(p, size); errno != 0 {
			return errno
		}
	}
	return n.fsys.Getattr(p, &out.Attr)
}

func (n *varNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	entries, errno := n.fsys.ReaddirEntries(n.path())
	if errno != 0 {
		return nil, errno
	}
	return gofuse.NewListDirStream(entries), 0
}

func (n *varNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	p := n.path()
	if errno := n.fsys.Open(p); errno != 0 {
		return nil, 0, errno
	}
	if flags&syscall.O_TRUNC != 0 {
		if errno := n.fsys.Truncate(p, 0); errno != 0 {
			return nil, 0, errno
		}
	}
	return nil, n.openFlags(), 0
}

func (n *varNode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, errno := n.fsys.Read(n.path(), off, len(dest))
	if errno != 0 {
		return nil, errno
	}
	return fuse.ReadResultData(data), 0
}

func (n *varNode) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, errno := n.fsys.Write(n.path(), data, off)
	return uint32(written), errno
}

func (n *varNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("Fuse.Create")
	p := n.childPath(name)
	logger.Debug().Str("path", p).Uint32("mode", mode).Msg("Create called")

	if errno := n.fsys.Create(p, mode); errno != 0 {
		return nil, nil, 0, errno
	}
	if errno := n.fsys.Getattr(p, &out.Attr); errno != 0 {
		return nil, nil, 0, errno
	}
	return n.newChild(ctx, out.Attr.Mode), nil, n.openFlags(), 0
}

func (n *varNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := n.childPath(name)
	if errno := n.fsys.Mkdir(p, mode); errno != 0 {
		return nil, errno
	}
	if errno := n.fsys.Getattr(p, &out.Attr); errno != 0 {
		return nil, errno
	}
	return n.newChild(ctx, out.Attr.Mode), 0
}

func (n *varNode) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.fsys.Unlink(n.childPath(name))
}

func (n *varNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.fsys.Rmdir(n.childPath(name))
}

// Rename moves name to newName under newParent. RENAME_EXCHANGE and
// RENAME_NOREPLACE are not supported.
func (n *varNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	logger := util.GetLogger("Fuse.Rename")
	if flags != 0 {
		return syscall.EINVAL
	}
	dst, ok := newParent.(*varNode)
	if !ok {
		return syscall.EXDEV
	}
	from, to := n.childPath(name), dst.childPath(newName)
	logger.Debug().Str("from", from).Str("to", to).Msg("Rename called")
	return n.fsys.Rename(from, to)
}

func (n *varNode) openFlags() uint32 {
	if n.directIO {
		return fuse.FOPEN_DIRECT_IO
	}
	return 0
}

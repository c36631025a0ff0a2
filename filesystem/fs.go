// Package filesystem translates filesystem verbs into edits of a live tree.
//
// Every operation takes the FileSystem lock for its whole duration, resolves
// the path through the tree package and answers with a syscall.Errno so the
// FUSE bridge can hand results straight back to go-fuse.
package filesystem

import (
	"sync"
	"syscall"
	"time"

	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/internal/util"
	"github.com/brettbedarf/varfs/tree"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

type FileSystem struct {
	cfg   *config.Config
	mu    sync.Mutex // guards tree for the duration of each operation
	tree  *tree.Tree
	stats *opStats
}

// NewFS wraps t. A nil t starts from an empty root and a nil cfg uses the
// defaults. The FileSystem owns t from here on; callers must not touch it
// directly while the filesystem is in use.
func NewFS(cfg *config.Config, t *tree.Tree) *FileSystem {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if t == nil {
		t = tree.New()
	}
	return &FileSystem{cfg: cfg, tree: t, stats: newOpStats()}
}

// Getattr fills out with the attributes of the node at path.
func (fs *FileSystem) Getattr(path string, out *fuse.Attr) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpGetattr, errno, 0) }()
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ref, err := fs.tree.Resolve(path)
	if err != nil {
		return Errno(err)
	}
	fs.fillAttr(ref.Node(), out)
	return 0
}

// Readdir lists "." and ".." followed by the container's keys in insertion
// order.
func (fs *FileSystem) Readdir(path string) ([]string, syscall.Errno) {
	entries, errno := fs.readdir(path)
	if errno != 0 {
		return nil, errno
	}
	names := make([]string, 0, len(entries)+2)
	names = append(names, ".", "..")
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, 0
}

// ReaddirEntries is Readdir with file types and without "." and "..", in the
// shape go-fuse's directory streams take.
func (fs *FileSystem) ReaddirEntries(path string) ([]fuse.DirEntry, syscall.Errno) {
	return fs.readdir(path)
}

func (fs *FileSystem) readdir(path string) (entries []fuse.DirEntry, errno syscall.Errno) {
	defer func() { fs.stats.record(OpReaddir, errno, 0) }()
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ref, err := fs.tree.Resolve(path)
	if err != nil {
		return nil, Errno(err)
	}
	dir, ok := ref.Node().Container()
	if !ok {
		return nil, unix.ENOTDIR
	}
	entries = make([]fuse.DirEntry, 0, dir.Len())
	dir.Range(func(key string, child *tree.Node) bool {
		entries = append(entries, fuse.DirEntry{Name: key, Mode: entryMode(child)})
		return true
	})
	return entries, 0
}

// Open succeeds only for leaves. There are no file handles; every read and
// write resolves its path again.
func (fs *FileSystem) Open(path string) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpOpen, errno, 0) }()
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ref, err := fs.tree.Resolve(path)
	if err != nil || ref.Node().IsContainer() {
		return unix.ENOENT
	}
	return 0
}

// Read returns up to size bytes of the leaf's content starting at off.
// Reading at or past the end yields an empty slice.
func (fs *FileSystem) Read(path string, off int64, size int) (data []byte, errno syscall.Errno) {
	defer func() { fs.stats.record(OpRead, errno, len(data)) }()
	logger := util.GetLogger("FS.Read")
	logger.Trace().Str("path", path).Int64("off", off).Int("size", size).Msg("Read called")

	if off < 0 || size < 0 {
		return nil, unix.EINVAL
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, leaf, err := fs.tree.Leaf(path)
	if err != nil {
		return nil, Errno(err)
	}
	content := leaf.Bytes()
	if off >= int64(len(content)) {
		return []byte{}, 0
	}
	end := min(off+int64(size), int64(len(content)))
	return content[off:end], 0
}

// Write splices buf into the leaf at off, replacing len(buf) bytes and
// growing the content as needed. It returns len(buf). Content may not grow
// past the configured MaxLeafSize (EFBIG).
func (fs *FileSystem) Write(path string, buf []byte, off int64) (n int, errno syscall.Errno) {
	defer func() { fs.stats.record(OpWrite, errno, n) }()
	logger := util.GetLogger("FS.Write")
	logger.Trace().Str("path", path).Int64("off", off).Int("len", len(buf)).Msg("Write called")

	if off < 0 {
		return 0, unix.EINVAL
	}
	if off > fs.cfg.MaxLeafSize-int64(len(buf)) {
		logger.Debug().Str("path", path).Int64("off", off).Msg("Write past leaf size limit")
		return 0, unix.EFBIG
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, leaf, err := fs.tree.Leaf(path)
	if err != nil {
		return 0, Errno(err)
	}
	if n, err = leaf.WriteAt(buf, off); err != nil {
		return 0, Errno(err)
	}
	node.Touch(time.Now())
	return n, 0
}

// Truncate shrinks or zero-extends the leaf to size bytes. Sizes past the
// configured MaxLeafSize give EFBIG.
func (fs *FileSystem) Truncate(path string, size uint64) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpTruncate, errno, 0) }()
	if size > uint64(fs.cfg.MaxLeafSize) {
		return unix.EFBIG
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, leaf, err := fs.tree.Leaf(path)
	if err != nil {
		return Errno(err)
	}
	if err := leaf.Truncate(int64(size)); err != nil {
		return Errno(err)
	}
	node.Touch(time.Now())
	return 0
}

// Create stores an empty leaf at path, replacing any existing value in
// place. The parent must be a container. mode is accepted for interface
// compatibility; reported permissions always come from the config.
func (fs *FileSystem) Create(path string, mode uint32) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpCreate, errno, 0) }()
	logger := util.GetLogger("FS.Create")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.tree.Insert(path, tree.NewStringNode("")); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Failed to create leaf")
		return Errno(err)
	}
	logger.Debug().Str("path", path).Uint32("mode", mode).Msg("Created leaf")
	return 0
}

// Mkdir stores an empty container at path. Unlike Create it refuses to
// replace an existing entry.
func (fs *FileSystem) Mkdir(path string, mode uint32) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpMkdir, errno, 0) }()
	logger := util.GetLogger("FS.Mkdir")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.tree.Add(path, tree.NewContainerNode()); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Failed to create container")
		return Errno(err)
	}
	logger.Debug().Str("path", path).Uint32("mode", mode).Msg("Created container")
	return 0
}

// Unlink removes the entry at path. Missing entries are not an error.
func (fs *FileSystem) Unlink(path string) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpUnlink, errno, 0) }()
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.tree.Remove(path)
	return 0
}

// Rmdir removes an empty container.
func (fs *FileSystem) Rmdir(path string) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpRmdir, errno, 0) }()
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return Errno(fs.tree.RemoveDir(path))
}

// Rename moves the subtree at from to to, replacing anything already there.
func (fs *FileSystem) Rename(from, to string) (errno syscall.Errno) {
	defer func() { fs.stats.record(OpRename, errno, 0) }()
	logger := util.GetLogger("FS.Rename")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.tree.Move(from, to); err != nil {
		logger.Debug().Err(err).Str("from", from).Str("to", to).Msg("Rename failed")
		return Errno(err)
	}
	logger.Debug().Str("from", from).Str("to", to).Msg("Renamed")
	return 0
}

// Value exports a deep copy of the live tree.
func (fs *FileSystem) Value() tree.Map {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.tree.Value()
}

// Stats returns per-operation counters keyed by operation name.
func (fs *FileSystem) Stats() map[string]OpStats {
	return fs.stats.snapshot()
}

// Config returns the config the filesystem was built with.
func (fs *FileSystem) Config() *config.Config {
	return fs.cfg
}

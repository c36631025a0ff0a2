package server

import (
	"errors"
	"sync"

	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/filesystem"
	vfuse "github.com/brettbedarf/varfs/fuse"
	"github.com/brettbedarf/varfs/internal/util"
	"github.com/brettbedarf/varfs/tree"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ErrMounted is returned by Serve when the filesystem is already mounted.
var ErrMounted = errors.New("filesystem already mounted")

// VarFs ties a tree-backed FileSystem to a FUSE mount. The tree stays
// readable through Value before, during and after the mount.
type VarFs struct {
	*filesystem.FileSystem
	cfg     *config.Config
	session string

	mu     sync.Mutex
	server *fuse.Server
}

// New creates a VarFs serving t with cfg. A nil t starts empty.
func New(cfg *config.Config, t *tree.Tree) *VarFs {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &VarFs{
		FileSystem: filesystem.NewFS(cfg, t),
		cfg:        cfg,
		session:    uuid.NewString(),
	}
}

// Session is a random id identifying this instance in logs.
func (fs *VarFs) Session() string {
	return fs.session
}

// Serve mounts and serves the filesystem at the given mountPoint. It returns
// once the kernel has accepted the mount; requests are served in the
// background until Unmount.
func (fs *VarFs) Serve(mountPoint string) error {
	logger := util.GetLogger("VarFs.Serve")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.server != nil {
		return ErrMounted
	}

	srv, err := vfuse.Mount(mountPoint, fs.FileSystem, fs.cfg)
	if err != nil {
		return err
	}
	fs.server = srv

	logger.Info().
		Str("session", fs.session).
		Str("mountPoint", mountPoint).
		Str("maxWrite", humanize.IBytes(uint64(fs.cfg.MaxWrite))).
		Bool("directIO", fs.cfg.DirectIO).
		Msg("Serving")
	return nil
}

func (fs *VarFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- fs.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted. It returns immediately if
// nothing is mounted.
func (fs *VarFs) Wait() {
	fs.mu.Lock()
	srv := fs.server
	fs.mu.Unlock()
	if srv != nil {
		srv.Wait()
	}
}

// Unmount cleanly unmounts the filesystem. The tree is left intact so its
// final state can still be read with Value.
func (fs *VarFs) Unmount() error {
	logger := util.GetLogger("VarFs.Unmount")

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.server == nil {
		return nil
	}
	if err := fs.server.Unmount(); err != nil {
		return err
	}
	fs.server = nil
	logger.Info().Str("session", fs.session).Msg("Unmounted")
	return nil
}

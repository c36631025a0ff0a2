package fuse

import (
	"fmt"
	"time"

	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/filesystem"
	"github.com/brettbedarf/varfs/internal/util"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Mount serves fsys at mountPoint and returns once the kernel has accepted
// the mount. The caller must Unmount the returned server when done.
func Mount(mountPoint string, fsys *filesystem.FileSystem, cfg *config.Config) (*fuse.Server, error) {
	logger := util.GetLogger("Fuse.Mount")

	root := newRoot(fsys, cfg.DirectIO)
	opts := NewOptions(cfg)

	srv, err := gofuse.Mount(mountPoint, root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to mount at %s: %w", mountPoint, err)
	}
	logger.Info().Str("mountPoint", mountPoint).Str("fsName", cfg.FsName).Msg("Mounted")
	return srv, nil
}

// NewOptions translates cfg into go-fuse mount options. go-fuse's own logs
// are routed to zerolog at debug level.
func NewOptions(cfg *config.Config) *gofuse.Options {
	entryTimeout := seconds(cfg.EntryTimeout)
	attrTimeout := seconds(cfg.AttrTimeout)
	negativeTimeout := seconds(cfg.NegativeTimeout)

	return &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     cfg.FsName,
			Name:       cfg.Name,
			Debug:      cfg.Debug,
			AllowOther: cfg.AllowOther,
			MaxWrite:   cfg.MaxWrite,
			Logger:     util.NewLogLogger("go-fuse", util.DebugLevel),
		},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

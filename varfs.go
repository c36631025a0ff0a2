// Package varfs mounts a nested map of scalar values as a FUSE filesystem.
// Maps become directories and every other value becomes a file holding its
// text rendering. Edits made through the mount are visible in Value.
package varfs

import (
	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/server"
	"github.com/brettbedarf/varfs/tree"
)

// New creates a VarFs serving value, which must be a map (or nil for an
// empty tree). A nil cfg uses the defaults.
func New(cfg *config.Config, value any) (*server.VarFs, error) {
	t, err := tree.FromValue(value)
	if err != nil {
		return nil, err
	}
	return server.New(cfg, t), nil
}

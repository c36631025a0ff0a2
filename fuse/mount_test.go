package fuse

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/filesystem"
	"github.com/brettbedarf/varfs/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fuseAvailable skips tests that need a real mount when /dev/fuse is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// testMount mounts {0: 1, 1: 2, foo: bar, e: {x: 1.5}} and returns the
// mount point together with the FileSystem behind it.
func testMount(t *testing.T) (string, *filesystem.FileSystem) {
	t.Helper()
	fuseAvailable(t)

	tr, err := tree.FromValue(tree.Map{
		{Key: "0", Value: 1},
		{Key: "1", Value: 2},
		{Key: "foo", Value: "bar"},
		{Key: "e", Value: tree.Map{{Key: "x", Value: 1.5}}},
	})
	require.NoError(t, err)

	cfg := config.NewDefaultConfig()
	cfg.AttrTimeout = 0
	cfg.EntryTimeout = 0
	fsys := filesystem.NewFS(cfg, tr)

	mountPoint := t.TempDir()
	srv, err := Mount(mountPoint, fsys, cfg)
	if err != nil {
		t.Skipf("skipping: cannot mount FUSE here: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, srv.Unmount())
	})
	return mountPoint, fsys
}

func TestNewOptions(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	cfg.AttrTimeout = 1.5
	cfg.EntryTimeout = 0.25
	cfg.FsName = "fsname"
	cfg.AllowOther = true

	opts := NewOptions(cfg)

	require.NotNil(t, opts.AttrTimeout)
	assert.Equal(t, 1500*time.Millisecond, *opts.AttrTimeout)
	assert.Equal(t, 250*time.Millisecond, *opts.EntryTimeout)
	assert.Equal(t, time.Duration(0), *opts.NegativeTimeout)
	assert.Equal(t, "fsname", opts.FsName)
	assert.Equal(t, config.DefaultName, opts.Name)
	assert.True(t, opts.AllowOther)
	assert.Equal(t, config.DefaultMaxWrite, opts.MaxWrite)
	assert.NotNil(t, opts.Logger)
}

func TestMount_ListAndRead(t *testing.T) {
	mountPoint, _ := testMount(t)

	entries, err := os.ReadDir(mountPoint)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"0", "1", "foo", "e"}, names)

	got, err := os.ReadFile(filepath.Join(mountPoint, "foo"))
	require.NoError(t, err)
	assert.Equal(t, "bar", string(got))

	info, err := os.Stat(filepath.Join(mountPoint, "e"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(mountPoint, "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestMount_WriteCreateRemove(t *testing.T) {
	mountPoint, fsys := testMount(t)

	require.NoError(t, os.WriteFile(filepath.Join(mountPoint, "e", "new"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mountPoint, "foo"), []byte("z"), 0o644), "O_TRUNC rewrite")
	require.NoError(t, os.Mkdir(filepath.Join(mountPoint, "d"), 0o755))
	require.NoError(t, os.Rename(filepath.Join(mountPoint, "e"), filepath.Join(mountPoint, "d", "e")))
	require.NoError(t, os.Remove(filepath.Join(mountPoint, "0")))

	got, err := os.ReadFile(filepath.Join(mountPoint, "d", "e", "new"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	err = os.Remove(filepath.Join(mountPoint, "d"))
	var errno syscall.Errno
	require.ErrorAs(t, err, &errno)
	assert.Equal(t, syscall.ENOTEMPTY, errno)

	assert.Equal(t, tree.Map{
		{Key: "1", Value: int64(2)},
		{Key: "foo", Value: "z"},
		{Key: "d", Value: tree.Map{
			{Key: "e", Value: tree.Map{
				{Key: "x", Value: 1.5},
				{Key: "new", Value: "hello"},
			}},
		}},
	}, fsys.Value())
}

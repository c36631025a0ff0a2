package server

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/brettbedarf/varfs/config"
	"github.com/brettbedarf/varfs/tree"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	fs := New(nil, nil)

	require.NotNil(t, fs)
	_, err := uuid.Parse(fs.Session())
	assert.NoError(t, err)
	assert.NotEqual(t, New(nil, nil).Session(), fs.Session())
	assert.Empty(t, fs.Value())
}

func TestVarFs_NotMounted(t *testing.T) {
	t.Parallel()

	tr, err := tree.FromValue(tree.Map{{Key: "a", Value: "b"}})
	require.NoError(t, err)
	fs := New(config.NewDefaultConfig(), tr)

	assert.NoError(t, fs.Unmount(), "unmount without mount is a no-op")
	fs.Wait()

	// embedded FileSystem is usable without a mount
	require.Equal(t, syscall.Errno(0), fs.Create("/c", 0o644))
	assert.Equal(t, []string{"a", "c"}, fs.Value().Keys())
}

func TestVarFs_ServeUnmount(t *testing.T) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}

	tr, err := tree.FromValue([]any{1, 2})
	require.NoError(t, err)
	cfg := config.NewDefaultConfig()
	fs := New(cfg, tr)

	mnt := t.TempDir()
	if err := <-fs.ServeAsync(mnt); err != nil {
		t.Skipf("skipping: cannot mount FUSE here: %v", err)
	}
	assert.ErrorIs(t, fs.Serve(mnt), ErrMounted)

	require.NoError(t, os.WriteFile(filepath.Join(mnt, "foo"), []byte("bar"), 0o644))
	require.NoError(t, fs.Unmount())
	fs.Wait()

	assert.Equal(t, tree.Map{
		{Key: "0", Value: int64(1)},
		{Key: "1", Value: int64(2)},
		{Key: "foo", Value: "bar"},
	}, fs.Value(), "tree survives the unmount")
}

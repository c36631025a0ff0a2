package varfs

import (
	"syscall"
	"testing"

	"github.com/brettbedarf/varfs/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	fs, err := New(nil, map[string]any{"b": 2, "a": map[string]any{"c": "x"}})
	require.NoError(t, err)

	data, errno := fs.Read("/a/c", 0, 10)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, "x", string(data))

	_, errno = fs.Write("/b", []byte("3"), 0)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, tree.Map{
		{Key: "a", Value: tree.Map{{Key: "c", Value: "x"}}},
		{Key: "b", Value: "3"},
	}, fs.Value())
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "scalar")
	assert.ErrorIs(t, err, tree.ErrUnsupportedValue)

	_, err = New(nil, map[string]any{"a/b": 1})
	assert.ErrorIs(t, err, tree.ErrInvalidKey)

	fs, err := New(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, fs.Value())
}

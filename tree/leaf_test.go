package tree

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type port int

func TestLeaf_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "bar", "bar"},
		{"int", 42, "42"},
		{"negative", int8(-3), "-3"},
		{"uint", uint32(7), "7"},
		{"float", 1.25, "1.25"},
		{"float_whole", 2.0, "2"},
		{"float32", float32(0.5), "0.5"},
		{"bool_true", true, "true"},
		{"bool_false", false, "false"},
		{"nil", nil, ""},
		{"bytes", []byte("raw"), "raw"},
		{"named_int", port(8080), "8080"},
		{"stringer", time.Duration(1500) * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := NewLeafNode(tt.value)
			require.NoError(t, err)
			leaf, ok := n.Leaf()
			require.True(t, ok)
			assert.Equal(t, tt.want, string(leaf.Bytes()))
			assert.Equal(t, len(tt.want), leaf.Len())
		})
	}
}

func TestLeaf_WriteAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start any
		data  string
		off   int64
		want  string
	}{
		{"overwrite_middle", "abcdef", "XY", 2, "abXYef"},
		{"extend_tail", "abc", "XYZ", 2, "abXYZ"},
		{"append", "abc", "d", 3, "abcd"},
		{"gap_zero_filled", "ab", "c", 4, "ab\x00\x00c"},
		{"into_empty", "", "hello", 0, "hello"},
		{"number_becomes_string", 123, "9", 1, "193"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := NewLeafNode(tt.start)
			require.NoError(t, err)
			leaf, _ := n.Leaf()

			got, err := leaf.WriteAt([]byte(tt.data), tt.off)

			require.NoError(t, err)
			assert.Equal(t, len(tt.data), got)
			assert.Equal(t, tt.want, leaf.Value())
		})
	}
}

func TestLeaf_Truncate(t *testing.T) {
	t.Parallel()

	leaf := &Leaf{value: "abcdef"}
	require.NoError(t, leaf.Truncate(3))
	assert.Equal(t, "abc", leaf.Value())

	require.NoError(t, leaf.Truncate(5))
	assert.Equal(t, "abc\x00\x00", leaf.Value())

	require.NoError(t, leaf.Truncate(0))
	assert.Equal(t, "", leaf.Value())
}

func TestLeaf_OutOfRange(t *testing.T) {
	t.Parallel()

	leaf := &Leaf{value: "bar"}

	_, err := leaf.WriteAt([]byte("x"), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = leaf.WriteAt([]byte("xy"), math.MaxInt64-1)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, leaf.Truncate(-1), ErrInvalidArgument)
	assert.ErrorIs(t, leaf.Truncate(math.MinInt64), ErrInvalidArgument)

	assert.Equal(t, "bar", leaf.Value(), "content untouched")
}

func TestContainer_Order(t *testing.T) {
	t.Parallel()

	c := newContainer()
	c.Set("b", NewStringNode("1"))
	c.Set("a", NewStringNode("2"))
	c.Set("c", NewStringNode("3"))
	c.Set("b", NewStringNode("4"))

	assert.Equal(t, []string{"b", "a", "c"}, c.Keys())
	assert.Equal(t, 3, c.Len())

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, []string{"b", "c"}, c.Keys())

	n, ok := c.Get("b")
	require.True(t, ok)
	leaf, _ := n.Leaf()
	assert.Equal(t, "4", leaf.String())
}

// Package tree is the path resolution and mutation engine behind varfs.
//
// A Tree is a single root Container whose values are either scalar Leafs or
// nested Containers. Paths are resolved one segment at a time into a Ref, a
// handle onto the live node and the parent slot that holds it, so writes made
// through a Ref mutate the tree itself rather than a copy.
//
// Tree is not safe for concurrent use; the filesystem layer serializes all
// access behind one lock.
package tree

import (
	"io/fs"
	"time"
)

// Tree owns the root Container.
type Tree struct {
	root *Node
}

// New returns a Tree with an empty root.
func New() *Tree {
	return &Tree{root: NewContainerNode()}
}

// Root returns the live root node. It is always a container.
func (t *Tree) Root() *Node {
	return t.root
}

// Value exports the whole tree as an ordered Map.
func (t *Tree) Value() Map {
	return t.root.Value().(Map)
}

// Resolve walks path from the root and returns a handle on the node it names.
// It fails with ErrNotFound if a segment is missing or if a leaf would have to
// be traversed. The root path ("" or "/") always resolves.
func (t *Tree) Resolve(path string) (*Ref, error) {
	ref, ok := t.walk(Split(path))
	if !ok {
		return nil, &fs.PathError{Op: "resolve", Path: path, Err: ErrNotFound}
	}
	return ref, nil
}

// ResolveParent resolves every segment of path but the last. Paths with zero
// or one segment have the root as parent. The parent must be a container,
// otherwise ErrNotFound is returned since nothing can be inserted under it.
func (t *Tree) ResolveParent(path string) (*Ref, error) {
	segs := Split(path)
	if len(segs) > 0 {
		segs = segs[:len(segs)-1]
	}
	ref, ok := t.walk(segs)
	if !ok || !ref.node.IsContainer() {
		return nil, &fs.PathError{Op: "resolve_parent", Path: path, Err: ErrNotFound}
	}
	return ref, nil
}

// Insert stores n under the final segment of path, replacing whatever was
// there (in place, keeping its listing position). The parent must resolve to
// a container, otherwise ErrInvalidDestination is returned.
func (t *Tree) Insert(path string, n *Node) error {
	segs := Split(path)
	if len(segs) == 0 {
		return &fs.PathError{Op: "insert", Path: path, Err: ErrInvalidArgument}
	}
	parent, err := t.ResolveParent(path)
	if err != nil {
		return &fs.PathError{Op: "insert", Path: path, Err: ErrInvalidDestination}
	}
	dir, _ := parent.node.Container()
	dir.Set(segs[len(segs)-1], n)
	parent.node.Touch(time.Now())
	return nil
}

// Remove deletes the final segment of path from its parent container. A
// missing parent or entry is a silent no-op, and so is removing the root.
// Emptied ancestors are left in place.
func (t *Tree) Remove(path string) {
	ref, err := t.Resolve(path)
	if err != nil {
		return
	}
	ref.Remove()
}

// Leaf resolves path to a leaf. A container at path gives ErrNotAFile.
func (t *Tree) Leaf(path string) (*Node, *Leaf, error) {
	ref, err := t.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	leaf, ok := ref.node.Leaf()
	if !ok {
		return nil, nil, &fs.PathError{Op: "leaf", Path: path, Err: ErrNotAFile}
	}
	return ref.node, leaf, nil
}

// Add is Insert without replacement: an existing entry at path gives ErrExists.
func (t *Tree) Add(path string, n *Node) error {
	if _, err := t.Resolve(path); err == nil {
		return &fs.PathError{Op: "add", Path: path, Err: ErrExists}
	}
	return t.Insert(path, n)
}

// RemoveDir deletes the empty container at path. Leaves give
// ErrNotADirectory, the root ErrBusy and non-empty containers ErrNotEmpty.
func (t *Tree) RemoveDir(path string) error {
	ref, err := t.Resolve(path)
	if err != nil {
		return err
	}
	dir, ok := ref.node.Container()
	switch {
	case !ok:
		return &fs.PathError{Op: "remove_dir", Path: path, Err: ErrNotADirectory}
	case ref.IsRoot():
		return &fs.PathError{Op: "remove_dir", Path: path, Err: ErrBusy}
	case dir.Len() > 0:
		return &fs.PathError{Op: "remove_dir", Path: path, Err: ErrNotEmpty}
	}
	ref.Remove()
	return nil
}

// walk follows segs from the root; ok is false as soon as a segment is
// missing or the current node is a leaf.
func (t *Tree) walk(segs []string) (ref *Ref, ok bool) {
	ref = &Ref{node: t.root}
	for _, seg := range segs {
		dir, isDir := ref.node.Container()
		if !isDir {
			return nil, false
		}
		child, exists := dir.Get(seg)
		if !exists {
			return nil, false
		}
		ref = &Ref{parent: ref.node, key: seg, node: child}
	}
	return ref, true
}

// Ref is a mutable handle onto a node in a live Tree: the node itself plus
// the parent container slot that holds it. A Ref is only meaningful until the
// next structural change to one of its ancestors.
type Ref struct {
	parent *Node // nil for the root
	key    string
	node   *Node
}

// Node returns the live node.
func (r *Ref) Node() *Node {
	return r.node
}

// Key is the name the node is stored under; empty for the root.
func (r *Ref) Key() string {
	return r.key
}

func (r *Ref) IsRoot() bool {
	return r.parent == nil
}

// Set replaces the referenced node with n in its parent's slot. On the root
// only a container may be set; its entries replace the root's entries in
// place so existing root handles stay valid.
func (r *Ref) Set(n *Node) error {
	if r.parent == nil {
		src, ok := n.Container()
		if !ok {
			return ErrNotADirectory
		}
		dst := r.node.container
		if dst != src {
			dst.clear()
			src.Range(func(key string, child *Node) bool {
				dst.Set(key, child)
				return true
			})
		}
		r.node.Touch(time.Now())
		return nil
	}
	dir, _ := r.parent.Container()
	dir.Set(r.key, n)
	r.parent.Touch(time.Now())
	r.node = n
	return nil
}

// Remove deletes the referenced entry from its parent. Removing the root is
// a no-op.
func (r *Ref) Remove() {
	if r.parent == nil {
		return
	}
	dir, _ := r.parent.Container()
	if dir.Delete(r.key) {
		r.parent.Touch(time.Now())
	}
}

// Move relocates the node at from to to, replacing any value already at to
// in place. The destination parent must be a container (ErrInvalidDestination)
// and from must exist (ErrNotFound). Moving a node onto itself is a no-op and
// moving it beneath itself fails with ErrInvalidArgument.
func (t *Tree) Move(from, to string) error {
	dst, err := t.ResolveParent(to)
	if err != nil || len(Split(to)) == 0 {
		return &fs.PathError{Op: "move", Path: to, Err: ErrInvalidDestination}
	}
	src, err := t.Resolve(from)
	if err != nil {
		return &fs.PathError{Op: "move", Path: from, Err: ErrNotFound}
	}
	if src.IsRoot() {
		return &fs.PathError{Op: "move", Path: from, Err: ErrInvalidArgument}
	}
	dir, _ := dst.node.Container()
	key := Base(to)
	if dst.node == src.parent && key == src.key {
		return nil
	}
	if src.node.contains(dst.node) {
		return &fs.PathError{Op: "move", Path: to, Err: ErrInvalidArgument}
	}

	src.Remove()
	dir.Set(key, src.node)
	dst.node.Touch(time.Now())
	return nil
}

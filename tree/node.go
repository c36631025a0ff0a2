package tree

import "time"

// Kind tags a Node as either a Container (directory) or a Leaf (file).
type Kind uint8

const (
	LeafKind Kind = iota
	ContainerKind
)

func (k Kind) String() string {
	switch k {
	case ContainerKind:
		return "container"
	case LeafKind:
		return "leaf"
	default:
		return "unknown"
	}
}

// Node is the recursive tree unit. Exactly one of leaf or container is set,
// as given by kind. A node's kind never changes in place; turning a leaf into
// a container means replacing the node in its parent's slot.
type Node struct {
	kind      Kind
	leaf      *Leaf
	container *Container
	mtime     time.Time
}

// NewLeafNode creates a leaf holding a normalized copy of the scalar v.
func NewLeafNode(v any) (*Node, error) {
	norm, err := normalizeScalar(v)
	if err != nil {
		return nil, err
	}
	return &Node{kind: LeafKind, leaf: &Leaf{value: norm}, mtime: time.Now()}, nil
}

// NewStringNode creates a leaf holding s. It cannot fail.
func NewStringNode(s string) *Node {
	return &Node{kind: LeafKind, leaf: &Leaf{value: s}, mtime: time.Now()}
}

// NewContainerNode creates an empty container.
func NewContainerNode() *Node {
	return &Node{kind: ContainerKind, container: newContainer(), mtime: time.Now()}
}

func (n *Node) Kind() Kind {
	return n.kind
}

func (n *Node) IsContainer() bool {
	return n.kind == ContainerKind
}

// Leaf returns the node's leaf and true if the node is a leaf.
func (n *Node) Leaf() (*Leaf, bool) {
	if n.kind != LeafKind {
		return nil, false
	}
	return n.leaf, true
}

// Container returns the node's container and true if the node is a container.
func (n *Node) Container() (*Container, bool) {
	if n.kind != ContainerKind {
		return nil, false
	}
	return n.container, true
}

// ModTime is the last time this node's own content changed. For containers
// that is the last insert or delete of a direct child.
func (n *Node) ModTime() time.Time {
	return n.mtime
}

// Touch sets the node's modification time.
func (n *Node) Touch(t time.Time) {
	n.mtime = t
}

// Value exports the node as a plain Go value: a Map for containers and the
// scalar for leaves. The result shares nothing with the tree.
func (n *Node) Value() any {
	if n.kind == ContainerKind {
		m := make(Map, 0, n.container.Len())
		n.container.Range(func(key string, child *Node) bool {
			m = append(m, Entry{Key: key, Value: child.Value()})
			return true
		})
		return m
	}
	return n.leaf.value
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	cp := &Node{kind: n.kind, mtime: n.mtime}
	if n.kind == ContainerKind {
		cp.container = newContainer()
		n.container.Range(func(key string, child *Node) bool {
			cp.container.Set(key, child.Clone())
			return true
		})
		return cp
	}
	cp.leaf = &Leaf{value: n.leaf.value}
	return cp
}

// contains reports whether other is n itself or any node below n.
func (n *Node) contains(other *Node) bool {
	if n == other {
		return true
	}
	if n.kind != ContainerKind {
		return false
	}
	found := false
	n.container.Range(func(_ string, child *Node) bool {
		found = child.contains(other)
		return !found
	})
	return found
}

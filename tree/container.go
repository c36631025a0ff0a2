package tree

import "slices"

// Container is an ordered map from segment name to Node. Keys are unique and
// keep their insertion position; overwriting a key does not move it.
//
// Container is not safe for concurrent use.
type Container struct {
	keys    []string
	entries map[string]*Node
}

func newContainer() *Container {
	return &Container{entries: make(map[string]*Node)}
}

func (c *Container) Len() int {
	return len(c.keys)
}

// Get returns the live child stored under key.
func (c *Container) Get(key string) (*Node, bool) {
	n, ok := c.entries[key]
	return n, ok
}

// Set stores n under key, appending the key if it is new.
func (c *Container) Set(key string, n *Node) {
	if _, exists := c.entries[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = n
}

// Delete removes key and reports whether it was present.
func (c *Container) Delete(key string) bool {
	if _, exists := c.entries[key]; !exists {
		return false
	}
	delete(c.entries, key)
	if i := slices.Index(c.keys, key); i >= 0 {
		c.keys = slices.Delete(c.keys, i, i+1)
	}
	return true
}

// Keys returns a copy of the keys in insertion order.
func (c *Container) Keys() []string {
	return slices.Clone(c.keys)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (c *Container) Range(fn func(key string, n *Node) bool) {
	for _, key := range c.keys {
		if !fn(key, c.entries[key]) {
			return
		}
	}
}

// clear drops every entry, keeping the Container itself.
func (c *Container) clear() {
	c.keys = nil
	c.entries = make(map[string]*Node)
}

package tree

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// Entry is one key/value pair of an ordered Map.
type Entry struct {
	Key   string
	Value any
}

// Map is the ordered plain-value form of a Container. Nested containers are
// Maps too, leaves are scalars.
type Map []Entry

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// FromValue builds a Tree from a plain Go value. The root must be map-like:
// a Map, any map with string-convertible keys, or a slice/array (whose
// indices become the keys "0", "1", ...). Nested values follow the same
// rules; everything else must be a supported scalar.
func FromValue(v any) (*Tree, error) {
	if v == nil {
		return New(), nil
	}
	n, err := nodeFromValue(v)
	if err != nil {
		return nil, err
	}
	if !n.IsContainer() {
		return nil, fmt.Errorf("%w: root must be a map, got %T", ErrUnsupportedValue, v)
	}
	return &Tree{root: n}, nil
}

func nodeFromValue(v any) (*Node, error) {
	switch val := v.(type) {
	case Map:
		n := NewContainerNode()
		for _, e := range val {
			if err := setChild(n, e.Key, e.Value); err != nil {
				return nil, err
			}
		}
		return n, nil
	case map[string]any:
		n := NewContainerNode()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := setChild(n, k, val[k]); err != nil {
				return nil, err
			}
		}
		return n, nil
	case []any:
		n := NewContainerNode()
		for i, item := range val {
			if err := setChild(n, strconv.Itoa(i), item); err != nil {
				return nil, err
			}
		}
		return n, nil
	case []byte:
		return NewLeafNode(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return nodeFromMap(rv)
	case reflect.Slice, reflect.Array:
		n := NewContainerNode()
		for i := 0; i < rv.Len(); i++ {
			if err := setChild(n, strconv.Itoa(i), rv.Index(i).Interface()); err != nil {
				return nil, err
			}
		}
		return n, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return NewLeafNode(nil)
		}
		return nodeFromValue(rv.Elem().Interface())
	}
	return NewLeafNode(v)
}

// nodeFromMap handles map types other than map[string]any, e.g. the
// map[any]any some decoders produce. Keys are rendered like leaves and
// sorted.
func nodeFromMap(rv reflect.Value) (*Node, error) {
	type kv struct {
		key string
		val any
	}
	items := make([]kv, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := normalizeScalar(iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("%w: map key of type %s", ErrInvalidKey, iter.Key().Type())
		}
		items = append(items, kv{key: (&Leaf{value: k}).String(), val: iter.Value().Interface()})
	}
	slices.SortFunc(items, func(a, b kv) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})

	n := NewContainerNode()
	for _, it := range items {
		if err := setChild(n, it.key, it.val); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func setChild(parent *Node, key string, v any) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	child, err := nodeFromValue(v)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	parent.container.Set(key, child)
	return nil
}

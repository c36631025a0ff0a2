package tree

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Leaf holds a scalar: string, int64, uint64, float64, bool or nil.
// Its file content is the byte rendering of that scalar. Any write turns the
// value into a string.
type Leaf struct {
	value any
}

// Value returns the scalar as stored.
func (l *Leaf) Value() any {
	return l.value
}

// Bytes renders the scalar. Strings are returned as is, numbers in their
// shortest decimal form, booleans as "true"/"false" and nil as empty.
func (l *Leaf) Bytes() []byte {
	return []byte(l.String())
}

func (l *Leaf) String() string {
	switch v := l.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Len is the byte length of the rendered content.
func (l *Leaf) Len() int {
	if s, ok := l.value.(string); ok {
		return len(s)
	}
	return len(l.String())
}

// WriteAt splices p into the content at off, overwriting len(p) bytes and
// growing the content as needed. A gap between the current end and off is
// zero-filled. It returns len(p). The content is left untouched on error.
func (l *Leaf) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidArgument
	}
	if off > math.MaxInt-int64(len(p)) {
		return 0, ErrTooLarge
	}
	cur := l.Bytes()
	end := off + int64(len(p))
	if end > int64(len(cur)) {
		grown := make([]byte, end)
		copy(grown, cur)
		cur = grown
	}
	copy(cur[off:], p)
	l.value = string(cur)
	return len(p), nil
}

// Truncate shrinks or zero-extends the content to size bytes.
func (l *Leaf) Truncate(size int64) error {
	if size < 0 {
		return ErrInvalidArgument
	}
	if size > math.MaxInt {
		return ErrTooLarge
	}
	cur := l.Bytes()
	if size <= int64(len(cur)) {
		l.value = string(cur[:size])
		return nil
	}
	grown := make([]byte, size)
	copy(grown, cur)
	l.value = string(grown)
	return nil
}

// normalizeScalar maps every supported scalar onto the small set Leaf stores.
func normalizeScalar(v any) (any, error) {
	switch s := v.(type) {
	case nil, string, bool, int64, uint64, float64:
		return s, nil
	case []byte:
		return string(s), nil
	case int:
		return int64(s), nil
	case int8:
		return int64(s), nil
	case int16:
		return int64(s), nil
	case int32:
		return int64(s), nil
	case uint:
		return uint64(s), nil
	case uint8:
		return uint64(s), nil
	case uint16:
		return uint64(s), nil
	case uint32:
		return uint64(s), nil
	case float32:
		return float64(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}

	// named scalar types (type Port int, ...)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

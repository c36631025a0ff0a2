package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/brettbedarf/varfs/tree"
)

// decodeJSON reads one JSON document keeping object key order. Objects
// become tree.Map, arrays []any, and numbers int64, uint64 or float64.
func decodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode json: trailing data")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := tree.Map{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m = append(m, tree.Entry{Key: key, Value: val})
			}
			_, err := dec.Token() // '}'
			return m, err
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			_, err := dec.Token() // ']'
			return arr, err
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return parseNumber(t.String())
	default:
		// string, bool or nil
		return t, nil
	}
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	return strconv.ParseFloat(s, 64)
}

// appendJSON renders v compactly, emitting tree.Map entries in order.
// Infinities and NaN have no JSON form and are written as the strings a
// leaf renders them as ("+Inf", "-Inf", "NaN").
func appendJSON(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			b, _ := json.Marshal(strconv.FormatFloat(val, 'g', -1, 64))
			buf.Write(b)
			return nil
		}
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case tree.Map:
		buf.WriteByte('{')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(e.Key)
			buf.Write(key)
			buf.WriteByte(':')
			if err := appendJSON(buf, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func encodeJSON(w io.Writer, m tree.Map) error {
	var compact bytes.Buffer
	if err := appendJSON(&compact, m); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

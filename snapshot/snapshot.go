package snapshot

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/brettbedarf/varfs/internal/util"
	"github.com/brettbedarf/varfs/tree"
	"github.com/dustin/go-humanize"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
)

var (
	// encMode writes Core Deterministic CBOR: sorted keys and smallest
	// encodings, so the same tree always gives the same bytes.
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Decode reads a whole document in format f and returns its plain value,
// ready for tree.FromValue.
func Decode(r io.Reader, f Format) (any, error) {
	switch f {
	case JSON:
		return decodeJSON(r)
	case YAML:
		return decodeYAML(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch f {
	case JSONC:
		return decodeJSON(bytes.NewReader(jsonc.ToJSON(data)))
	case TOML:
		var v map[string]any
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
		return v, nil
	case CBOR:
		var v any
		if err := decMode.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode cbor: %w", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown snapshot format: %q", f)
}

// Encode writes m in format f. JSONC is written as plain JSON.
func Encode(w io.Writer, f Format, m tree.Map) error {
	switch f {
	case JSON, JSONC:
		return encodeJSON(w, m)
	case YAML:
		return encodeYAML(w, m)
	case TOML:
		if err := toml.NewEncoder(w).Encode(toPlain(m, "")); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case CBOR:
		data, err := encMode.Marshal(toPlain(m, nil))
		if err != nil {
			return fmt.Errorf("failed to encode cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown snapshot format: %q", f)
}

// toPlain converts m into nested map[string]any for codecs without ordered
// maps. nil leaves become null, which TOML cannot express.
func toPlain(m tree.Map, null any) map[string]any {
	out := make(map[string]any, len(m))
	for _, e := range m {
		switch v := e.Value.(type) {
		case tree.Map:
			out[e.Key] = toPlain(v, null)
		case nil:
			out[e.Key] = null
		default:
			out[e.Key] = v
		}
	}
	return out
}

// ReadFile loads a tree from path, picking the codec from its extension.
func ReadFile(path string) (*tree.Tree, error) {
	logger := util.GetLogger("Snapshot.ReadFile")

	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	v, err := Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t, err := tree.FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if info, err := f.Stat(); err == nil {
		logger.Debug().
			Str("path", path).
			Str("format", string(format)).
			Bool("zstd", compressed).
			Str("size", humanize.Bytes(uint64(info.Size()))).
			Msg("Loaded snapshot")
	}
	return t, nil
}

// WriteFile dumps m to path, picking the codec from its extension. The file
// is replaced atomically.
func WriteFile(path string, m tree.Map) (err error) {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var w io.Writer = tmp
	var zw *zstd.Encoder
	if compressed {
		if zw, err = zstd.NewWriter(tmp); err != nil {
			return fmt.Errorf("failed to open zstd stream: %w", err)
		}
		w = zw
	}
	if err = Encode(w, format, m); err != nil {
		return err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return fmt.Errorf("failed to finish zstd stream: %w", err)
		}
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Digest is the hex blake3 hash of m's compact, ordered JSON rendering.
// Trees with the same keys in the same order and equal leaves share a
// digest regardless of the file format they came from.
func Digest(m tree.Map) (string, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, m); err != nil {
		return "", err
	}
	h := blake3.New()
	_, _ = h.Write(buf.Bytes())
	return hex.EncodeToString(h.Sum(nil)), nil
}

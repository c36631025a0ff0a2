// Package snapshot loads and dumps trees in the common structured formats.
//
// JSON, JSONC and YAML keep the key order of the document. TOML and CBOR go
// through Go maps, so their keys come back sorted. Any format can be wrapped
// in zstd by adding a ".zst" suffix to the file name.
package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a serialization.
type Format string

const (
	JSON  Format = "json"
	JSONC Format = "jsonc"
	YAML  Format = "yaml"
	TOML  Format = "toml"
	CBOR  Format = "cbor"
)

const zstdExt = ".zst"

var extFormats = map[string]Format{
	".json":  JSON,
	".jsonc": JSONC,
	".yaml":  YAML,
	".yml":   YAML,
	".toml":  TOML,
	".cbor":  CBOR,
}

// FormatFromPath picks the format from the file extension. A trailing ".zst"
// sets compressed and the extension before it decides the format.
func FormatFromPath(path string) (format Format, compressed bool, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == zstdExt {
		compressed = true
		path = strings.TrimSuffix(path, filepath.Ext(path))
		ext = strings.ToLower(filepath.Ext(path))
	}
	format, ok := extFormats[ext]
	if !ok {
		return "", false, fmt.Errorf("unknown snapshot file extension: %s", path)
	}
	return format, compressed, nil
}

package tree

import "strings"

// Split turns a root-relative path into its segments. A single leading "/"
// is stripped and the empty remainder denotes the root (no segments).
// Segments are opaque: "." and ".." are not interpreted.
func Split(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Base returns the final segment of path, or "" for the root.
func Base(path string) string {
	segs := Split(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Join builds a rooted path from segments.
func Join(segs ...string) string {
	return "/" + strings.Join(segs, "/")
}

// validKey reports whether key can be addressed as a single path segment.
func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, "/\x00")
}

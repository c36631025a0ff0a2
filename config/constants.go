package config

import "github.com/brettbedarf/varfs/internal/util"

// Bytes per MB
const MB = 1024 * 1024

// CLI verbosity levels (-v 1..5). Higher is chattier.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "varfs"
	DefaultName   = "varfs"
	DefaultLogLvl = util.InfoLevel

	// DefaultMaxWrite is the maximum write size per FUSE request
	DefaultMaxWrite = 1 * MB

	// DefaultMaxLeafSize caps the content of a single leaf
	DefaultMaxLeafSize int64 = 64 * MB

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultNegativeTimeout is how long failed lookups are cached, in seconds.
	// Zero means paths created outside the kernel's view show up immediately.
	DefaultNegativeTimeout = 0.0

	// DefaultDirectIO bypasses the page cache; leaf content changes under the
	// kernel whenever the tree is edited in process.
	DefaultDirectIO = true

	DefaultDirPerms  uint32 = 0o777
	DefaultFilePerms uint32 = 0o777

	// EnvPrefix is the prefix for environment overrides (VARFS_MAX_WRITE, ...).
	EnvPrefix = "VARFS"
)

// verboseToLogLvl maps CLI verbosity (clamped to 1..5) onto a util.LogLevel.
func verboseToLogLvl(v int) util.LogLevel {
	v = max(ErrorVerbose, min(v, TraceVerbose))
	return util.LogLevel(TraceVerbose - v)
}

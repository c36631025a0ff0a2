package filesystem

import (
	"syscall"

	"github.com/puzpuzpuz/xsync/v4"
)

// Operation names used as stats keys and metric labels.
const (
	OpGetattr  = "getattr"
	OpReaddir  = "readdir"
	OpOpen     = "open"
	OpRead     = "read"
	OpWrite    = "write"
	OpCreate   = "create"
	OpUnlink   = "unlink"
	OpRename   = "rename"
	OpMkdir    = "mkdir"
	OpRmdir    = "rmdir"
	OpTruncate = "truncate"
)

var allOps = []string{
	OpGetattr, OpReaddir, OpOpen, OpRead, OpWrite, OpCreate,
	OpUnlink, OpRename, OpMkdir, OpRmdir, OpTruncate,
}

// OpStats is a point-in-time snapshot of one operation's counters. Bytes is
// only tracked for read and write.
type OpStats struct {
	Calls  uint64
	Errors uint64
	Bytes  uint64
}

type opCounter struct {
	calls  *xsync.Counter
	errors *xsync.Counter
	bytes  *xsync.Counter
}

// opStats counts calls without taking the tree lock so it can be scraped
// while an operation is in flight.
type opStats struct {
	ops *xsync.Map[string, *opCounter]
}

func newOpStats() *opStats {
	s := &opStats{ops: xsync.NewMap[string, *opCounter]()}
	for _, op := range allOps {
		s.ops.Store(op, &opCounter{
			calls:  xsync.NewCounter(),
			errors: xsync.NewCounter(),
			bytes:  xsync.NewCounter(),
		})
	}
	return s
}

func (s *opStats) record(op string, errno syscall.Errno, n int) {
	c, ok := s.ops.Load(op)
	if !ok {
		return
	}
	c.calls.Inc()
	if errno != 0 {
		c.errors.Inc()
	}
	if n > 0 {
		c.bytes.Add(int64(n))
	}
}

func (s *opStats) snapshot() map[string]OpStats {
	out := make(map[string]OpStats, s.ops.Size())
	s.ops.Range(func(op string, c *opCounter) bool {
		out[op] = OpStats{
			Calls:  uint64(c.calls.Value()),
			Errors: uint64(c.errors.Value()),
			Bytes:  uint64(c.bytes.Value()),
		}
		return true
	})
	return out
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/brettbedarf/varfs/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStatsSource struct {
	mock.Mock
}

func (m *MockStatsSource) Stats() map[string]filesystem.OpStats {
	args := m.Called()
	return args.Get(0).(map[string]filesystem.OpStats)
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_Scrape(t *testing.T) {
	t.Parallel()

	source := &MockStatsSource{}
	source.On("Stats").Return(map[string]filesystem.OpStats{
		filesystem.OpRead:  {Calls: 4, Errors: 1, Bytes: 120},
		filesystem.OpWrite: {Calls: 2, Bytes: 9},
	})

	body := scrape(t, Handler(source))

	assert.Contains(t, body, `varfs_ops_total{op="read"} 4`)
	assert.Contains(t, body, `varfs_op_errors_total{op="read"} 1`)
	assert.Contains(t, body, `varfs_ops_total{op="write"} 2`)
	assert.Contains(t, body, `varfs_bytes_read_total 120`)
	assert.Contains(t, body, `varfs_bytes_written_total 9`)
	source.AssertExpectations(t)
}

func TestCollector_LiveFileSystem(t *testing.T) {
	t.Parallel()

	fsys := filesystem.NewFS(nil, nil)
	h := Handler(fsys)

	require.Equal(t, syscall.Errno(0), fsys.Create("/f", 0o644))
	_, errno := fsys.Write("/f", []byte("hello"), 0)
	require.Equal(t, syscall.Errno(0), errno)

	body := scrape(t, h)
	assert.Contains(t, body, `varfs_ops_total{op="create"} 1`)
	assert.Contains(t, body, `varfs_bytes_written_total 5`)
	assert.Contains(t, body, `varfs_ops_total{op="rename"} 0`)
}

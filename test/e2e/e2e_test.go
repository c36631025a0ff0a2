package e2e

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var (
	varfsBin  string
	projRoot  string
	skipMount string
)

func TestMain(m *testing.M) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		skipMount = "FUSE not available"
	} else if _, err := exec.LookPath("fusermount"); err != nil {
		skipMount = "fusermount not installed"
	}

	// Build varfs binary once for all tests
	tmpBinDir, err := os.MkdirTemp("", "varfs-bin")
	if err != nil {
		panic(err)
	}

	varfsBin = filepath.Join(tmpBinDir, "varfs")

	// Determine project root
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot = filepath.Join(filepath.Dir(thisFile), "..", "..")

	if skipMount == "" {
		cmd := exec.Command("go", "build", "-o", varfsBin, "./cmd")
		cmd.Dir = projRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			panic(string(out))
		}
	}

	code := m.Run()
	_ = os.RemoveAll(tmpBinDir)
	os.Exit(code)
}

func TestE2EEditAndDump(t *testing.T) {
	vfs := StartVarFS(t, `{"name": "varfs", "nested": {"n": 1, "on": true}}`)

	data, err := os.ReadFile(filepath.Join(vfs.MountDir, "name"))
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "varfs" {
		t.Fatalf("content mismatch: got %q", string(data))
	}

	if err := os.WriteFile(filepath.Join(vfs.MountDir, "nested", "n"), []byte("42"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(vfs.MountDir, "extra"), 0o755); err != nil {
		t.Fatalf("failed to mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(vfs.MountDir, "extra", "hello"), []byte("world"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := os.Remove(filepath.Join(vfs.MountDir, "nested", "on")); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	vfs.Stop()

	out, err := os.ReadFile(vfs.OutFile)
	if err != nil {
		t.Fatalf("failed to read dump: %v\n%s", err, vfs.Logs())
	}
	expected := `{
  "name": "varfs",
  "nested": {
    "n": "42"
  },
  "extra": {
    "hello": "world"
  }
}
`
	if string(out) != expected {
		t.Fatalf("dump mismatch:\nexpected: %s\ngot:      %s", expected, string(out))
	}
}

func TestE2EUnchangedSkipsDump(t *testing.T) {
	vfs := StartVarFS(t, `{"a": "b"}`)

	entries, err := os.ReadDir(vfs.MountDir)
	if err != nil {
		t.Fatalf("failed to read directory: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a" {
		t.Fatalf("unexpected entries: %v", entries)
	}

	vfs.Stop()

	if _, err := os.Stat(vfs.OutFile); !os.IsNotExist(err) {
		t.Fatalf("expected no dump for an unchanged tree, got err=%v", err)
	}
}

func TestE2EMetrics(t *testing.T) {
	vfs := StartVarFS(t, `{"a": "b"}`, "--metrics-addr", freeAddr(t))
	defer vfs.Stop()

	if _, err := os.ReadFile(filepath.Join(vfs.MountDir, "a")); err != nil {
		t.Fatalf("failed to read file: %v", err)
	}

	var body string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + vfs.MetricsAddr + "/metrics")
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(b)
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !strings.Contains(body, `varfs_ops_total{op="read"}`) {
		t.Fatalf("read counter missing from metrics:\n%s", body)
	}
}

// VarFSInstance represents a running varfs process for testing
type VarFSInstance struct {
	cmd         *exec.Cmd
	MountDir    string
	OutFile     string
	MetricsAddr string
	stderr      *bytes.Buffer
	stopped     bool
}

// StartVarFS starts varfs serving the given JSON document
func StartVarFS(t *testing.T, doc string, extraArgs ...string) *VarFSInstance {
	t.Helper()
	if skipMount != "" {
		t.Skip(skipMount)
	}

	dir := t.TempDir()
	mountDir := filepath.Join(dir, "mnt")
	inFile := filepath.Join(dir, "in.json")
	outFile := filepath.Join(dir, "out.json")

	if err := os.MkdirAll(mountDir, 0o755); err != nil {
		t.Fatalf("Failed to create mount dir: %v", err)
	}
	if err := os.WriteFile(inFile, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write input file: %v", err)
	}

	args := append([]string{"--in", inFile, "--out", outFile, "--env-file", filepath.Join(dir, ".env"), "-v", "4"}, extraArgs...)
	args = append(args, mountDir)
	cmd := exec.Command(varfsBin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start varfs: %v", err)
	}

	instance := &VarFSInstance{
		cmd:      cmd,
		MountDir: mountDir,
		OutFile:  outFile,
		stderr:   &stderr,
	}
	for i, a := range extraArgs {
		if a == "--metrics-addr" && i+1 < len(extraArgs) {
			instance.MetricsAddr = extraArgs[i+1]
		}
	}

	if err := instance.WaitForMount(15 * time.Second); err != nil {
		instance.Stop()
		t.Skipf("varfs mount failed: %v\n%s", err, instance.Logs())
	}
	return instance
}

// Stop sends SIGINT and waits for varfs to unmount and exit
func (v *VarFSInstance) Stop() {
	if v.stopped {
		return
	}
	v.stopped = true

	_ = v.cmd.Process.Signal(os.Interrupt) // Process may have already exited

	done := make(chan error, 1)
	go func() {
		done <- v.cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = v.cmd.Process.Kill() // Process may have already exited
		<-done
		_ = exec.Command("fusermount", "-u", v.MountDir).Run()
	}
}

// WaitForMount waits until the mounted root lists at least one entry
func (v *VarFSInstance) WaitForMount(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if files, err := os.ReadDir(v.MountDir); err == nil && len(files) > 0 {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for varfs mount to be ready")
}

// Logs returns the stderr output of the varfs process
func (v *VarFSInstance) Logs() string {
	return v.stderr.String()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

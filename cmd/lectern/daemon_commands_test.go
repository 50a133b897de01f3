package main

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/ipc"
)

type runningDaemon struct{}

func (runningDaemon) Status(_ ipc.StatusRequest, resp *ipc.StatusResponse) error {
	resp.Running = true
	resp.PID = os.Getpid()
	return nil
}

func (runningDaemon) Start(_ ipc.StartRequest, resp *ipc.StartResponse) error {
	resp.Message = "daemon already running"
	return nil
}

// serveRunningDaemon answers JSON-RPC on the config's socket as a daemon
// whose workflow is already running.
func serveRunningDaemon(t *testing.T, env *cliEnv) {
	t.Helper()
	logDir := filepath.Join(env.base, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatal(err)
	}
	server := rpc.NewServer()
	if err := server.RegisterName("Lectern", runningDaemon{}); err != nil {
		t.Fatal(err)
	}
	listener, err := net.Listen("unix", filepath.Join(logDir, "lectern.sock"))
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()
}

func TestStartUsesConfiguredSocket(t *testing.T) {
	env := newCLIEnv(t, "")
	serveRunningDaemon(t, env)

	out := env.mustRun(t, "start")
	if strings.Contains(out, "launching") {
		t.Fatalf("start launched a second daemon: %q", out)
	}
	if !strings.Contains(out, "Daemon already running") {
		t.Fatalf("unexpected start output: %q", out)
	}
}

func TestStartRejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[paths\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path, "start"})
	cmd.SetOut(new(strings.Builder))
	cmd.SetErr(new(strings.Builder))
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected start to fail on an unreadable config")
	}
}

// Package daemonctl implements the CLI side of daemon lifecycle management:
// launching a detached daemon, stopping it, and assembling status views.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lectern/internal/config"
	"lectern/internal/ipc"
)

const pollEvery = 200 * time.Millisecond

// ErrDaemonNotRunning is returned when no daemon answers on the socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions are forwarded to the spawned `lectern daemon` process.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult reports both halves of a restart. Stop is zero when no
// daemon was running.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// launch spawns `<exe> daemon` in its own session so it outlives the CLI.
func launch(exe string, opts LaunchOptions) error {
	if strings.TrimSpace(exe) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	args := []string{"daemon"}
	if v := strings.TrimSpace(opts.ConfigPath); v != "" {
		args = append(args, "--config", v)
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		args = append(args, "--log-level", v)
	}
	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return cmd.Process.Release()
}

// poll calls check every pollEvery until it reports done or timeout passes.
// The last error from check is returned on timeout.
func poll(timeout time.Duration, check func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	var last error
	for {
		done, err := check()
		if done {
			return nil
		}
		last = err
		if !time.Now().Add(pollEvery).Before(deadline) {
			if last == nil {
				last = errors.New("timed out")
			}
			return last
		}
		time.Sleep(pollEvery)
	}
}

// EnsureStarted connects to (or launches) the daemon and makes sure its
// workflow is running.
func EnsureStarted(socketPath, exe string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := err != nil
	if launched {
		if err := launch(exe, opts); err != nil {
			return StartResult{}, err
		}
		err = poll(waitTimeout, func() (bool, error) {
			var dialErr error
			client, dialErr = ipc.Dial(socketPath)
			return dialErr == nil, dialErr
		})
		if err != nil {
			return StartResult{}, fmt.Errorf("daemon failed to start: %w", err)
		}
	}
	defer client.Close()

	if status, err := client.Status(); err == nil && status != nil && status.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	result := StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	if resp == nil {
		return result, nil
	}
	msg := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		result.State, result.Message = StartStateStarted, msg
	case strings.EqualFold(msg, "daemon already running"):
		result.State, result.Message = StartStateAlreadyRunning, msg
	case msg != "":
		result.Message = msg
	}
	return result, nil
}

// StopAndTerminate halts the workflow over IPC, sends SIGTERM to end the
// process, and falls back to SIGKILL if the socket is still answering after
// grace.
func StopAndTerminate(cfg *config.Config, grace time.Duration) (StopResult, error) {
	socketPath := cfg.SocketPath()
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if daemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result.StopAcknowledged = resp != nil && resp.Stopped

	// IPC Stop only pauses the workflow; the process exits on a signal.
	if result.PID > 0 && result.PID != os.Getpid() {
		if proc, err := os.FindProcess(result.PID); err == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
	}

	_ = poll(grace, func() (bool, error) {
		c, err := ipc.Dial(socketPath)
		if err != nil {
			return true, nil
		}
		_ = c.Close()
		return false, nil
	})
	alive, livePID, err := processInfo(socketPath)
	if err != nil || !alive {
		return result, nil
	}
	if livePID == 0 {
		livePID = result.PID
	}
	killed, err := ForceKillProcess(cfg.PIDPath(), cfg.LockPath(), livePID)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// Restart stops any running daemon and then starts a fresh one.
func Restart(cfg *config.Config, exe string, opts LaunchOptions, stopGrace, startTimeout time.Duration) (RestartResult, error) {
	if cfg == nil {
		return RestartResult{}, errors.New("configuration not available")
	}
	var result RestartResult
	stopped, err := StopAndTerminate(cfg, stopGrace)
	switch {
	case errors.Is(err, ErrDaemonNotRunning):
	case err != nil:
		return result, err
	default:
		result.WasRunning, result.Stop = true, stopped
	}
	result.Start, err = EnsureStarted(cfg.SocketPath(), exe, opts, startTimeout)
	return result, err
}

// processInfo reports whether the daemon answers on socketPath and its PID.
func processInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if daemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// ReadPID returns the PID recorded by the daemon. A missing file yields the
// unwrapped *fs.PathError so callers can test it with os.IsNotExist.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %q", pidPath)
	}
	return pid, nil
}

// ForceKillProcess SIGKILLs the daemon and removes its pid and lock files.
// The pid file wins over fallbackPID. The calling process is never killed.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	switch recorded, err := ReadPID(pidPath); {
	case err == nil:
		pid = recorded
	case !errors.Is(err, os.ErrNotExist) && pid <= 0:
		return 0, fmt.Errorf("read daemon pid file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

func daemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

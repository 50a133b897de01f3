package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"lectern/internal/logging"
)

// ErrNotRecording is returned by Stop when no capture is running.
var ErrNotRecording = errors.New("no recording in progress")

// CommandFactory builds the capture process; tests substitute a stand-in.
type CommandFactory func(ctx context.Context, name string, args ...string) *exec.Cmd

// Result describes a finished capture.
type Result struct {
	Path     string
	Duration time.Duration
	Size     int64
}

// Recorder runs a single ffmpeg capture at a time.
type Recorder struct {
	binary      string
	logger      *slog.Logger
	newCommand  CommandFactory
	stopTimeout time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *bytes.Buffer
	output  string
	started time.Time
	done    chan struct{}
	waitErr error
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithCommandFactory replaces exec.CommandContext.
func WithCommandFactory(factory CommandFactory) Option {
	return func(r *Recorder) {
		if factory != nil {
			r.newCommand = factory
		}
	}
}

// WithStopTimeout bounds how long Stop waits for ffmpeg to finalize the file
// before killing it.
func WithStopTimeout(timeout time.Duration) Option {
	return func(r *Recorder) {
		if timeout > 0 {
			r.stopTimeout = timeout
		}
	}
}

// NewRecorder constructs a Recorder for the given ffmpeg binary.
func NewRecorder(binary string, logger *slog.Logger, opts ...Option) *Recorder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	r := &Recorder{
		binary:      binary,
		logger:      logging.NewComponentLogger(logger, "recorder"),
		newCommand:  exec.CommandContext,
		stopTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the capture and returns the output path.
func (r *Recorder) Start(ctx context.Context, session Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return "", fmt.Errorf("recording already in progress: %s", r.output)
	}
	if err := os.MkdirAll(session.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create recording directory: %w", err)
	}

	started := time.Now()
	output := session.OutputPath(started)
	cmd := r.newCommand(ctx, r.binary, session.Args(output)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan struct{})
	r.cmd, r.stdin, r.stderr = cmd, stdin, stderr
	r.output, r.started, r.done, r.waitErr = output, started, done, nil
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		r.waitErr = err
		r.mu.Unlock()
		close(done)
	}()

	r.logger.Info("recording started",
		logging.String("path", output),
		logging.String("source", session.Source),
		logging.String("quality", session.Quality),
	)
	return output, nil
}

// Running reports whether a capture is active.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// Elapsed returns the time since the capture started.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil {
		return 0
	}
	return time.Since(r.started)
}

// Stop asks ffmpeg to finish, waits for the file to be finalized, and kills
// the process if it does not exit within the stop timeout.
func (r *Recorder) Stop() (Result, error) {
	r.mu.Lock()
	cmd, stdin, stderr, done := r.cmd, r.stdin, r.stderr, r.done
	output, started := r.output, r.started
	r.mu.Unlock()
	if cmd == nil {
		return Result{}, ErrNotRecording
	}

	_, _ = io.WriteString(stdin, "q")
	_ = stdin.Close()

	killed := false
	select {
	case <-done:
	case <-time.After(r.stopTimeout):
		killed = true
		_ = cmd.Process.Kill()
		<-done
	}

	r.mu.Lock()
	waitErr := r.waitErr
	r.cmd, r.stdin, r.stderr, r.done = nil, nil, nil, nil
	r.mu.Unlock()

	result := Result{Path: output, Duration: time.Since(started)}
	if killed {
		return result, fmt.Errorf("ffmpeg did not stop within %s and was killed", r.stopTimeout)
	}
	if waitErr != nil {
		return result, fmt.Errorf("ffmpeg: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	info, err := os.Stat(output)
	if err != nil {
		return result, fmt.Errorf("recording output missing: %w", err)
	}
	result.Size = info.Size()
	r.logger.Info("recording finished",
		logging.String("path", output),
		logging.Duration("duration", result.Duration),
		logging.Int64("size_bytes", result.Size),
	)
	return result, nil
}

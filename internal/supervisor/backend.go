// Package supervisor owns the lifecycle of the spawned backend process and
// its readiness state.
package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sidana21/BinaryTradeX/internal/config"
	"github.com/sidana21/BinaryTradeX/internal/metrics"
)

// Backend supervises a single spawned backend server process. The combined
// stdout/stderr stream is echoed to the operator log line by line and scanned
// for the readiness phrase. The ready flag transitions false->true at most
// once and never back; a backend that crashes after signaling readiness is
// observed via Exited but not restarted.
type Backend struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	cmd   *exec.Cmd
	ready atomic.Bool

	exited  chan struct{}
	exitMu  sync.Mutex
	exitErr error
}

// NewBackend creates a Backend supervisor. The metrics parameter is optional;
// pass nil to disable readiness gauge updates.
func NewBackend(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Backend {
	return &Backend{
		cfg:     cfg,
		logger:  logger.With("component", "supervisor"),
		metrics: m,
		exited:  make(chan struct{}),
	}
}

// Start spawns the backend process with PORT pointing at the internal port
// and begins draining its output in the background. A spawn failure is
// returned to the caller and is fatal to startup; everything after a
// successful spawn is handled asynchronously.
func (b *Backend) Start() error {
	bc := b.cfg.Backend

	cmd := exec.Command(bc.Command, bc.Args...)
	cmd.Dir = bc.Dir
	cmd.Env = append(os.Environ(), bc.Env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("PORT=%d", bc.Port))

	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout // merge stderr into the same line stream

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: start %q: %w", bc.Command, err)
	}
	b.cmd = cmd

	b.logger.Info("backend started",
		"command", bc.Command,
		"pid", cmd.Process.Pid,
		"port", bc.Port,
	)

	go b.monitor(out)
	go b.wait()

	return nil
}

// maxLineBytes caps how much of a single output line is retained for logging
// and readiness matching. The remainder of an over-length line is still
// consumed so the backend never blocks on a full pipe.
const maxLineBytes = 1024 * 1024

// monitor drains the backend's output stream until the process exits. Every
// line is echoed to the operator log, then tested against the readiness
// predicate.
func (b *Backend) monitor(r io.Reader) {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := readLine(br)
		if err == nil || line != "" {
			b.logger.Info("backend output", "line", line)

			if !b.ready.Load() && isReadyLine(line, b.cfg.Backend.ReadyPhrase) {
				b.ready.Store(true)
				if b.metrics != nil {
					b.metrics.BackendReady.Set(1)
				}
				b.logger.Info("backend is ready")
			}
		}
		if err != nil {
			if err != io.EOF {
				b.logger.Warn("backend output stream error", "err", err)
			}
			return
		}
	}
}

// readLine reads one output line, truncated to maxLineBytes, consuming the
// full line from the stream regardless of its length.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if room := maxLineBytes - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if err != nil || !isPrefix {
			return string(buf), err
		}
	}
}

// isReadyLine reports whether a single output line signals backend readiness.
// The match is a case-insensitive substring test against the configured phrase.
func isReadyLine(line, phrase string) bool {
	return strings.Contains(strings.ToLower(line), strings.ToLower(phrase))
}

// wait blocks until the process exits and records the result. No restart is
// attempted.
func (b *Backend) wait() {
	err := b.cmd.Wait()

	b.exitMu.Lock()
	b.exitErr = err
	b.exitMu.Unlock()
	close(b.exited)

	if err != nil {
		b.logger.Error("backend exited", "err", err)
		return
	}
	b.logger.Info("backend exited cleanly")
}

// Ready reports whether the backend has signaled readiness.
func (b *Backend) Ready() bool {
	return b.ready.Load()
}

// Exited returns a channel closed when the backend process has exited.
func (b *Backend) Exited() <-chan struct{} {
	return b.exited
}

// ExitErr returns the process exit error, or nil if the process is still
// running or exited cleanly.
func (b *Backend) ExitErr() error {
	b.exitMu.Lock()
	defer b.exitMu.Unlock()
	return b.exitErr
}

// WaitReady polls the ready flag at the configured interval up to the
// configured ceiling. It returns true as soon as the backend is ready and
// false when the ceiling is reached; a false return is not fatal, the caller
// serves traffic anyway.
func (b *Backend) WaitReady() bool {
	poll := time.Duration(b.cfg.Backend.ReadyPollMillis) * time.Millisecond
	deadline := time.Now().Add(time.Duration(b.cfg.Backend.ReadyTimeoutSecs) * time.Second)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if b.ready.Load() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ticker.C:
		case <-b.exited:
			// A dead backend will never turn ready; stop polling early.
			return b.ready.Load()
		}
	}
}

// Stop terminates the backend process: SIGTERM, then SIGKILL after the grace
// period. It is safe to call when the process already exited on its own.
func (b *Backend) Stop() error {
	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}

	select {
	case <-b.exited:
		return nil
	default:
	}

	b.logger.Info("stopping backend", "pid", b.cmd.Process.Pid)
	if err := b.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		b.logger.Warn("signal backend", "err", err)
	}

	grace := time.Duration(b.cfg.Backend.StopGraceSecs) * time.Second
	select {
	case <-b.exited:
		return nil
	case <-time.After(grace):
		b.logger.Warn("backend did not exit in time, killing", "grace", grace)
		if err := b.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("supervisor: kill backend: %w", err)
		}
		<-b.exited
		return nil
	}
}

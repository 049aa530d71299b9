// Package process supervises external helper binaries such as the local
// model server. It launches a command, forwards its output into the
// application log, polls an HTTP readiness endpoint, and shuts the process
// down gracefully on exit.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autofill-backend/internal/shared/telemetry"
)

// Config describes an external process to supervise.
type Config struct {
	Name          string
	Command       string
	Args          []string
	Env           []string
	WorkDir       string
	ReadyURL      string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	StopTimeout   time.Duration
}

// Managed tracks the lifecycle of a launched process.
type Managed struct {
	cfg Config
	cmd *exec.Cmd

	done    chan struct{}
	waitErr error
	mu      sync.RWMutex
}

// Start launches the configured process and, when ReadyURL is set, blocks
// until the readiness probe answers or times out.
func Start(ctx context.Context, cfg Config) (*Managed, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("process: command required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = filepath.Base(cfg.Command)
	}
	telemetry.Info("process.start", map[string]any{
		"name":    name,
		"command": cfg.Command,
		"args":    strings.Join(cfg.Args, " "),
	})

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("process: stderr pipe %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("process: start %s: %w", name, err)
	}

	streamCtx, cancelStreams := context.WithCancel(ctx)
	var streams sync.WaitGroup
	forward := func(pipe io.ReadCloser, stream string) {
		streams.Add(1)
		go func() {
			defer streams.Done()
			defer pipe.Close()
			scanner := bufio.NewScanner(pipe)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				fields := map[string]any{"name": name, "stream": stream, "line": scanner.Text()}
				if stream == "stderr" {
					telemetry.Warn("process.output", fields)
				} else {
					telemetry.Info("process.output", fields)
				}
			}
			if err := scanner.Err(); err != nil && streamCtx.Err() == nil && !errors.Is(err, os.ErrClosed) {
				telemetry.Warn("process.stream_error", map[string]any{"name": name, "stream": stream, "error": err.Error()})
			}
		}()
	}
	forward(stdout, "stdout")
	forward(stderr, "stderr")

	m := &Managed{cfg: cfg, cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		cancelStreams()
		streams.Wait()
		m.mu.Lock()
		m.waitErr = err
		m.mu.Unlock()
		close(m.done)
	}()

	if err := waitForReady(ctx, m, name); err != nil {
		m.Stop(context.Background())
		return nil, err
	}
	if cfg.ReadyURL != "" {
		telemetry.Info("process.ready", map[string]any{"name": name, "url": cfg.ReadyURL})
	}
	return m, nil
}

// Done is closed once the process has exited.
func (m *Managed) Done() <-chan struct{} {
	if m == nil {
		return nil
	}
	return m.done
}

// Stop interrupts the process, then kills it if it does not exit within
// StopTimeout.
func (m *Managed) Stop(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry.Info("process.stop", map[string]any{"name": m.cfg.Name})
	if m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			telemetry.Warn("process.interrupt_failed", map[string]any{"name": m.cfg.Name, "error": err.Error()})
		}
	}
	stopTimeout := m.cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-m.done:
		return m.normalizeWaitErr()
	case <-timer.C:
		telemetry.Warn("process.kill", map[string]any{"name": m.cfg.Name})
		if m.cmd != nil && m.cmd.Process != nil {
			if err := m.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				return err
			}
		}
		<-m.done
		return m.normalizeWaitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitForReady(ctx context.Context, m *Managed, name string) error {
	cfg := m.cfg
	if strings.TrimSpace(cfg.ReadyURL) == "" {
		return nil
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 30 * time.Second
	}
	interval := cfg.ReadyInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	client := &http.Client{Timeout: 2 * time.Second}
	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-readyCtx.Done():
			if lastErr != nil {
				return fmt.Errorf("process: waiting for %s ready timed out after %s: last error: %w", name, readyTimeout, lastErr)
			}
			return fmt.Errorf("process: waiting for %s ready timed out after %s: %w", name, readyTimeout, readyCtx.Err())
		case <-m.done:
			return fmt.Errorf("process: %s exited before reporting ready: %w", name, m.waitError())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(readyCtx, http.MethodGet, cfg.ReadyURL, nil)
			if err != nil {
				return fmt.Errorf("process: build readiness request for %s: %w", name, err)
			}
			resp, err := client.Do(req)
			if err != nil {
				lastErr = err
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			// Anything below 500 means the server is up and talking HTTP.
			if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusInternalServerError {
				return nil
			}
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}
}

func (m *Managed) waitError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waitErr
}

func (m *Managed) normalizeWaitErr() error {
	err := m.waitError()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return nil
	}
	return err
}

// BinaryPath resolves an executable on the system PATH.
func BinaryPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("process: binary name required")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("process: locate %s: %w", name, err)
	}
	return filepath.Clean(path), nil
}

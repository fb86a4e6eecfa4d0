package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/services"
)

// stderrTailLines bounds how much encoder chatter is kept for error reports.
const stderrTailLines = 12

// Option configures the client.
type Option func(*Client)

// WithLogger attaches a logger for encoder diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "encoder")
		}
	}
}

// Client spawns encoder processes configured for stdin-fed remuxing.
type Client struct {
	binary      string
	killTimeout time.Duration
	logger      *slog.Logger
}

// New constructs an encoder client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	binary := strings.TrimSpace(cfg.EncoderBinary())
	if binary == "" {
		return nil, errors.New("encoder binary required")
	}
	killTimeout := time.Duration(cfg.Encoder.KillTimeout) * time.Second
	if killTimeout <= 0 {
		killTimeout = 5 * time.Second
	}
	client := &Client{
		binary:      binary,
		killTimeout: killTimeout,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	return client, nil
}

// Start launches the encoder reading from stdin and writing outputPath.
// Callers must eventually call Wait or Stop so the child is reaped.
func (c *Client) Start(ctx context.Context, outputPath string) (*Process, error) {
	if strings.TrimSpace(outputPath) == "" {
		return nil, services.Wrap(services.ErrEncoderSpawn, "encoder", "start", "output path required", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-acodec", "copy",
		"-y", outputPath,
	}
	// Shutdown is Stop's job, not the context's: plain exec.Command keeps
	// the child out of the context's kill path so it always gets the
	// TERM-then-KILL ladder and is always reaped.
	cmd := exec.Command(c.binary, args...) //nolint:gosec

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrEncoderSpawn, "encoder", "start", "stdin pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrEncoderSpawn, "encoder", "start", "stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrEncoderSpawn, "encoder", "start",
			fmt.Sprintf("spawn %s", c.binary), err)
	}

	proc := &Process{
		cmd:         cmd,
		stdin:       stdin,
		killTimeout: c.killTimeout,
		logger:      c.logger,
	}

	proc.stderrWG.Add(1)
	go func() {
		defer proc.stderrWG.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			proc.tail.add(line)
			c.logger.Debug("encoder stderr", logging.String("line", line))
		}
	}()

	c.logger.Debug("encoder started",
		logging.String("command", c.binary),
		logging.String("output", outputPath))
	return proc, nil
}

// Process is one running encoder child.
type Process struct {
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	killTimeout time.Duration
	logger      *slog.Logger

	tail     stderrTail
	stderrWG sync.WaitGroup

	waitOnce sync.Once
	waitErr  error

	stopOnce sync.Once
}

// Stdin is the pipe the recorder streams segment bytes into. It stays open
// for the whole fetch phase; closing it tells the encoder input is complete.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Wait blocks until the child exits or ctx fires. A context error means the
// child is still running and the caller should Stop it.
func (p *Process) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- p.reap() }()
	select {
	case err := <-done:
		return p.classifyExit(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the child down: close stdin, SIGTERM, and SIGKILL if it is
// still alive after the kill timeout. The child is reaped on every path,
// and calling Stop again (or after Wait) is a no-op.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		_ = p.stdin.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Signal(syscall.SIGTERM)
		}
		done := make(chan error, 1)
		go func() { done <- p.reap() }()
		select {
		case <-done:
		case <-time.After(p.killTimeout):
			p.logger.Warn("encoder ignored SIGTERM, killing",
				logging.String(logging.FieldEventType, "encoder_killed"),
				logging.Duration("elapsed", p.killTimeout),
				logging.String(logging.FieldErrorHint, "encoder did not exit after stdin closed"),
				logging.String(logging.FieldImpact, "output file may be truncated"))
			if p.cmd.Process != nil {
				_ = p.cmd.Process.Kill()
			}
			<-done
		}
	})
}

// reap waits for the child exactly once and memoizes the result. The stderr
// scanner must drain before Wait per os/exec pipe rules.
func (p *Process) reap() error {
	p.waitOnce.Do(func() {
		p.stderrWG.Wait()
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

func (p *Process) classifyExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := exitErr.String()
		if tail := p.tail.String(); tail != "" {
			detail = fmt.Sprintf("%s: %s", detail, tail)
		}
		return services.Wrap(services.ErrEncoderExit, "encoder", "wait", detail, nil)
	}
	return services.Wrap(services.ErrEncoderExit, "encoder", "wait", "", err)
}

// stderrTail keeps the last few stderr lines for exit reports.
type stderrTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *stderrTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > stderrTailLines {
		t.lines = t.lines[len(t.lines)-stderrTailLines:]
	}
}

func (t *stderrTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}

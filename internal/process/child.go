package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a child process.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusFailed  Status = "failed"
)

// maxLineSize bounds a single stdout line. QR payloads arrive base64
// encoded on one line, so this is generous.
const maxLineSize = 1 << 20

// Config holds configuration for a stdio-attached child process.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from the parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from the parent process.
	WorkDir string

	// GracefulTimeout is how long Stop waits after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// OnLine is called for each newline-terminated line the child writes
	// to stdout, from a single goroutine in read order.
	OnLine func(line []byte)

	// OnExit is called exactly once when the child exits, with the exit
	// error (nil for a clean exit). It fires for requested stops too;
	// callers that care can check Stopping.
	OnExit func(err error)
}

// Logger defines the logging interface for the process package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Child is a running stdio-attached subprocess.
type Child struct {
	config Config
	logger Logger

	mu            sync.Mutex
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	status        Status
	stopRequested bool

	// done closes when the wait goroutine observes the exit.
	done chan struct{}
}

// NewChild creates a child manager with the given configuration.
// The process is not started until Start is called.
func NewChild(cfg Config) *Child {
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	return &Child{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the child.
func (c *Child) SetLogger(logger Logger) {
	c.logger = logger
}

// Start launches the subprocess and begins consuming its stdout.
func (c *Child) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusRunning {
		return fmt.Errorf("process %s is already running", c.config.Name)
	}

	//nolint:gosec // Binary and args come from validated configuration
	cmd := exec.Command(c.config.Binary, c.config.Args...)

	// New process group so Stop can signal the child and anything it
	// spawned (the runner forks a browser).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if c.config.Env != nil {
		cmd.Env = append(os.Environ(), c.config.Env...)
	}
	if c.config.WorkDir != "" {
		cmd.Dir = c.config.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", c.config.Name, err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.status = StatusRunning
	c.stopRequested = false
	c.done = make(chan struct{})

	readDone := make(chan struct{})
	errDone := make(chan struct{})
	go func() {
		c.readLines(stdout)
		close(readDone)
	}()
	go func() {
		c.logStderr(stderr)
		close(errDone)
	}()
	go c.wait(readDone, errDone)

	c.logger.Info("process started",
		"name", c.config.Name,
		"pid", cmd.Process.Pid,
	)

	return nil
}

// readLines feeds stdout lines to OnLine in order.
func (c *Child) readLines(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if c.config.OnLine != nil {
			// Copy: Scanner reuses its buffer across lines.
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			c.config.OnLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug("stdout closed", "name", c.config.Name, "error", err)
	}
}

// logStderr captures the child's stderr at debug level.
func (c *Child) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		c.logger.Debug("process stderr",
			"name", c.config.Name,
			"output", scanner.Text(),
		)
	}
}

// wait drains both pipes to EOF, then reaps the process, records the
// outcome, and fires OnExit exactly once. Wait closes the pipes, so
// reaping first could race the readers out of trailing lines written
// just before exit.
func (c *Child) wait(readDone, errDone <-chan struct{}) {
	<-readDone
	<-errDone
	err := c.cmd.Wait()

	c.mu.Lock()
	if err != nil && !c.stopRequested {
		c.status = StatusFailed
	} else {
		c.status = StatusStopped
	}
	c.mu.Unlock()

	close(c.done)

	if err != nil {
		c.logger.Debug("process exited", "name", c.config.Name, "error", err)
	} else {
		c.logger.Debug("process exited cleanly", "name", c.config.Name)
	}

	if c.config.OnExit != nil {
		c.config.OnExit(err)
	}
}

// WriteLine writes data plus a trailing newline to the child's stdin.
// Writes are serialized; interleaving two frames on the pipe would
// corrupt the line protocol.
func (c *Child) WriteLine(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusRunning || c.stdin == nil {
		return fmt.Errorf("process %s is not running", c.config.Name)
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')

	if _, err := c.stdin.Write(buf); err != nil {
		return fmt.Errorf("writing to %s: %w", c.config.Name, err)
	}
	return nil
}

// Stop terminates the child: SIGTERM to the process group, then SIGKILL
// after the graceful timeout. Stopping an already-exited child is a
// no-op.
func (c *Child) Stop() error {
	c.mu.Lock()
	if c.status != StatusRunning {
		c.mu.Unlock()
		return nil
	}
	c.stopRequested = true
	cmd := c.cmd
	done := c.done
	c.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	c.logger.Info("stopping process", "name", c.config.Name, "pid", pid)

	// Negative PID signals the process group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			c.logger.Warn("failed to send SIGTERM to process group", "name", c.config.Name, "error", err)
		}
	}

	select {
	case <-done:
		c.logger.Info("process stopped gracefully", "name", c.config.Name)
		return nil
	case <-time.After(c.config.GracefulTimeout):
		c.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", c.config.Name,
			"timeout", c.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("killing process group %s: %w", c.config.Name, err)
		}
	}

	<-done
	c.logger.Info("process killed", "name", c.config.Name)
	return nil
}

// Status returns the current status of the child.
func (c *Child) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stopping reports whether Stop has been requested.
func (c *Child) Stopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRequested
}

// PID returns the process ID, or 0 if not running.
func (c *Child) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Pid
	}
	return 0
}

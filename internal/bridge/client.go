package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/relay-core/internal/process"
	"github.com/nerrad567/relay-core/internal/session"
)

// Logger defines the logging interface for the bridge.
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

// Config holds settings for spawning runner processes.
type Config struct {
	// Binary is the interpreter or executable for the runner
	// (typically "node").
	Binary string

	// Script is the runner entry point, passed as the first argument
	// when set.
	Script string

	// BrowserPath is handed to the runner as its automation browser.
	BrowserPath string

	// StopTimeout is how long Destroy waits for the runner to exit after
	// SIGTERM before it is killed.
	StopTimeout time.Duration
}

// Validate checks the runner configuration.
func (c Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("runner binary is required")
	}
	return nil
}

// Factory constructs runner-backed clients. Its Client method satisfies
// session.ClientFactory.
type Factory struct {
	cfg    Config
	logger Logger
}

// NewFactory creates a runner client factory.
func NewFactory(cfg Config) (*Factory, error) {
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runner config: %w", err)
	}
	return &Factory{
		cfg:    cfg,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the factory and the clients it creates.
func (f *Factory) SetLogger(logger Logger) {
	f.logger = logger
}

// Client constructs a runner-backed session client bound to the given
// credential path. The runner is not spawned until Initialize.
func (f *Factory) Client(credentialPath string, handlers session.EventHandlers) (session.Client, error) {
	c := &Client{
		cfg:      f.cfg,
		credPath: credentialPath,
		handlers: handlers,
		logger:   f.logger,
		pending:  make(map[string]chan eventFrame),
	}

	args := make([]string, 0, 5)
	if f.cfg.Script != "" {
		args = append(args, f.cfg.Script)
	}
	args = append(args, "--auth-dir", credentialPath)
	if f.cfg.BrowserPath != "" {
		args = append(args, "--browser", f.cfg.BrowserPath)
	}

	c.child = process.NewChild(process.Config{
		Name:            "runner",
		Binary:          f.cfg.Binary,
		Args:            args,
		GracefulTimeout: f.cfg.StopTimeout,
		OnLine:          c.handleLine,
		OnExit:          c.handleExit,
	})
	if pl, ok := f.logger.(process.Logger); ok {
		c.child.SetLogger(pl)
	}

	return c, nil
}

// Client drives one runner process and translates its stdio frames into
// session events. It implements session.Client.
type Client struct {
	cfg      Config
	credPath string
	handlers session.EventHandlers
	logger   Logger
	child    *process.Child

	mu        sync.Mutex
	pending   map[string]chan eventFrame
	info      session.Identity
	hasInfo   bool
	destroyed bool
}

// Initialize spawns the runner. Lifecycle events begin flowing as the
// runner connects; an error here means the process could not start.
func (c *Client) Initialize(_ context.Context) error {
	if err := c.child.Start(); err != nil {
		return fmt.Errorf("spawning runner: %w", err)
	}
	c.logger.Debug("runner spawned", "pid", c.child.PID(), "auth_dir", c.credPath)
	return nil
}

// SendMessage writes a send command and blocks for the correlated result
// frame.
func (c *Client) SendMessage(ctx context.Context, target, body string) error {
	id := uuid.NewString()

	reply := make(chan eventFrame, 1)
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return fmt.Errorf("client destroyed")
	}
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	frame, err := json.Marshal(commandFrame{
		ID:     id,
		Action: actionSend,
		Target: target,
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("encoding send command: %w", err)
	}

	if err := c.child.WriteLine(frame); err != nil {
		return fmt.Errorf("writing send command: %w", err)
	}

	select {
	case result, ok := <-reply:
		if !ok {
			return fmt.Errorf("runner exited before confirming send")
		}
		if !result.OK {
			return fmt.Errorf("runner send failed: %s", result.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info returns the account identity reported on the ready event.
func (c *Client) Info() (session.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info, c.hasInfo
}

// Destroy stops the runner. Safe to call repeatedly; only the first call
// does work.
func (c *Client) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.mu.Unlock()

	c.failPending()

	if err := c.child.Stop(); err != nil {
		return fmt.Errorf("stopping runner: %w", err)
	}
	return nil
}

// handleLine decodes one runner frame and dispatches it.
func (c *Client) handleLine(line []byte) {
	var frame eventFrame
	if err := json.Unmarshal(line, &frame); err != nil {
		c.logger.Warn("undecodable runner frame", "error", err)
		return
	}

	switch frame.Event {
	case eventQR:
		if c.handlers.OnQR != nil {
			c.handlers.OnQR(frame.Payload)
		}

	case eventAuthenticated:
		if c.handlers.OnAuthenticated != nil {
			c.handlers.OnAuthenticated()
		}

	case eventReady:
		c.mu.Lock()
		if frame.Info != nil {
			c.info = session.Identity{
				PhoneNumber: frame.Info.Number,
				DisplayName: frame.Info.Name,
			}
			c.hasInfo = true
		}
		c.mu.Unlock()
		if c.handlers.OnReady != nil {
			c.handlers.OnReady()
		}

	case eventAuthFailure:
		if c.handlers.OnAuthFailure != nil {
			c.handlers.OnAuthFailure(frame.Payload)
		}

	case eventDisconnected:
		if c.handlers.OnDisconnected != nil {
			c.handlers.OnDisconnected(frame.Payload)
		}

	case eventResult:
		// Deliver under the lock: reply channels are buffered and only
		// ever receive one frame, and failPending may close them from
		// another goroutine.
		c.mu.Lock()
		if reply, ok := c.pending[frame.ID]; ok {
			reply <- frame
			delete(c.pending, frame.ID)
		} else {
			c.logger.Debug("result for unknown command", "id", frame.ID)
		}
		c.mu.Unlock()

	default:
		c.logger.Warn("unknown runner event", "event", frame.Event)
	}
}

// handleExit turns an unexpected runner death into a disconnected event.
// Requested stops (Destroy) are not disconnect events; teardown is
// already in progress when they happen.
func (c *Client) handleExit(err error) {
	c.failPending()

	c.mu.Lock()
	destroyed := c.destroyed
	c.mu.Unlock()
	if destroyed || c.child.Stopping() {
		return
	}

	reason := "runner exited"
	if err != nil {
		reason = fmt.Sprintf("runner exited: %v", err)
	}
	c.logger.Warn("runner died", "auth_dir", c.credPath, "error", err)

	if c.handlers.OnDisconnected != nil {
		c.handlers.OnDisconnected(reason)
	}
}

// failPending closes all in-flight command reply channels so blocked
// senders return an error instead of hanging.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, reply := range c.pending {
		close(reply)
		delete(c.pending, id)
	}
}

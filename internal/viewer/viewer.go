// Package viewer drives the display operations of a remote telemetry
// viewer over a websocket JSON protocol. The viewer is a best-effort
// collaborator: when it cannot be reached the client retries on a fixed
// backoff, optionally launching the viewer process between attempts.
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	// DefaultMaxRetries bounds connection attempts before StartupError.
	DefaultMaxRetries = 60
	// DefaultBackoff is the pause between connection attempts.
	DefaultBackoff = time.Second
)

// StartupError reports a viewer that could not be reached after the
// bounded retries.
type StartupError struct {
	Addr     string
	Attempts int
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("unable to reach telemetry viewer at %s after %d attempts: %v", e.Addr, e.Attempts, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// Launcher starts the viewer process when the client cannot connect.
type Launcher interface {
	Launch(ctx context.Context) error
}

// Client issues display commands to the viewer.
type Client struct {
	addr       string
	logger     *slog.Logger
	launcher   Launcher
	maxRetries int
	backoff    time.Duration
}

func New(addr string, logger *slog.Logger) *Client {
	return &Client{
		addr:       addr,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
	}
}

// SetLauncher installs a best-effort process launcher invoked between
// failed connection attempts.
func (c *Client) SetLauncher(l Launcher) { c.launcher = l }

// SetRetry overrides the retry bound and backoff.
func (c *Client) SetRetry(maxRetries int, backoff time.Duration) {
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	if backoff > 0 {
		c.backoff = backoff
	}
}

type command struct {
	Action  string `json:"action"`
	Display string `json:"display,omitempty"`
	Target  string `json:"target,omitempty"`
	X       *int   `json:"x,omitempty"`
	Y       *int   `json:"y,omitempty"`
}

type reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Display opens a named display, optionally positioned.
func (c *Client) Display(ctx context.Context, name string, x, y *int) error {
	return c.write(ctx, command{Action: "display", Display: name, X: x, Y: y})
}

// Clear closes a named display.
func (c *Client) Clear(ctx context.Context, name string) error {
	return c.write(ctx, command{Action: "clear", Display: name})
}

// ClearAll closes every display, or every display of one target when
// target is non-empty.
func (c *Client) ClearAll(ctx context.Context, target string) error {
	return c.write(ctx, command{Action: "clear_all", Target: target})
}

func (c *Client) write(ctx context.Context, cmd command) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.writeOnce(ctx, cmd)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		c.logger.Warn("viewer: connection attempt failed", "addr", c.addr, "attempt", attempt, "error", err)

		if c.launcher != nil {
			if lerr := c.launcher.Launch(ctx); lerr != nil {
				c.logger.Warn("viewer: launch failed", "error", lerr)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	return &StartupError{Addr: c.addr, Attempts: c.maxRetries, Err: lastErr}
}

func (c *Client) writeOnce(ctx context.Context, cmd command) error {
	conn, _, err := websocket.Dial(ctx, c.addr, nil)
	if err != nil {
		return fmt.Errorf("dial viewer: %w", err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Action, err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("read %s reply: %w", cmd.Action, err)
	}
	var rep reply
	if err := json.Unmarshal(data, &rep); err != nil {
		return fmt.Errorf("decode %s reply: %w", cmd.Action, err)
	}
	if !rep.OK {
		return fmt.Errorf("viewer rejected %s: %s", cmd.Action, rep.Error)
	}
	conn.Close(websocket.StatusNormalClosure, "done")
	return nil
}

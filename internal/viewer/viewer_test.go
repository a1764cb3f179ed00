package viewer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeViewer accepts one websocket command per connection and answers
// with a canned reply.
func fakeViewer(t *testing.T, respond func(cmd command) reply) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var commands atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		var cmd command
		if err := wsjson.Read(r.Context(), conn, &cmd); err != nil {
			return
		}
		commands.Add(1)
		wsjson.Write(r.Context(), conn, respond(cmd))
	}))
	t.Cleanup(srv.Close)
	return srv, &commands
}

func wsAddr(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDisplay(t *testing.T) {
	var got command
	srv, commands := fakeViewer(t, func(cmd command) reply {
		got = cmd
		return reply{OK: true}
	})

	c := New(wsAddr(srv), testLogger())
	x, y := 100, 200
	if err := c.Display(context.Background(), "INST HS", &x, &y); err != nil {
		t.Fatal(err)
	}
	if commands.Load() != 1 {
		t.Fatalf("expected 1 command, got %d", commands.Load())
	}
	if got.Action != "display" || got.Display != "INST HS" {
		t.Fatalf("bad command: %+v", got)
	}
	if got.X == nil || *got.X != 100 || got.Y == nil || *got.Y != 200 {
		t.Fatalf("bad position: %+v", got)
	}
}

func TestClearAll(t *testing.T) {
	var got command
	srv, _ := fakeViewer(t, func(cmd command) reply {
		got = cmd
		return reply{OK: true}
	})

	c := New(wsAddr(srv), testLogger())
	if err := c.ClearAll(context.Background(), "INST"); err != nil {
		t.Fatal(err)
	}
	if got.Action != "clear_all" || got.Target != "INST" {
		t.Fatalf("bad command: %+v", got)
	}
}

func TestRejectedCommand(t *testing.T) {
	srv, _ := fakeViewer(t, func(cmd command) reply {
		return reply{OK: false, Error: "unknown display"}
	})

	c := New(wsAddr(srv), testLogger())
	c.SetRetry(2, time.Millisecond)
	err := c.Clear(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected error")
	}
	var startup *StartupError
	if !errors.As(err, &startup) {
		t.Fatalf("expected StartupError after exhausted retries, got %v", err)
	}
	if !strings.Contains(startup.Error(), "unknown display") {
		t.Fatalf("error should carry the viewer's reason: %v", startup)
	}
}

func TestUnreachableViewerRaisesStartupError(t *testing.T) {
	c := New("ws://127.0.0.1:1", testLogger())
	c.SetRetry(3, time.Millisecond)

	err := c.Display(context.Background(), "INST HS", nil, nil)
	var startup *StartupError
	if !errors.As(err, &startup) {
		t.Fatalf("expected StartupError, got %v", err)
	}
	if startup.Attempts != 3 {
		t.Fatalf("attempts %d, want 3", startup.Attempts)
	}
	if startup.Addr != "ws://127.0.0.1:1" {
		t.Fatalf("addr %q", startup.Addr)
	}
	if startup.Unwrap() == nil {
		t.Fatal("expected wrapped dial error")
	}
}

type launcherFunc func(ctx context.Context) error

func (f launcherFunc) Launch(ctx context.Context) error { return f(ctx) }

func TestLauncherInvokedBetweenAttempts(t *testing.T) {
	var launches atomic.Int64
	c := New("ws://127.0.0.1:1", testLogger())
	c.SetRetry(2, time.Millisecond)
	c.SetLauncher(launcherFunc(func(ctx context.Context) error {
		launches.Add(1)
		return nil
	}))

	if err := c.Clear(context.Background(), "INST HS"); err == nil {
		t.Fatal("expected failure against unreachable viewer")
	}
	if launches.Load() != 2 {
		t.Fatalf("expected a launch per failed attempt, got %d", launches.Load())
	}
}

func TestContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	c := New("ws://127.0.0.1:1", testLogger())
	c.SetRetry(1000, 10*time.Millisecond)

	start := time.Now()
	err := c.Clear(ctx, "INST HS")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancellation did not stop the retry loop")
	}
}

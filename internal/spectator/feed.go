package spectator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Feed serves Snapshot values over a websocket, one push per poll interval,
// to any number of connected browser clients: websocket.Accept with an
// origin allowlist, a per-client write mutex, and a best-effort broadcast
// that writes to clients one after another, each write bounded by a 5s
// timeout, and drops any client whose write fails or times out.
type Feed struct {
	provider     Provider
	logger       *slog.Logger
	allowOrigins []string
	interval     time.Duration

	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewFeed builds a Feed that polls provider at interval (default 500ms) and
// pushes to every connected client.
func NewFeed(provider Provider, allowOrigins []string, logger *slog.Logger, interval time.Duration) *Feed {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		provider:     provider,
		logger:       logger,
		allowOrigins: allowOrigins,
		interval:     interval,
		clients:      map[*feedClient]struct{}{},
	}
}

// Handler returns the /spectator websocket endpoint.
func (f *Feed) Handler() http.HandlerFunc {
	return f.handleWS
}

func (f *Feed) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: f.allowOrigins,
	})
	if err != nil {
		return
	}
	c := &feedClient{conn: conn}
	f.addClient(c)
	f.logger.Info("spectator feed: client connected")
	defer func() {
		f.removeClient(c)
		f.logger.Info("spectator feed: client disconnecting")
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	if err := c.send(r.Context(), f.provider()); err != nil {
		return
	}

	// Block on the client's context; a spectator connection is read-only so
	// there is nothing to receive, but reading surfaces client-initiated
	// closes promptly instead of leaking the goroutine until the next push.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// Run starts the broadcast loop, pushing a fresh snapshot to every
// connected client on each tick until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.broadcast(ctx, f.provider())
		}
	}
}

func (f *Feed) broadcast(ctx context.Context, snap Snapshot) {
	f.mu.Lock()
	targets := make([]*feedClient, 0, len(f.clients))
	for c := range f.clients {
		targets = append(targets, c)
	}
	f.mu.Unlock()

	for _, c := range targets {
		if err := c.send(ctx, snap); err != nil {
			f.logger.Warn("spectator feed: dropping client on write error", "error", err)
			f.removeClient(c)
			_ = c.conn.Close(websocket.StatusPolicyViolation, "backpressure")
		}
	}
}

func (c *feedClient) send(ctx context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c.conn, snap)
}

func (f *Feed) addClient(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[c] = struct{}{}
}

func (f *Feed) removeClient(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, c)
}

// MarshalForTest exposes the JSON a test can compare against without
// standing up a real websocket connection.
func MarshalForTest(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

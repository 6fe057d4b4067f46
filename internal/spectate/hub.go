// Package spectate fans spectator lines out to websocket subscribers and redis channels.
package spectate

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/pkg/dueldto"
)

const (
	pathPrefix   = "/spectate/"
	sendBuffer   = 64
	writeTimeout = 5 * time.Second

	// ended game ids remembered for refusing late subscribers
	keepEnded = 256
)

type client struct {
	conn *websocket.Conn
	send chan dueldto.SpectatorLine
}

type feed struct {
	clients map[*client]struct{}
	seq     int64
}

// Hub serves GET /spectate/{gameID}. Slow subscribers lose lines rather than stall the game.
type Hub struct {
	mu         sync.Mutex
	feeds      map[string]*feed
	ended      map[string]struct{}
	endedOrder []string

	known        func(gameID string) bool
	pingInterval time.Duration
	log          *zap.Logger
}

// NewHub creates a hub. known, when set, rejects subscriptions to unknown games.
func NewHub(known func(gameID string) bool) *Hub {
	return &Hub{
		feeds:        make(map[string]*feed),
		ended:        make(map[string]struct{}),
		known:        known,
		pingInterval: 15 * time.Second,
		log:          obslog.L(),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, pathPrefix) {
		http.NotFound(w, r)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, pathPrefix), "/")
	if id == "" || h.isEnded(id) || (h.known != nil && !h.known(id)) {
		http.NotFound(w, r)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn("spectate_accept_failed", zap.String("game", id), zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan dueldto.SpectatorLine, sendBuffer)}
	if !h.register(id, c) {
		// the game ended between the check above and the upgrade
		_ = conn.Close(websocket.StatusNormalClosure, "game over")
		return
	}
	h.log.Info("spectate_join", zap.String("game", id), zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)

	// spectators never send; CloseRead only watches for their close frame
	ctx := conn.CloseRead(context.Background())
	<-ctx.Done()
	h.unregister(id, c)
	h.log.Info("spectate_leave", zap.String("game", id))
}

func (h *Hub) writeLoop(c *client) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "game over")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, c.conn, msg)
			cancel()
			if err != nil {
				_ = c.conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-ping.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (h *Hub) register(id string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ended[id]; ok {
		return false
	}
	f := h.feeds[id]
	if f == nil {
		f = &feed{clients: make(map[*client]struct{})}
		h.feeds[id] = f
	}
	f.clients[c] = struct{}{}
	return true
}

func (h *Hub) isEnded(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.ended[id]
	return ok
}

func (h *Hub) unregister(id string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.feeds[id]
	if f == nil {
		return
	}
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

func (h *Hub) publish(id, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ended[id]; ok {
		return
	}
	f := h.feeds[id]
	if f == nil {
		f = &feed{clients: make(map[*client]struct{})}
		h.feeds[id] = f
	}
	f.seq++
	msg := dueldto.SpectatorLine{Game: id, Seq: f.seq, Line: line}
	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debug("spectate_drop", zap.String("game", id), zap.Int64("seq", f.seq))
		}
	}
}

// Subscribers reports how many websocket clients follow the game.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f := h.feeds[id]; f != nil {
		return len(f.clients)
	}
	return 0
}

// Close ends the feed: pending lines are flushed, then subscribers get a normal closure.
// Later subscriptions and lines for the game are refused.
func (h *Hub) Close(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ended[id]; !ok {
		h.ended[id] = struct{}{}
		h.endedOrder = append(h.endedOrder, id)
		for len(h.endedOrder) > keepEnded {
			delete(h.ended, h.endedOrder[0])
			h.endedOrder = h.endedOrder[1:]
		}
	}
	f := h.feeds[id]
	if f == nil {
		return
	}
	for c := range f.clients {
		close(c.send)
	}
	delete(h.feeds, id)
}

// Sink returns the session-facing writer for one game.
func (h *Hub) Sink(id string) session.LineWriter {
	return hubSink{h: h, id: id}
}

type hubSink struct {
	h  *Hub
	id string
}

func (s hubSink) WriteLine(line string) error {
	s.h.publish(s.id, line)
	return nil
}

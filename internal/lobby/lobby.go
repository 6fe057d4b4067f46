// Package lobby accepts TCP players, pairs them in arrival order and runs each pair's
// session on its own goroutine.
package lobby

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/transport"
)

var (
	ErrJoinTimeout = errors.New("player did not send a name in time")
	ErrLeft        = errors.New("player left before joining")
)

const defaultName = "player"

const (
	keyWaiting = "lobby.waiting"
	keyFull    = "lobby.full"
)

type Config struct {
	JoinTimeout time.Duration
	MoveTimeout time.Duration
	Pace        time.Duration
	Seed        int64
	Catalog     *msgcat.Catalog
	Registry    *Registry

	// Spectators builds the broadcast sink for a new game; nil discards.
	Spectators func(gameID string) session.LineWriter
	Display    func(gameID string) session.Display

	// OnEnd runs after a game's session returned and its players were closed.
	OnEnd func(gameID string)

	Logger *zap.Logger
}

type waiter struct {
	name string
	conn *transport.Conn
	stop func() bool
}

type Lobby struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	waiting *waiter
	rng     *rand.Rand

	wg sync.WaitGroup
}

func New(cfg Config) (*Lobby, error) {
	if cfg.Catalog == nil {
		c, err := msgcat.New("")
		if err != nil {
			return nil, err
		}
		cfg.Catalog = c
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(0)
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = obslog.L()
	}
	return &Lobby{cfg: cfg, log: log, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

func (l *Lobby) Registry() *Registry { return l.cfg.Registry }

// Serve accepts players until ctx is done or the listener fails.
func (l *Lobby) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	l.log.Info("lobby_listen", zap.String("addr", ln.Addr().String()))
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				if w := l.queued(); w != nil {
					_ = w.conn.Close()
				}
				return nil
			}
			return err
		}
		go func() {
			if err := l.Admit(ctx, nc); err != nil {
				l.log.Info("lobby_reject", zap.String("remote", nc.RemoteAddr().String()), zap.Error(err))
			}
		}()
	}
}

// Admit reads the player's name and either queues them or starts a game with the one waiting.
func (l *Lobby) Admit(ctx context.Context, nc net.Conn) error {
	c := transport.NewConn(nc)
	res := c.ReadLine(ctx, l.cfg.JoinTimeout)
	switch res.Status {
	case session.ReadDisconnected:
		_ = c.Close()
		return ErrLeft
	case session.ReadTimedOut:
		if strings.TrimSpace(res.Text) == "" {
			_ = c.Close()
			return ErrJoinTimeout
		}
	}
	name := strings.TrimSpace(res.Text)
	if name == "" {
		name = defaultName
	}
	l.log.Info("lobby_join", zap.String("name", name), zap.String("remote", c.RemoteAddr()))

	me := &waiter{name: name, conn: c}
	for {
		l.mu.Lock()
		other := l.waiting
		if other == nil {
			me.stop = c.Watch(func() { l.leave(me) })
			l.waiting = me
			l.mu.Unlock()
			l.say(c, keyWaiting)
			return nil
		}
		l.waiting = nil
		l.mu.Unlock()

		// the queued player may have hung up just before we took them
		if !other.stop() {
			continue
		}
		l.mu.Lock()
		seats := session.Seat(l.rng, participant(other), participant(me))
		l.mu.Unlock()
		return l.start(ctx, seats, other.conn, me.conn)
	}
}

// leave drops a queued player whose connection closed.
func (l *Lobby) leave(w *waiter) {
	l.mu.Lock()
	if l.waiting == w {
		l.waiting = nil
	}
	l.mu.Unlock()
	_ = w.conn.Close()
	l.log.Info("lobby_leave", zap.String("name", w.name), zap.String("remote", w.conn.RemoteAddr()))
}

func (l *Lobby) queued() *waiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiting
}

func participant(w *waiter) session.Participant {
	return session.Participant{Name: w.name, In: w.conn, Out: w.conn}
}

func (l *Lobby) start(ctx context.Context, seats [2]session.Participant, conns ...*transport.Conn) error {
	closeAll := func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}
	reg := l.cfg.Registry
	id, err := reg.Open(seats[0].Name, seats[1].Name)
	if err != nil {
		for _, c := range conns {
			l.say(c, keyFull)
		}
		closeAll()
		return err
	}

	var spect session.LineWriter = transport.Discard{}
	if l.cfg.Spectators != nil {
		if w := l.cfg.Spectators(id); w != nil {
			spect = w
		}
	}
	var disp session.Display
	if l.cfg.Display != nil {
		disp = l.cfg.Display(id)
	}
	s, err := session.New(seats, spect, session.Config{
		ID:       id,
		Timeout:  l.cfg.MoveTimeout,
		Pace:     l.cfg.Pace,
		Catalog:  l.cfg.Catalog,
		Display:  disp,
		Logger:   l.log,
		Progress: func(st session.State, snap rules.Snapshot) { reg.Update(id, st, snap) },
	})
	if err != nil {
		reg.Finish(id, session.Outcome{}, err)
		closeAll()
		return err
	}
	l.log.Info("lobby_pair", zap.String("game", id), zap.String("white", seats[0].Name), zap.String("black", seats[1].Name))

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		out, err := s.Run(ctx)
		reg.Finish(id, out, err)
		closeAll()
		if l.cfg.OnEnd != nil {
			l.cfg.OnEnd(id)
		}
	}()
	return nil
}

func (l *Lobby) say(c *transport.Conn, key string) {
	line, err := l.cfg.Catalog.Render(key, nil)
	if err != nil {
		l.log.Warn("lobby_render_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.WriteLine(line); err != nil {
		l.log.Debug("lobby_write_failed", zap.Error(err))
	}
}

// Wait blocks until every started session has returned.
func (l *Lobby) Wait() { l.wg.Wait() }

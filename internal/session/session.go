// Package session drives one two-player game: turn order, the draw-offer sub-protocol,
// retirement, per-move read timeout, inter-move pacing and fan-out to players and spectators.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/rules"
)

var ErrMissingMessages = errors.New("message catalog is missing session keys")

type Config struct {
	ID       string
	Timeout  time.Duration
	Pace     time.Duration
	Engine   rules.Engine
	Catalog  *msgcat.Catalog
	Display  Display
	Logger   *zap.Logger
	Progress func(State, rules.Snapshot)
}

type Session struct {
	cfg        Config
	players    [2]Participant
	spectators LineWriter
	eng        rules.Engine
	log        *zap.Logger
}

// New prepares a session. Seat 0 plays White.
func New(players [2]Participant, spectators LineWriter, cfg Config) (*Session, error) {
	if cfg.Catalog == nil {
		c, err := msgcat.New("")
		if err != nil {
			return nil, err
		}
		cfg.Catalog = c
	}
	if missing := cfg.Catalog.Missing(Keys...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingMessages, missing)
	}
	for i, p := range players {
		if p.In == nil || p.Out == nil {
			return nil, fmt.Errorf("participant %d has no stream", i)
		}
	}
	if spectators == nil {
		spectators = discard{}
	}
	eng := cfg.Engine
	if eng == nil {
		eng = rules.NewGame()
	}
	log := cfg.Logger
	if log == nil {
		log = obslog.L()
	}
	if cfg.ID != "" {
		log = log.With(zap.String("game", cfg.ID))
	}
	return &Session{cfg: cfg, players: players, spectators: spectators, eng: eng, log: log}, nil
}

// Run plays the game to its end. An error is returned only when the engine refuses a move it
// had just declared legal.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	s.announce()
	s.log.Info("duel_start",
		zap.String("white", s.players[0].Name),
		zap.String("black", s.players[1].Name),
	)

	st := Initial()
	forfeited := false
	for {
		if out, events, done := Conclude(st, s.eng); done {
			s.emit(st, events)
			if forfeited {
				out.Reason = "disconnect"
			}
			s.log.Info("duel_end",
				zap.String("outcome", out.Kind.String()),
				zap.String("winner", string(out.Winner)),
				zap.String("reason", out.Reason),
			)
			return out, nil
		}

		s.emit(st, CheckEvents(st, s.eng))

		snap := s.eng.Snapshot()
		if s.cfg.Display != nil {
			s.cfg.Display.Show(ctx, snap)
		}
		if s.cfg.Progress != nil {
			s.cfg.Progress(st, snap)
		}

		start := time.Now()
		mover := s.players[st.Turn.Index()]
		res := mover.In.ReadLine(ctx, s.cfg.Timeout)

		var tr Transition
		switch res.Status {
		case ReadDisconnected:
			s.log.Warn("duel_disconnect", zap.String("color", string(st.Turn)), zap.String("player", mover.Name))
			tr = Forfeit(st)
			forfeited = true
		case ReadTimedOut:
			s.log.Debug("duel_read_timeout", zap.String("color", string(st.Turn)), zap.String("partial", res.Text))
			tr = Advance(st, res.Text, s.eng)
		default:
			tr = Advance(st, res.Text, s.eng)
		}

		s.emit(st, tr.Events)
		if tr.Apply != nil {
			if err := s.eng.Apply(*tr.Apply); err != nil {
				s.log.Error("duel_apply_failed", zap.String("move", tr.Apply.String()), zap.Error(err))
				return Outcome{}, err
			}
			s.log.Info("duel_move",
				zap.String("color", string(st.Turn)),
				zap.String("move", tr.Apply.String()),
				zap.Int("ply", s.eng.Snapshot().Ply),
			)
		}
		if tr.Next.Draw == DrawOffered && st.Draw != DrawOffered {
			s.log.Info("duel_draw_offer", zap.String("color", string(st.Turn)))
		}
		st = tr.Next
		if tr.Paced {
			sleepUntil(ctx, start.Add(s.cfg.Pace))
		}
	}
}

// announce sends both names to everyone, then each side its colour.
func (s *Session) announce() {
	for _, p := range s.players {
		s.write(s.players[0].Out, p.Name)
		s.write(s.players[1].Out, p.Name)
		s.write(s.spectators, p.Name)
	}
	s.emitTo(s.players[0].Out, Event{Key: KeySeatWhite})
	s.emitTo(s.players[1].Out, Event{Key: KeySeatBlack})
}

// emit writes events in order; within an event the order is mover, opponent, spectators.
func (s *Session) emit(st State, events []Event) {
	mover := s.players[st.Turn.Index()].Out
	opponent := s.players[st.Turn.Other().Index()].Out
	for _, ev := range events {
		if ev.To.Has(Mover) {
			s.emitTo(mover, ev)
		}
		if ev.To.Has(Opponent) {
			s.emitTo(opponent, ev)
		}
		if ev.To.Has(Spectators) {
			s.emitTo(s.spectators, ev)
		}
	}
}

func (s *Session) emitTo(w LineWriter, ev Event) {
	line := ev.Text
	if line == "" {
		var err error
		line, err = s.cfg.Catalog.Render(ev.Key, ev.Data)
		if err != nil {
			s.log.Error("duel_render_failed", zap.String("key", ev.Key), zap.Error(err))
			return
		}
	}
	s.write(w, line)
}

func (s *Session) write(w LineWriter, line string) {
	if err := w.WriteLine(line); err != nil {
		s.log.Warn("duel_write_failed", zap.String("line", line), zap.Error(err))
	}
}

// sleepUntil waits for the deadline; a slow move is never shortened and shutdown cuts it short.
func sleepUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

type discard struct{}

func (discard) WriteLine(string) error { return nil }

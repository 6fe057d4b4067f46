// Package status serves a small read-only HTTP view of the hosted games.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/pkg/dueldto"
)

// Games is the read side of the game registry.
type Games interface {
	List() []dueldto.Game
	Get(id string) (dueldto.Game, error)
}

type Server struct {
	games Games
	srv   *fasthttp.Server
	log   *zap.Logger
}

func New(games Games) *Server {
	s := &Server{games: games, log: obslog.L()}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "duel-status",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Handle routes GET /healthz, GET /games and GET /games/{id}.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	if !ctx.IsGet() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}
	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case path == "/games":
		s.writeJSON(ctx, s.games.List())
	case strings.HasPrefix(path, "/games/"):
		id := strings.Trim(strings.TrimPrefix(path, "/games/"), "/")
		g, err := s.games.Get(id)
		if err != nil {
			ctx.Error("game not found", fasthttp.StatusNotFound)
			return
		}
		s.writeJSON(ctx, g)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("status_encode_failed", zap.Error(err))
		ctx.Error("encode failed", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}

// Serve blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		if err := s.srv.Shutdown(); err != nil {
			s.log.Warn("status_shutdown", zap.Error(err))
		}
	})
	defer stop()
	s.log.Info("status_listen", zap.String("addr", ln.Addr().String()))
	err := s.srv.Serve(ln)
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

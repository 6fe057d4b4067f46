package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/board"
	"github.com/park285/cheese-duel/internal/config"
	"github.com/park285/cheese-duel/internal/lobby"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/spectate"
	"github.com/park285/cheese-duel/internal/status"
	"github.com/park285/cheese-duel/internal/transport"
)

func serve(parent context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := obslog.L()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	registry := lobby.NewRegistry(cfg.MaxGames)

	var hub *spectate.Hub
	if !disabled(cfg.SpectateAddr) {
		hub = spectate.NewHub(registry.Has)
	}

	var rdb *redis.Client
	if opt := cfg.RedisOptions(); opt != nil {
		rdb = redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			log.Warn("redis_unreachable", zap.Error(err))
		}
		cancel()
	}

	lb, err := lobby.New(lobby.Config{
		JoinTimeout: cfg.JoinTimeout,
		MoveTimeout: cfg.MoveTimeout,
		Pace:        cfg.MovePace,
		Seed:        cfg.SeedValue(time.Now()),
		Catalog:     catalog,
		Registry:    registry,
		Spectators: func(id string) session.LineWriter {
			fan := transport.NewFanout()
			if hub != nil {
				fan.Add(hub.Sink(id))
			}
			if rdb != nil {
				fan.Add(spectate.NewRedisSink(rdb, id))
			}
			return fan
		},
		Display: func(id string) session.Display {
			var m board.Multi
			if cfg.BoardConsole {
				m = append(m, board.NewConsole(os.Stdout, id))
			}
			if cfg.SnapshotDir != "" {
				m = append(m, board.NewPNG(cfg.SnapshotDir, id))
			}
			return m
		},
		OnEnd: func(id string) {
			if hub != nil {
				hub.Close(id)
			}
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	errc := make(chan error, 3)
	running := 1
	go func() { errc <- lb.Serve(ctx, ln) }()

	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/spectate/", hub)
		srv := &http.Server{Addr: cfg.SpectateAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		running++
		go func() {
			log.Info("spectate_listen", zap.String("addr", cfg.SpectateAddr))
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errc <- err
		}()
		context.AfterFunc(ctx, func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = srv.Shutdown(sctx)
		})
	}

	if !disabled(cfg.StatusAddr) {
		sln, err := net.Listen("tcp", cfg.StatusAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen %s: %w", cfg.StatusAddr, err)
		}
		running++
		go func() { errc <- status.New(registry).Serve(ctx, sln) }()
	}

	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errc; err != nil && firstErr == nil {
			firstErr = err
			log.Error("server_failed", zap.Error(err))
			cancel()
		}
	}
	lb.Wait()
	log.Info("shutdown_complete")
	return firstErr
}

func applyFlags(cmd *cli.Command, cfg *config.AppConfig) {
	if cmd.IsSet("listen") {
		cfg.ListenAddr = cmd.String("listen")
	}
	if cmd.IsSet("move-timeout") {
		cfg.MoveTimeout = cmd.Duration("move-timeout")
	}
	if cmd.IsSet("pace") {
		cfg.MovePace = cmd.Duration("pace")
	}
	if cmd.IsSet("seed") {
		cfg.Seed = cmd.Int64("seed")
	}
	if cmd.IsSet("spectate") {
		cfg.SpectateAddr = cmd.String("spectate")
	}
	if cmd.IsSet("status") {
		cfg.StatusAddr = cmd.String("status")
	}
	if cmd.IsSet("snapshots") {
		cfg.SnapshotDir = cmd.String("snapshots")
	}
}

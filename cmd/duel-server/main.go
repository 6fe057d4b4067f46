// Command duel-server hosts two-player chess duels over line-oriented TCP.
//
// Players connect to the listen address and send their name as the first line; the first two
// waiting players are paired. Spectators follow a game over websocket (/spectate/{id}) or redis.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/park285/cheese-duel/internal/notation"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "duel-server: %v\n", err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:           "duel-server",
		Usage:          "host two-player chess duels over TCP",
		DefaultCommand: "serve",
		Writer:         out,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "accept players and run games",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "player TCP address (DUEL_LISTEN_ADDR)"},
					&cli.DurationFlag{Name: "move-timeout", Usage: "per-move read timeout (DUEL_MOVE_TIMEOUT)"},
					&cli.DurationFlag{Name: "pace", Usage: "minimum time between moves (DUEL_MOVE_PACE)"},
					&cli.Int64Flag{Name: "seed", Usage: "colour assignment seed, 0 for clock (DUEL_SEED)"},
					&cli.StringFlag{Name: "spectate", Usage: "websocket address, empty or off to disable (DUEL_SPECTATE_ADDR)"},
					&cli.StringFlag{Name: "status", Usage: "status HTTP address, empty or off to disable (DUEL_STATUS_ADDR)"},
					&cli.StringFlag{Name: "snapshots", Usage: "directory for PNG board snapshots (DUEL_SNAPSHOT_DIR)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return serve(ctx, cmd)
				},
			},
			{
				Name:      "parse",
				Usage:     "check lines against the move notation",
				ArgsUsage: "[line...]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "random", Usage: "generate and check N random lines"},
					&cli.Int64Flag{Name: "seed", Value: 1, Usage: "seed for --random"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return parseLines(cmd, in, out)
				},
			},
		},
	}
}

func parseLines(cmd *cli.Command, in io.Reader, out io.Writer) error {
	var lines []string
	switch {
	case cmd.Int("random") > 0:
		r := rand.New(rand.NewSource(cmd.Int64("seed")))
		for i := 0; i < int(cmd.Int("random")); i++ {
			lines = append(lines, notation.RandomLine(r))
		}
	case cmd.Args().Len() > 0:
		lines = cmd.Args().Slice()
	default:
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
	for _, line := range lines {
		fmt.Fprintln(out, describe(line))
	}
	return nil
}

func describe(line string) string {
	text := strings.TrimSpace(line)
	switch text {
	case "RETIRE", "DRAW":
		return fmt.Sprintf("%q\tcommand", text)
	}
	in, ok := notation.Parse(text)
	if !ok {
		return fmt.Sprintf("%q\tinvalid", text)
	}
	return fmt.Sprintf("%q\t%s\t%s", text, in.Kind, in)
}

func disabled(addr string) bool {
	a := strings.TrimSpace(addr)
	return a == "" || strings.EqualFold(a, "off")
}

const shutdownGrace = 5 * time.Second

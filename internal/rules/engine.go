// Package rules adapts the corentings/chess rule engine to the narrow contract the session
// state machine consumes: check/checkmate queries, legality of a parsed intent, and applying it.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-duel/internal/notation"
)

var (
	ErrNotLegal = errors.New("move is not legal in the current position")
	ErrBadFEN   = errors.New("invalid FEN")
)

// Engine is the capability the session needs from a rule engine.
// Apply must only be called with an intent Legal accepted for the side to move.
type Engine interface {
	InCheck(c Color) bool
	Checkmate(c Color) bool
	Legal(in *notation.Intent, c Color) bool
	Apply(in notation.Intent) error
	// Drawn reports a draw declared by the rules themselves (stalemate, insufficient material,
	// fivefold repetition, seventy-five move rule).
	Drawn() bool
	Snapshot() Snapshot
}

// Snapshot is a read-only view of the board for displays and status listings.
type Snapshot struct {
	FEN      string
	Turn     Color
	Ply      int
	LastMove string
	Board    *nchess.Board
	Diagram  string
}

// Game is an Engine backed by an in-memory corentings/chess game.
type Game struct {
	game *nchess.Game
}

func NewGame() *Game {
	return &Game{game: nchess.NewGame()}
}

// FromFEN starts a game from an arbitrary position (used by tests and puzzles).
func FromFEN(fen string) (*Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
	}
	return &Game{game: nchess.NewGame(opt)}, nil
}

// InCheck reads the board, so positions loaded with FromFEN report check too.
func (g *Game) InCheck(c Color) bool {
	pos := g.game.Position()
	if pos == nil {
		return false
	}
	return kingAttacked(pos.Board(), c.engine())
}

func (g *Game) Checkmate(c Color) bool {
	if g.game.Method() != nchess.Checkmate {
		return false
	}
	return colorFrom(g.game.Position().Turn()) == c
}

func (g *Game) Drawn() bool {
	return g.game.Outcome() == nchess.Draw
}

func (g *Game) Legal(in *notation.Intent, c Color) bool {
	if in == nil {
		return false
	}
	_, ok := g.match(*in, c)
	return ok
}

func (g *Game) Apply(in notation.Intent) error {
	pos := g.game.Position()
	found, ok := g.match(in, colorFrom(pos.Turn()))
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLegal, in)
	}
	mv, err := nchess.UCINotation{}.Decode(pos, found.uci)
	if err != nil {
		return fmt.Errorf("decode %s: %w", found.uci, err)
	}
	if err := g.game.Move(mv, nil); err != nil {
		return fmt.Errorf("apply %s: %w", found.uci, err)
	}
	return nil
}

func (g *Game) Snapshot() Snapshot {
	pos := g.game.Position()
	snap := Snapshot{
		FEN:   g.game.FEN(),
		Turn:  colorFrom(pos.Turn()),
		Ply:   len(g.game.Moves()),
		Board: pos.Board(),
	}
	if snap.Board != nil {
		snap.Diagram = snap.Board.Draw()
	}
	if moves := g.game.Moves(); len(moves) > 0 {
		snap.LastMove = moves[len(moves)-1].String()
	}
	return snap
}

type matched struct {
	uci string
}

// match finds the engine move corresponding to the intent. Each intent kind only matches
// its own category, so a castle typed as a basic move is rejected.
func (g *Game) match(in notation.Intent, c Color) (matched, bool) {
	pos := g.game.Position()
	if pos == nil || pos.Turn() != c.engine() || g.game.Outcome() != nchess.NoOutcome {
		return matched{}, false
	}
	if !in.Move.From.Valid() || !in.Move.To.Valid() {
		return matched{}, false
	}
	from, to := in.Move.From.Engine(), in.Move.To.Engine()
	moves := pos.ValidMoves()
	for i := range moves {
		m := moves[i]
		if m.S1() != from || m.S2() != to {
			continue
		}
		castle := m.HasTag(nchess.KingSideCastle) || m.HasTag(nchess.QueenSideCastle)
		passant := m.HasTag(nchess.EnPassant)
		promo := m.Promo()
		switch in.Kind {
		case notation.Basic:
			if castle || passant || promo != nchess.NoPieceType {
				continue
			}
		case notation.EnPassant:
			if !passant {
				continue
			}
		case notation.Promotion:
			if promo == nchess.NoPieceType || promo != in.Piece {
				continue
			}
		case notation.Castling:
			if !castle || !rookFollows(in, m.HasTag(nchess.KingSideCastle)) {
				continue
			}
		default:
			continue
		}
		uci := in.Move.UCI()
		if promo != nchess.NoPieceType {
			uci += strings.ToLower(promo.String())
		}
		return matched{uci: uci}, true
	}
	return matched{}, false
}

// rookFollows checks the rook half of a castling intent against the king's castle side.
func rookFollows(in notation.Intent, kingSide bool) bool {
	rank := in.Move.From.Rank
	if in.Rook.From.Rank != rank || in.Rook.To.Rank != rank {
		return false
	}
	if kingSide {
		return in.Rook.From.File == 7 && in.Rook.To.File == 5
	}
	return in.Rook.From.File == 0 && in.Rook.To.File == 3
}

// Package notation decodes the line-oriented move notation players type into move intents.
//
// Grammar (tokens separated by a single space):
//
//	<from> <to>                                basic move
//	enpassant <from> <to>                      en passant capture
//	promote <from> <to> <piece>                pawn promotion
//	castle <kingFrom> <kingTo> <rookFrom> <rookTo>
//
// Parsing never consults the board; legality belongs to the rule engine.
package notation

import (
	"fmt"
	"math/rand"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const (
	keywordEnPassant = "enpassant"
	keywordPromote   = "promote"
	keywordCastle    = "castle"
)

// Square is a board coordinate; File 0 is the a-file, Rank 0 is the first rank.
type Square struct {
	File int
	Rank int
}

// ParseSquare accepts exactly one lowercase file letter followed by one rank digit.
func ParseSquare(s string) (Square, bool) {
	if len(s) != 2 {
		return Square{}, false
	}
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return Square{}, false
	}
	return Square{File: int(f - 'a'), Rank: int(r - '1')}, true
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "??"
	}
	return string([]byte{byte('a' + s.File), byte('1' + s.Rank)})
}

// Engine converts the coordinate to the rule engine's square index.
func (s Square) Engine() nchess.Square {
	return nchess.NewSquare(nchess.File(s.File), nchess.Rank(s.Rank))
}

// Move is an ordered origin/destination pair.
type Move struct {
	From Square
	To   Square
}

func parseMove(from, to string) (Move, bool) {
	f, ok := ParseSquare(from)
	if !ok {
		return Move{}, false
	}
	t, ok := ParseSquare(to)
	if !ok {
		return Move{}, false
	}
	return Move{From: f, To: t}, true
}

func (m Move) String() string { return m.From.String() + " " + m.To.String() }

// UCI renders the move in long algebraic form without separator, e.g. "e2e4".
func (m Move) UCI() string { return m.From.String() + m.To.String() }

// Kind tags the variant held by an Intent.
type Kind int

const (
	Basic Kind = iota
	EnPassant
	Promotion
	Castling
)

func (k Kind) String() string {
	switch k {
	case Basic:
		return "basic"
	case EnPassant:
		return "enpassant"
	case Promotion:
		return "promotion"
	case Castling:
		return "castling"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Intent is a parsed, not yet validated move request.
// Piece is only meaningful for Promotion, Rook only for Castling (Move holds the king move).
type Intent struct {
	Kind  Kind
	Move  Move
	Piece nchess.PieceType
	Rook  Move
}

// String renders the intent back into its notation line.
func (in Intent) String() string {
	switch in.Kind {
	case EnPassant:
		return keywordEnPassant + " " + in.Move.String()
	case Promotion:
		return keywordPromote + " " + in.Move.String() + " " + pieceLetter(in.Piece)
	case Castling:
		return keywordCastle + " " + in.Move.String() + " " + in.Rook.String()
	default:
		return in.Move.String()
	}
}

// Parse decodes one trimmed input line. Any malformed token rejects the whole line.
func Parse(line string) (Intent, bool) {
	words := strings.Split(line, " ")
	switch len(words) {
	case 2:
		mv, ok := parseMove(words[0], words[1])
		if !ok {
			return Intent{}, false
		}
		return Intent{Kind: Basic, Move: mv}, true
	case 3:
		if words[0] != keywordEnPassant {
			return Intent{}, false
		}
		mv, ok := parseMove(words[1], words[2])
		if !ok {
			return Intent{}, false
		}
		return Intent{Kind: EnPassant, Move: mv}, true
	case 4:
		if words[0] != keywordPromote {
			return Intent{}, false
		}
		mv, ok := parseMove(words[1], words[2])
		if !ok {
			return Intent{}, false
		}
		piece, ok := ParsePiece(words[3])
		if !ok {
			return Intent{}, false
		}
		return Intent{Kind: Promotion, Move: mv, Piece: piece}, true
	case 5:
		if words[0] != keywordCastle {
			return Intent{}, false
		}
		king, ok := parseMove(words[1], words[2])
		if !ok {
			return Intent{}, false
		}
		rook, ok := parseMove(words[3], words[4])
		if !ok {
			return Intent{}, false
		}
		return Intent{Kind: Castling, Move: king, Rook: rook}, true
	default:
		return Intent{}, false
	}
}

// RandomLine returns a random basic-move line; handy for fuzzing a running server.
func RandomLine(r *rand.Rand) string {
	sq := func() Square { return Square{File: r.Intn(8), Rank: r.Intn(8)} }
	return Move{From: sq(), To: sq()}.String()
}

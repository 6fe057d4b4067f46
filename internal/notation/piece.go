package notation

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var pieceLetters = map[string]nchess.PieceType{
	"k": nchess.King,
	"q": nchess.Queen,
	"r": nchess.Rook,
	"b": nchess.Bishop,
	"n": nchess.Knight,
	"p": nchess.Pawn,
}

// ParsePiece maps a single piece letter (either case) onto the rule engine's piece kinds.
// Whether the kind is a legal promotion target is decided by the engine, not here.
func ParsePiece(s string) (nchess.PieceType, bool) {
	if len(s) != 1 {
		return nchess.NoPieceType, false
	}
	pt, ok := pieceLetters[strings.ToLower(s)]
	return pt, ok
}

func pieceLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	case nchess.Pawn:
		return "P"
	default:
		return "?"
	}
}

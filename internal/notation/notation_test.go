package notation

import (
	"math/rand"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"
)

func TestSquareRoundTrip(t *testing.T) {
	count := 0
	for f := 'a'; f <= 'h'; f++ {
		for r := '1'; r <= '8'; r++ {
			text := string([]rune{f, r})
			sq, ok := ParseSquare(text)
			if !ok {
				t.Fatalf("ParseSquare(%q) rejected", text)
			}
			if got := sq.String(); got != text {
				t.Fatalf("round trip %q -> %q", text, got)
			}
			count++
		}
	}
	if count != 64 {
		t.Fatalf("expected 64 squares, got %d", count)
	}
}

func TestParseSquareRejects(t *testing.T) {
	for _, in := range []string{"", "e", "e44", "i1", "a0", "a9", "E2", "`1", "h:", "2e", "é2"} {
		if _, ok := ParseSquare(in); ok {
			t.Fatalf("ParseSquare(%q) accepted", in)
		}
	}
}

func TestSquareEngine(t *testing.T) {
	sq, _ := ParseSquare("e4")
	if sq.Engine() != nchess.E4 {
		t.Fatalf("e4 maps to %v", sq.Engine())
	}
	sq, _ = ParseSquare("a1")
	if sq.Engine() != nchess.A1 {
		t.Fatalf("a1 maps to %v", sq.Engine())
	}
	sq, _ = ParseSquare("h8")
	if sq.Engine() != nchess.H8 {
		t.Fatalf("h8 maps to %v", sq.Engine())
	}
}

func mustSquare(t *testing.T, s string) Square {
	t.Helper()
	sq, ok := ParseSquare(s)
	if !ok {
		t.Fatalf("bad square %q", s)
	}
	return sq
}

func TestParseAccepts(t *testing.T) {
	mv := func(a, b string) Move { return Move{From: mustSquare(t, a), To: mustSquare(t, b)} }
	tests := []struct {
		line string
		want Intent
	}{
		{"e2 e4", Intent{Kind: Basic, Move: mv("e2", "e4")}},
		{"enpassant e5 d6", Intent{Kind: EnPassant, Move: mv("e5", "d6")}},
		{"promote a7 a8 Q", Intent{Kind: Promotion, Move: mv("a7", "a8"), Piece: nchess.Queen}},
		{"promote b2 b1 n", Intent{Kind: Promotion, Move: mv("b2", "b1"), Piece: nchess.Knight}},
		{"castle e1 g1 h1 f1", Intent{Kind: Castling, Move: mv("e1", "g1"), Rook: mv("h1", "f1")}},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.line)
		if !ok {
			t.Fatalf("Parse(%q) rejected", tt.line)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
		if got.String() != tt.line && tt.line != "promote b2 b1 n" {
			t.Fatalf("String() = %q, want %q", got.String(), tt.line)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"e2",
		"g9 e4",
		"e2 i4",
		"E2 E4",
		"e2  e4",
		"e2 e4 e5",
		"passant e5 d6",
		"enpassant e5 d9",
		"promote a7 a8",
		"promo a7 a8 Q",
		"promote a7 a8 X",
		"promote a7 a8 QQ",
		"e2 e4 e5 e6",
		"castle e1 g1 h1",
		"castles e1 g1 h1 f1",
		"castle e1 g1 h1 f0",
		"castle e1 g1 h1 f1 extra",
		"RETIRE",
		"DRAW",
	} {
		if in, ok := Parse(line); ok {
			t.Fatalf("Parse(%q) accepted as %+v", line, in)
		}
	}
}

func TestParsePiece(t *testing.T) {
	for letter, want := range map[string]nchess.PieceType{"Q": nchess.Queen, "r": nchess.Rook, "B": nchess.Bishop, "n": nchess.Knight, "K": nchess.King, "p": nchess.Pawn} {
		got, ok := ParsePiece(letter)
		if !ok || got != want {
			t.Fatalf("ParsePiece(%q) = %v,%v", letter, got, ok)
		}
	}
	for _, bad := range []string{"", "x", "qq", "1"} {
		if _, ok := ParsePiece(bad); ok {
			t.Fatalf("ParsePiece(%q) accepted", bad)
		}
	}
}

func TestRandomLineParses(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		line := RandomLine(r)
		in, ok := Parse(line)
		if !ok || in.Kind != Basic {
			t.Fatalf("RandomLine produced unparsable %q", line)
		}
	}
}

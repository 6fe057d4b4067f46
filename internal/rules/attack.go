package rules

import nchess "github.com/corentings/chess/v2"

var (
	knightSteps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straight    = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal    = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func onBoard(f, r int) bool { return f >= 0 && f < 8 && r >= 0 && r < 8 }

func pieceAt(b *nchess.Board, f, r int) nchess.Piece {
	if !onBoard(f, r) {
		return nchess.NoPiece
	}
	return b.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
}

// kingAttacked reports whether c's king stands on a square the other side attacks.
// Pins on the attacker do not matter. A board without c's king is never in check.
func kingAttacked(b *nchess.Board, c nchess.Color) bool {
	if b == nil {
		return false
	}
	kf, kr, found := -1, -1, false
	for f := 0; f < 8 && !found; f++ {
		for r := 0; r < 8; r++ {
			if p := pieceAt(b, f, r); p.Type() == nchess.King && p.Color() == c {
				kf, kr, found = f, r, true
				break
			}
		}
	}
	if !found {
		return false
	}

	enemy := func(p nchess.Piece, kinds ...nchess.PieceType) bool {
		if p == nchess.NoPiece || p.Color() == c {
			return false
		}
		for _, k := range kinds {
			if p.Type() == k {
				return true
			}
		}
		return false
	}

	for _, d := range knightSteps {
		if enemy(pieceAt(b, kf+d[0], kr+d[1]), nchess.Knight) {
			return true
		}
	}
	for _, d := range kingSteps {
		if enemy(pieceAt(b, kf+d[0], kr+d[1]), nchess.King) {
			return true
		}
	}
	// a black pawn attacks a white king from the rank above it
	ahead := 1
	if c == nchess.Black {
		ahead = -1
	}
	for _, df := range []int{-1, 1} {
		if enemy(pieceAt(b, kf+df, kr+ahead), nchess.Pawn) {
			return true
		}
	}
	return slides(b, kf, kr, straight, func(p nchess.Piece) bool { return enemy(p, nchess.Rook, nchess.Queen) }) ||
		slides(b, kf, kr, diagonal, func(p nchess.Piece) bool { return enemy(p, nchess.Bishop, nchess.Queen) })
}

// slides walks each ray from (f, r) and tests the first piece it meets.
func slides(b *nchess.Board, f, r int, rays [][2]int, hit func(nchess.Piece) bool) bool {
	for _, d := range rays {
		for nf, nr := f+d[0], r+d[1]; onBoard(nf, nr); nf, nr = nf+d[0], nr+d[1] {
			p := pieceAt(b, nf, nr)
			if p == nchess.NoPiece {
				continue
			}
			if hit(p) {
				return true
			}
			break
		}
	}
	return false
}

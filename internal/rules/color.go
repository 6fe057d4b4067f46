package rules

import nchess "github.com/corentings/chess/v2"

// Color identifies a chess side. Seat 0 always plays White.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Index is the participant seat of the side: White 0, Black 1.
func (c Color) Index() int {
	if c == White {
		return 0
	}
	return 1
}

// Title is the capitalised name used in spectator messages.
func (c Color) Title() string {
	if c == White {
		return "White"
	}
	return "Black"
}

func ColorAt(seat int) Color {
	if seat == 0 {
		return White
	}
	return Black
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}

func (c Color) engine() nchess.Color {
	if c == White {
		return nchess.White
	}
	return nchess.Black
}

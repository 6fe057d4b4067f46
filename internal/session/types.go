package session

import (
	"context"
	"time"

	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/rules"
)

// DrawStage tracks the draw-offer sub-protocol.
type DrawStage int

const (
	DrawNone DrawStage = iota
	DrawOffered
	DrawAgreed
)

// State is the loop state of one game. Values are replaced on every step, never mutated.
type State struct {
	Turn    rules.Color
	Retired bool
	Draw    DrawStage
}

// Initial is the state at session start: White to move, no offer pending.
func Initial() State {
	return State{Turn: rules.White}
}

// Phase is the protocol position derived from a State.
type Phase int

const (
	AwaitingMove Phase = iota
	AwaitingDrawResponse
	Drawn
	Retired
)

func (p Phase) String() string {
	switch p {
	case AwaitingMove:
		return "awaiting_move"
	case AwaitingDrawResponse:
		return "awaiting_draw_response"
	case Drawn:
		return "drawn"
	case Retired:
		return "retired"
	default:
		return "unknown"
	}
}

// Phase reports the protocol phase. Checkmate is a board property and is not visible here.
func (s State) Phase() Phase {
	switch {
	case s.Retired:
		return Retired
	case s.Draw == DrawAgreed:
		return Drawn
	case s.Draw == DrawOffered:
		return AwaitingDrawResponse
	default:
		return AwaitingMove
	}
}

func (s State) flipped() State {
	s.Turn = s.Turn.Other()
	return s
}

// Audience selects recipients relative to the side to move when the event was produced.
type Audience uint8

const (
	Mover Audience = 1 << iota
	Opponent
	Spectators

	Everyone = Mover | Opponent | Spectators
)

func (a Audience) Has(b Audience) bool { return a&b != 0 }

// Event is one outbound line. Text is sent verbatim when set; otherwise Key is rendered
// from the message catalog with Data.
type Event struct {
	Key  string
	Text string
	Data map[string]string
	To   Audience
}

// Transition is the result of a pure step. Apply and Paced are executed by the loop.
type Transition struct {
	Next   State
	Events []Event
	Apply  *notation.Intent
	Paced  bool
}

// OutcomeKind names how a game ended.
type OutcomeKind int

const (
	Checkmate OutcomeKind = iota + 1
	Draw
	Retirement
)

func (k OutcomeKind) String() string {
	switch k {
	case Checkmate:
		return "checkmate"
	case Draw:
		return "draw"
	case Retirement:
		return "retirement"
	default:
		return "none"
	}
}

// Outcome is derived from the final state. Winner is empty for draws.
type Outcome struct {
	Kind   OutcomeKind
	Winner rules.Color
	Reason string
}

// ReadStatus is the result class of one timed read.
type ReadStatus int

const (
	ReadLine ReadStatus = iota
	ReadTimedOut
	ReadDisconnected
)

// ReadResult carries the line, or for a timeout whatever partial text had arrived.
type ReadResult struct {
	Status ReadStatus
	Text   string
}

// LineReader reads one line bounded by timeout.
type LineReader interface {
	ReadLine(ctx context.Context, timeout time.Duration) ReadResult
}

// LineWriter writes one protocol line; the implementation adds the delimiter.
type LineWriter interface {
	WriteLine(line string) error
}

// Participant is a named player and the streams bound to them. Seat 0 plays White.
type Participant struct {
	Name string
	In   LineReader
	Out  LineWriter
}

// Display shows the board before each read.
type Display interface {
	Show(ctx context.Context, snap rules.Snapshot)
}

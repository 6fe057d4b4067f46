package session

import (
	"strings"

	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/rules"
)

const (
	cmdRetire = "RETIRE"
	cmdDraw   = "DRAW"
)

// Message catalog keys emitted by the state machine.
const (
	KeySeatWhite       = "session.seat.white"
	KeySeatBlack       = "session.seat.black"
	KeyCheckMover      = "session.check.mover"
	KeyCheckOpponent   = "session.check.opponent"
	KeyCheckSpectators = "session.check.spectators"
	KeyInvalidMove     = "session.move.invalid"
	KeyDrawProposed    = "session.draw.proposed"
	KeyDrawRefused     = "session.draw.refused"
	KeyDrawAgreed      = "session.draw.agreed"
	KeyRetire          = "session.retire"
	KeyMateWinner      = "session.checkmate.winner"
	KeyMateLoser       = "session.checkmate.loser"
	KeyMateSpectators  = "session.checkmate.spectators"
)

// Keys lists every catalog key the session renders.
var Keys = []string{
	KeySeatWhite, KeySeatBlack,
	KeyCheckMover, KeyCheckOpponent, KeyCheckSpectators,
	KeyInvalidMove,
	KeyDrawProposed, KeyDrawRefused, KeyDrawAgreed,
	KeyRetire,
	KeyMateWinner, KeyMateLoser, KeyMateSpectators,
}

// Advance processes one line from the side to move. It is pure: the engine is only queried.
func Advance(st State, line string, eng rules.Engine) Transition {
	text := strings.TrimSpace(line)

	if st.Draw == DrawOffered {
		if text == cmdDraw {
			next := st
			next.Draw = DrawAgreed
			return Transition{Next: next, Events: []Event{{Key: KeyDrawAgreed, To: Everyone}}}
		}
		// any other reply, even a legal move, refuses the offer
		next := st.flipped()
		next.Draw = DrawNone
		return Transition{Next: next, Events: []Event{{Key: KeyDrawRefused, To: Opponent | Spectators}}}
	}

	var intent *notation.Intent
	if in, ok := notation.Parse(text); ok {
		intent = &in
	}
	if eng.Legal(intent, st.Turn) {
		return Transition{
			Next:   st.flipped(),
			Events: []Event{{Text: text, To: Opponent | Spectators}},
			Apply:  intent,
			Paced:  true,
		}
	}

	switch text {
	case cmdRetire:
		return Forfeit(st)
	case cmdDraw:
		next := st.flipped()
		next.Draw = DrawOffered
		return Transition{Next: next, Events: []Event{{Key: KeyDrawProposed, To: Everyone}}}
	default:
		return Transition{Next: st, Events: []Event{{Key: KeyInvalidMove, To: Mover}}}
	}
}

// Forfeit retires the side to move.
func Forfeit(st State) Transition {
	next := st
	next.Retired = true
	return Transition{Next: next, Events: []Event{{Key: KeyRetire, To: Opponent | Spectators}}}
}

// CheckEvents announces a check on the side to move. It never changes control flow.
func CheckEvents(st State, eng rules.Engine) []Event {
	if !eng.InCheck(st.Turn) {
		return nil
	}
	return []Event{
		{Key: KeyCheckMover, To: Mover},
		{Key: KeyCheckOpponent, To: Opponent},
		{Key: KeyCheckSpectators, Data: map[string]string{"Color": st.Turn.Title()}, To: Spectators},
	}
}

// Conclude reports whether the loop must stop and, for endings announced at the bottom of the
// loop, the closing events. Draw and retire messages were already sent by Advance.
func Conclude(st State, eng rules.Engine) (Outcome, []Event, bool) {
	switch {
	case st.Retired:
		return Outcome{Kind: Retirement, Winner: st.Turn.Other(), Reason: "retire"}, nil, true
	case st.Draw == DrawAgreed:
		return Outcome{Kind: Draw, Reason: "agreement"}, nil, true
	case eng.Checkmate(st.Turn):
		winner := st.Turn.Other()
		return Outcome{Kind: Checkmate, Winner: winner, Reason: "checkmate"}, []Event{
			{Key: KeyMateWinner, To: Opponent},
			{Key: KeyMateLoser, To: Mover},
			{Key: KeyMateSpectators, Data: map[string]string{"Color": winner.Title()}, To: Spectators},
		}, true
	case eng.Drawn():
		return Outcome{Kind: Draw, Reason: "rules"}, []Event{{Key: KeyDrawAgreed, To: Everyone}}, true
	}
	return Outcome{}, nil, false
}

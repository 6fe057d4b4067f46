package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/rules"
)

type scripted struct {
	results []ReadResult
}

func lines(ls ...string) *scripted {
	s := &scripted{}
	for _, l := range ls {
		s.results = append(s.results, ReadResult{Status: ReadLine, Text: l})
	}
	return s
}

func (s *scripted) ReadLine(context.Context, time.Duration) ReadResult {
	if len(s.results) == 0 {
		return ReadResult{Status: ReadDisconnected}
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}

type recorder struct {
	lines []string
}

func (r *recorder) WriteLine(line string) error {
	r.lines = append(r.lines, line)
	return nil
}

type table struct {
	white, black, spect *recorder
}

func newTable() table {
	return table{white: &recorder{}, black: &recorder{}, spect: &recorder{}}
}

func (tb table) run(t *testing.T, eng rules.Engine, white, black LineReader) Outcome {
	t.Helper()
	s, err := New([2]Participant{
		{Name: "alice", In: white, Out: tb.white},
		{Name: "bob", In: black, Out: tb.black},
	}, tb.spect, Config{Engine: eng, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func (tb table) expect(t *testing.T, white, black, spect []string) {
	t.Helper()
	opening := []string{"alice", "bob"}
	if diff := cmp.Diff(append(append([]string{}, opening...), white...), tb.white.lines); diff != "" {
		t.Errorf("white transcript (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(append(append([]string{}, opening...), black...), tb.black.lines); diff != "" {
		t.Errorf("black transcript (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(append(append([]string{}, opening...), spect...), tb.spect.lines); diff != "" {
		t.Errorf("spectator transcript (-want +got):\n%s", diff)
	}
}

const (
	seatWhite = "You have the white pieces"
	seatBlack = "You have the black pieces"
)

func TestOpeningMovesThenRetire(t *testing.T) {
	tb := newTable()
	out := tb.run(t, rules.NewGame(), lines("e2 e4", "RETIRE"), lines("e7 e5"))
	tb.expect(t,
		[]string{seatWhite, "e7 e5"},
		[]string{seatBlack, "e2 e4", "RETIRE"},
		[]string{"e2 e4", "e7 e5", "RETIRE"},
	)
	if diff := cmp.Diff(Outcome{Kind: Retirement, Winner: rules.Black, Reason: "retire"}, out); diff != "" {
		t.Fatalf("outcome (-want +got):\n%s", diff)
	}
}

func TestInvalidSquareOnlyTellsMover(t *testing.T) {
	tb := newTable()
	tb.run(t, rules.NewGame(), lines("g9 e4", "RETIRE"), lines())
	tb.expect(t,
		[]string{seatWhite, "Invalid move"},
		[]string{seatBlack, "RETIRE"},
		[]string{"RETIRE"},
	)
}

func TestTimedOutReadIsInvalid(t *testing.T) {
	tb := newTable()
	white := &scripted{results: []ReadResult{
		{Status: ReadTimedOut},
		{Status: ReadTimedOut, Text: "e2 e"},
		{Status: ReadLine, Text: "RETIRE"},
	}}
	tb.run(t, rules.NewGame(), white, lines())
	tb.expect(t,
		[]string{seatWhite, "Invalid move", "Invalid move"},
		[]string{seatBlack, "RETIRE"},
		[]string{"RETIRE"},
	)
}

func TestTimedOutPartialMoveCounts(t *testing.T) {
	tb := newTable()
	white := &scripted{results: []ReadResult{{Status: ReadTimedOut, Text: "e2 e4"}, {Text: "RETIRE"}}}
	tb.run(t, rules.NewGame(), white, lines("e7 e5"))
	tb.expect(t,
		[]string{seatWhite, "e7 e5"},
		[]string{seatBlack, "e2 e4", "RETIRE"},
		[]string{"e2 e4", "e7 e5", "RETIRE"},
	)
}

func TestDrawAccepted(t *testing.T) {
	tb := newTable()
	out := tb.run(t, rules.NewGame(), lines("DRAW"), lines("DRAW"))
	tb.expect(t,
		[]string{seatWhite, "Draw proposed", "Game ended: draw"},
		[]string{seatBlack, "Draw proposed", "Game ended: draw"},
		[]string{"Draw proposed", "Game ended: draw"},
	)
	if out.Kind != Draw || out.Winner != "" || out.Reason != "agreement" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestDrawRefusedReturnsTurnToProposer(t *testing.T) {
	tb := newTable()
	out := tb.run(t, rules.NewGame(), lines("DRAW", "e2 e4"), lines("e7 e5", "RETIRE"))
	tb.expect(t,
		[]string{seatWhite, "Draw proposed", "Draw proposal refused", "RETIRE"},
		[]string{seatBlack, "Draw proposed", "e2 e4"},
		[]string{"Draw proposed", "Draw proposal refused", "e2 e4", "RETIRE"},
	)
	if out.Kind != Retirement || out.Winner != rules.White {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestCheckAnnouncement(t *testing.T) {
	tb := newTable()
	tb.run(t, rules.NewGame(), lines("e2 e4", "d1 h5"), lines("f7 f6", "RETIRE"))
	tb.expect(t,
		[]string{seatWhite, "f7 f6", "You checked the opponent's king!", "RETIRE"},
		[]string{seatBlack, "e2 e4", "d1 h5", "Your king is in check!"},
		[]string{"e2 e4", "f7 f6", "d1 h5", "Black king is checked!", "RETIRE"},
	)
}

func TestCheckAnnouncedForLoadedPosition(t *testing.T) {
	eng, err := rules.FromFEN("4K3/8/8/8/8/8/8/4rk2 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	tb := newTable()
	tb.run(t, eng, lines("e8 d8"), lines("RETIRE"))
	tb.expect(t,
		[]string{seatWhite, "Your king is in check!", "RETIRE"},
		[]string{seatBlack, "You checked the opponent's king!", "e8 d8"},
		[]string{"White king is checked!", "e8 d8", "RETIRE"},
	)
}

func TestFoolsMate(t *testing.T) {
	tb := newTable()
	out := tb.run(t, rules.NewGame(), lines("f2 f3", "g2 g4"), lines("e7 e5", "d8 h4"))
	tb.expect(t,
		[]string{seatWhite, "e7 e5", "d8 h4", "CHECKMATE! You loose!"},
		[]string{seatBlack, "f2 f3", "g2 g4", "CHECKMATE! You win!"},
		[]string{"f2 f3", "e7 e5", "g2 g4", "d8 h4", "CHECKMATE! Black wins!"},
	)
	if diff := cmp.Diff(Outcome{Kind: Checkmate, Winner: rules.Black, Reason: "checkmate"}, out); diff != "" {
		t.Fatalf("outcome (-want +got):\n%s", diff)
	}
}

func TestStalemateEndsInDraw(t *testing.T) {
	eng, err := rules.FromFEN("k7/8/1Q6/8/8/8/8/7K w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	tb := newTable()
	out := tb.run(t, eng, lines("b6 c7"), lines())
	tb.expect(t,
		[]string{seatWhite, "Game ended: draw"},
		[]string{seatBlack, "b6 c7", "Game ended: draw"},
		[]string{"b6 c7", "Game ended: draw"},
	)
	if out.Kind != Draw || out.Reason != "rules" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestDisconnectRetiresMover(t *testing.T) {
	tb := newTable()
	out := tb.run(t, rules.NewGame(), lines("e2 e4"), lines())
	tb.expect(t,
		[]string{seatWhite, "RETIRE"},
		[]string{seatBlack, "e2 e4"},
		[]string{"e2 e4", "RETIRE"},
	)
	if diff := cmp.Diff(Outcome{Kind: Retirement, Winner: rules.White, Reason: "disconnect"}, out); diff != "" {
		t.Fatalf("outcome (-want +got):\n%s", diff)
	}
}

func TestPaceHoldsFastMoves(t *testing.T) {
	s, err := New([2]Participant{
		{Name: "a", In: lines("e2 e4", "RETIRE"), Out: &recorder{}},
		{Name: "b", In: lines("e7 e5"), Out: &recorder{}},
	}, nil, Config{Pace: 40 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("two paced moves finished in %s", elapsed)
	}
}

type countingDisplay struct{ plies []int }

func (d *countingDisplay) Show(_ context.Context, snap rules.Snapshot) {
	d.plies = append(d.plies, snap.Ply)
}

func TestDisplayAndProgressPerRead(t *testing.T) {
	disp := &countingDisplay{}
	var phases []Phase
	s, err := New([2]Participant{
		{Name: "a", In: lines("e2 e4", "DRAW"), Out: &recorder{}},
		{Name: "b", In: lines("e7 e5", "no"), Out: &recorder{}},
	}, nil, Config{
		Display:  disp,
		Progress: func(st State, _ rules.Snapshot) { phases = append(phases, st.Phase()) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// the last read disconnects white, so the game ends by forfeit
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 2, 2}, disp.plies); diff != "" {
		t.Fatalf("plies (-want +got):\n%s", diff)
	}
	want := []Phase{AwaitingMove, AwaitingMove, AwaitingMove, AwaitingDrawResponse, AwaitingMove}
	if diff := cmp.Diff(want, phases); diff != "" {
		t.Fatalf("phases (-want +got):\n%s", diff)
	}
}

func TestNewRejectsIncompleteCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("session:\n  retire: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err := msgcat.New(dir)
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	_, err = New([2]Participant{
		{In: lines(), Out: &recorder{}},
		{In: lines(), Out: &recorder{}},
	}, nil, Config{Catalog: cat})
	if !errors.Is(err, ErrMissingMessages) {
		t.Fatalf("expected ErrMissingMessages, got %v", err)
	}
}

func TestRunFailsWhenEngineRefusesLegalMove(t *testing.T) {
	eng := &fakeEngine{legal: map[string]bool{"e2e4": true}, applyErr: errors.New("boom")}
	s, err := New([2]Participant{
		{In: lines("e2 e4"), Out: &recorder{}},
		{In: lines(), Out: &recorder{}},
	}, nil, Config{Engine: eng})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected engine error")
	}
}

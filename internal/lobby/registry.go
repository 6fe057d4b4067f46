package lobby

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/pkg/dueldto"
)

var (
	ErrFull     = errors.New("too many concurrent games")
	ErrNotFound = errors.New("game not found")
)

const (
	StatusPlaying  = "playing"
	StatusFinished = "finished"
	StatusAborted  = "aborted"

	keepFinished = 50
)

// Registry is the in-memory list of games this process has hosted.
type Registry struct {
	mu       sync.RWMutex
	games    map[string]*dueldto.Game
	finished []string
	active   int
	max      int
	now      func() time.Time
}

func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = 200
	}
	return &Registry{games: make(map[string]*dueldto.Game), max: max, now: time.Now}
}

// Open registers a new game and returns its id.
func (r *Registry) Open(white, black string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active >= r.max {
		return "", ErrFull
	}
	id := uuid.NewString()
	r.games[id] = &dueldto.Game{
		ID:        id,
		White:     white,
		Black:     black,
		Status:    StatusPlaying,
		Turn:      string(rules.White),
		StartedAt: r.now(),
	}
	r.active++
	return id, nil
}

// Update records progress before each read.
func (r *Registry) Update(id string, st session.State, snap rules.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.games[id]
	if g == nil || g.Status != StatusPlaying {
		return
	}
	g.Turn = string(st.Turn)
	g.Ply = snap.Ply
	g.FEN = snap.FEN
	g.LastMove = snap.LastMove
}

// Finish marks the game over. A non-nil err marks it aborted.
func (r *Registry) Finish(id string, out session.Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.games[id]
	if g == nil || g.Status != StatusPlaying {
		return
	}
	r.active--
	g.EndedAt = r.now()
	g.Turn = ""
	if err != nil {
		g.Status = StatusAborted
		g.Result = &dueldto.Result{Kind: "aborted", Reason: err.Error()}
	} else {
		g.Status = StatusFinished
		g.Result = &dueldto.Result{Kind: out.Kind.String(), Winner: string(out.Winner), Reason: out.Reason}
	}
	r.finished = append(r.finished, id)
	for len(r.finished) > keepFinished {
		delete(r.games, r.finished[0])
		r.finished = r.finished[1:]
	}
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.games[id]
	return ok
}

func (r *Registry) Get(id string) (dueldto.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.games[id]
	if g == nil {
		return dueldto.Game{}, ErrNotFound
	}
	return copyGame(g), nil
}

// List returns every known game, oldest first.
func (r *Registry) List() []dueldto.Game {
	r.mu.RLock()
	out := make([]dueldto.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, copyGame(g))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func copyGame(g *dueldto.Game) dueldto.Game {
	c := *g
	if g.Result != nil {
		res := *g.Result
		c.Result = &res
	}
	return c
}

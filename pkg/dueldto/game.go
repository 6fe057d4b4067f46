package dueldto

import "time"

// Game is one entry of the /games listing.
type Game struct {
	ID        string    `json:"id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Status    string    `json:"status"`
	Turn      string    `json:"turn,omitempty"`
	Ply       int       `json:"ply"`
	FEN       string    `json:"fen,omitempty"`
	LastMove  string    `json:"lastMove,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
	Result    *Result   `json:"result,omitempty"`
}

// Result is the terminal outcome of a game.
type Result struct {
	Kind   string `json:"kind"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SpectatorLine is the websocket frame carrying one broadcast protocol line.
type SpectatorLine struct {
	Game string `json:"game"`
	Seq  int64  `json:"seq"`
	Line string `json:"line"`
}

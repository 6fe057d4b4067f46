package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-duel/pkg/dueldto"
)

type fixedGames []dueldto.Game

func (f fixedGames) List() []dueldto.Game { return f }

func (f fixedGames) Get(id string) (dueldto.Game, error) {
	for _, g := range f {
		if g.ID == id {
			return g, nil
		}
	}
	return dueldto.Game{}, errors.New("not found")
}

func startServer(t *testing.T, games Games) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(games).Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func get(t *testing.T, c *fasthttp.Client, method, path string) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(method)
	req.SetRequestURI("http://status" + path)
	if err := c.DoTimeout(req, resp, 2*time.Second); err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func TestStatusRoutes(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	games := fixedGames{
		{ID: "g1", White: "alice", Black: "bob", Status: "playing", Turn: "black", Ply: 1, StartedAt: started},
		{ID: "g2", White: "carol", Black: "dave", Status: "finished", StartedAt: started,
			Result: &dueldto.Result{Kind: "checkmate", Winner: "white", Reason: "checkmate"}},
	}
	c := startServer(t, games)

	code, body := get(t, c, fasthttp.MethodGet, "/healthz")
	if code != fasthttp.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz: %d %q", code, body)
	}

	code, body = get(t, c, fasthttp.MethodGet, "/games")
	if code != fasthttp.StatusOK {
		t.Fatalf("games: %d", code)
	}
	var list []dueldto.Game
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]dueldto.Game(games), list); diff != "" {
		t.Fatalf("games (-want +got):\n%s", diff)
	}

	code, body = get(t, c, fasthttp.MethodGet, "/games/g2")
	var one dueldto.Game
	if code != fasthttp.StatusOK || json.Unmarshal(body, &one) != nil || one.Result.Kind != "checkmate" {
		t.Fatalf("game g2: %d %s", code, body)
	}

	if code, _ := get(t, c, fasthttp.MethodGet, "/games/missing"); code != fasthttp.StatusNotFound {
		t.Fatalf("missing game: %d", code)
	}
	if code, _ := get(t, c, fasthttp.MethodGet, "/nope"); code != fasthttp.StatusNotFound {
		t.Fatalf("unknown path: %d", code)
	}
	if code, _ := get(t, c, fasthttp.MethodPost, "/games"); code != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("POST: %d", code)
	}
}

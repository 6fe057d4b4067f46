package spectate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Channel is the pub/sub channel carrying a game's spectator lines.
func Channel(gameID string) string { return "duel:spectate:" + strings.TrimSpace(gameID) }

// RedisSink publishes spectator lines so other processes can relay them.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisSink(rdb *redis.Client, gameID string) *RedisSink {
	return &RedisSink{rdb: rdb, channel: Channel(gameID)}
}

func (s *RedisSink) WriteLine(line string) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return s.rdb.Publish(ctx, s.channel, line).Err()
}

// Subscription is a consumer of one game's spectator channel.
type Subscription struct {
	ps    *redis.PubSub
	Lines <-chan string

	done chan struct{}
	once sync.Once
}

// Subscribe waits for the subscription to be confirmed before returning, so no line
// published afterwards is missed.
func Subscribe(ctx context.Context, rdb *redis.Client, gameID string) (*Subscription, error) {
	ps := rdb.Subscribe(ctx, Channel(gameID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	out := make(chan string, sendBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-done:
					return
				}
			}
		}
	}()
	return &Subscription{ps: ps, Lines: out, done: done}, nil
}

// Close stops the relay even when Lines is no longer read.
func (s *Subscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}

// Package transport adapts line-oriented network streams to the session's reader and writer.
package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
)

// Conn is one player's TCP stream. Reads and writes may run on different goroutines.
type Conn struct {
	nc      net.Conn
	r       *bufio.Reader
	partial strings.Builder

	wmu sync.Mutex
}

func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, r: bufio.NewReader(nc)}
}

func (c *Conn) RemoteAddr() string {
	if c == nil || c.nc == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

// ReadLine reads up to the next '\n' within timeout. On expiry the bytes received so far
// are returned as a TimedOut result and discarded from the stream.
func (c *Conn) ReadLine(ctx context.Context, timeout time.Duration) session.ReadResult {
	if timeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = c.nc.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		// unblock the read at shutdown
		_ = c.nc.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	c.partial.Reset()
	for {
		chunk, err := c.r.ReadString('\n')
		c.partial.WriteString(chunk)
		if err == nil {
			return session.ReadResult{Status: session.ReadLine, Text: trimEOL(c.partial.String())}
		}
		if ctx.Err() != nil {
			return session.ReadResult{Status: session.ReadDisconnected}
		}
		if isTimeout(err) {
			return session.ReadResult{Status: session.ReadTimedOut, Text: trimEOL(c.partial.String())}
		}
		return session.ReadResult{Status: session.ReadDisconnected, Text: trimEOL(c.partial.String())}
	}
}

// Watch detects the peer hanging up while nobody reads, as happens while a player waits
// for an opponent. onGone runs on the watcher goroutine once the stream reports EOF or an
// error. Typed-ahead input stays buffered for the next ReadLine. stop ends the watch and
// reports whether the peer is still there; ReadLine must not run until it has returned.
func (c *Conn) Watch(onGone func()) (stop func() bool) {
	_ = c.nc.SetReadDeadline(time.Time{})
	done := make(chan struct{})
	var gone bool
	go func() {
		defer close(done)
		if _, err := c.r.Peek(1); err != nil && !isTimeout(err) {
			gone = true
			if onGone != nil {
				onGone()
			}
		}
	}()
	return func() bool {
		_ = c.nc.SetReadDeadline(time.Unix(1, 0))
		<-done
		_ = c.nc.SetReadDeadline(time.Time{})
		return !gone
	}
}

// WriteLine writes line followed by '\n'.
func (c *Conn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.nc.Write([]byte(line + "\n"))
	return err
}

func (c *Conn) Close() error {
	return c.nc.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// Fanout copies each line to every sink. A failing sink is logged and skipped.
type Fanout struct {
	mu    sync.RWMutex
	sinks []session.LineWriter
	log   *zap.Logger
}

func NewFanout(sinks ...session.LineWriter) *Fanout {
	f := &Fanout{log: obslog.L()}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

func (f *Fanout) Add(s session.LineWriter) {
	if s == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

func (f *Fanout) WriteLine(line string) error {
	f.mu.RLock()
	sinks := append([]session.LineWriter(nil), f.sinks...)
	f.mu.RUnlock()
	for _, s := range sinks {
		if err := s.WriteLine(line); err != nil {
			f.log.Warn("spectator_sink_failed", zap.Error(err))
		}
	}
	return nil
}

// Discard drops every line.
type Discard struct{}

func (Discard) WriteLine(string) error { return nil }

// Package board shows the position before every read: an ASCII diagram on a console and,
// optionally, a PNG snapshot per ply.
package board

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/session"
)

// Console prints the diagram followed by whose turn it is.
type Console struct {
	out   io.Writer
	label string
}

func NewConsole(out io.Writer, label string) *Console {
	return &Console{out: out, label: label}
}

func (c *Console) Show(_ context.Context, snap rules.Snapshot) {
	if c == nil || c.out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("\n\n")
	if c.label != "" {
		fmt.Fprintf(&b, "[%s] ply %d\n", c.label, snap.Ply)
	}
	b.WriteString(snap.Diagram)
	if !strings.HasSuffix(snap.Diagram, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s's turn\n", snap.Turn.Title())
	// one Write so concurrent games do not interleave inside a diagram
	_, _ = io.WriteString(c.out, b.String())
}

// Multi shows the snapshot on every display in order.
type Multi []session.Display

func (m Multi) Show(ctx context.Context, snap rules.Snapshot) {
	for _, d := range m {
		if d != nil {
			d.Show(ctx, snap)
		}
	}
}

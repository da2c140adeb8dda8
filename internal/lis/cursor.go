package lis

import (
	"bufio"
	"context"
	"io"
)

const (
	// ctxCheckInterval is how many lines are read between context checks.
	ctxCheckInterval = 1024
	// maxLineBytes bounds a single report line.
	maxLineBytes = 1 << 20
)

// cursor is a forward-only line reader over one opened source.
type cursor struct {
	ctx  context.Context
	sc   *bufio.Scanner
	text string
	n    int
	err  error
}

func newCursor(ctx context.Context, r io.Reader) *cursor {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &cursor{ctx: ctx, sc: sc}
}

// next advances to the following line. It returns false at EOF, on a read
// error or when the context is done; err tells them apart.
func (c *cursor) next() bool {
	if c.err != nil {
		return false
	}
	if c.n%ctxCheckInterval == 0 {
		if err := c.ctx.Err(); err != nil {
			c.err = err
			return false
		}
	}
	if !c.sc.Scan() {
		c.err = c.sc.Err()
		return false
	}
	c.n++
	c.text = c.sc.Text()
	return true
}

// skip discards n lines and reports whether all of them were present.
func (c *cursor) skip(n int) bool {
	for i := 0; i < n; i++ {
		if !c.next() {
			return false
		}
	}
	return true
}

// line returns the current line text.
func (c *cursor) line() string { return c.text }

// lineNo is the 1-based number of the current line.
func (c *cursor) lineNo() int { return c.n }

// failure returns the read or context error that stopped the cursor, if any.
func (c *cursor) failure() error { return c.err }

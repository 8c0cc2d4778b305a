package progress

import (
	"sync"

	"github.com/tsukumogami/provision/internal/log"
)

// Reporter receives free-text status messages at each phase of a
// dependency attempt (download, extraction, copy, environment, cleanup,
// verification). Implementations must not block for long: the core does
// not wait on the sink.
type Reporter interface {
	Report(msg string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(msg string)

// Report calls f(msg).
func (f ReporterFunc) Report(msg string) { f(msg) }

// Discard is a Reporter that drops every message.
var Discard Reporter = ReporterFunc(func(string) {})

// OrDiscard returns r, or Discard when r is nil.
func OrDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}

// Channel forwards messages to a buffered channel. Messages are dropped
// when the buffer is full so a slow consumer never stalls an install.
type Channel struct {
	ch      chan string
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewChannel creates a Channel reporter with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = 1
	}
	return &Channel{ch: make(chan string, buffer)}
}

// C returns the receive side of the channel.
func (c *Channel) C() <-chan string { return c.ch }

// Report implements Reporter.
func (c *Channel) Report(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- msg:
	default:
		c.dropped++
	}
}

// Dropped returns how many messages were discarded because the buffer was full.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close closes the channel. Later reports are ignored.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Logger returns a Reporter that writes each message at INFO level.
func Logger(l log.Logger) Reporter {
	return ReporterFunc(func(msg string) {
		l.Info(msg)
	})
}

// Report implements Reporter by updating the spinner message, starting the
// spinner when it is not running.
func (s *Spinner) Report(msg string) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		s.Start(msg)
		return
	}
	if !s.isTTY {
		s.println(msg)
		return
	}
	s.SetMessage(msg)
}

package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const spinnerInterval = 100 * time.Millisecond

// lineWidth is the column count cleared when redrawing a status line.
const lineWidth = 80

// Spinner shows the current phase of a long operation (an installer run,
// an extraction) on one animated line. Without a TTY every message is
// printed on its own line instead. A stopped Spinner can be started again.
// Spinner also implements Reporter.
type Spinner struct {
	mu      sync.Mutex
	output  io.Writer
	message string
	done    chan struct{} // closed by stop
	exited  chan struct{} // closed when the animation goroutine returns
	running bool
	stopped bool
	isTTY   bool
}

// NewSpinner creates a spinner writing to output (os.Stderr when nil).
func NewSpinner(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	return &Spinner{
		output: output,
		isTTY:  ShouldShowProgress(),
	}
}

// Start begins the animation with message. Starting a running spinner
// only replaces the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	if s.running {
		s.mu.Unlock()
		if !s.isTTY {
			s.println(message)
		}
		return
	}
	s.running = true
	s.stopped = false
	done, exited := make(chan struct{}), make(chan struct{})
	s.done, s.exited = done, exited
	s.mu.Unlock()

	if !s.isTTY {
		close(exited)
		s.println(message)
		return
	}
	go s.animate(done, exited)
}

// SetMessage replaces the message shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.stop("")
}

// StopWithMessage halts the animation and prints a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.stop(message)
}

func (s *Spinner) stop(final string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	running := s.running
	s.running = false
	done, exited := s.done, s.exited
	s.mu.Unlock()

	if running {
		close(done)
		<-exited
	}

	if s.isTTY {
		fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
	}
	if final != "" {
		s.println(final)
	}
}

func (s *Spinner) println(msg string) {
	fmt.Fprintf(s.output, "%s\n", msg)
}

func (s *Spinner) animate(done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	frame := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			fmt.Fprint(s.output, padLine(fmt.Sprintf("\r%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)))
			frame++
		}
	}
}

// padLine right-pads line with spaces so a redraw hides the previous text.
func padLine(line string) string {
	if len(line) < lineWidth {
		line += strings.Repeat(" ", lineWidth-len(line))
	}
	return line
}

// Package progress renders operator-facing progress: the Reporter sink the
// installer core emits phase messages to, a spinner for long-running
// steps, and a byte-level download bar.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// IsTerminalFunc reports whether a file descriptor is a terminal.
// Tests override it.
var IsTerminalFunc = term.IsTerminal

// minRedraw limits redraws to ten per second.
const minRedraw = 100 * time.Millisecond

// Bar is an io.Writer that counts bytes written through it and draws a
// download progress line on output.
type Bar struct {
	writer    io.Writer
	output    io.Writer
	label     string
	total     int64
	written   int64
	startTime time.Time
	lastDraw  time.Time
	mu        sync.Mutex
}

// NewBar wraps w. A total <= 0 means the size is unknown and only the byte
// count and rate are shown.
func NewBar(w io.Writer, total int64, label string, output io.Writer) *Bar {
	return &Bar{
		writer:    w,
		output:    output,
		label:     label,
		total:     total,
		startTime: time.Now(),
	}
}

// Write implements io.Writer.
func (b *Bar) Write(p []byte) (int, error) {
	n, err := b.writer.Write(p)
	if n > 0 {
		b.mu.Lock()
		b.written += int64(n)
		b.draw(time.Now())
		b.mu.Unlock()
	}
	return n, err
}

// Written returns the number of bytes written so far.
func (b *Bar) Written() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Finish clears the progress line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.output, "\r%s\r", strings.Repeat(" ", lineWidth))
}

func (b *Bar) draw(now time.Time) {
	if now.Sub(b.lastDraw) < minRedraw {
		return
	}
	elapsed := now.Sub(b.startTime).Seconds()
	if elapsed < minRedraw.Seconds() {
		return
	}
	b.lastDraw = now
	_, _ = fmt.Fprint(b.output, padLine(b.line(elapsed)))
}

func (b *Bar) line(elapsed float64) string {
	speed := float64(b.written) / elapsed
	if b.total <= 0 {
		return fmt.Sprintf("\r   %s %s (%s/s)", b.label, FormatBytes(b.written), FormatBytes(int64(speed)))
	}

	percent := float64(b.written) / float64(b.total) * 100
	if percent > 100 {
		percent = 100
	}
	eta := "--:--"
	if speed > 0 {
		eta = formatDuration(float64(b.total-b.written) / speed)
	}

	const width = 30
	filled := int(percent / 100 * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">" + strings.Repeat(" ", width-filled-1)
	}

	return fmt.Sprintf("\r   %s [%s] %3.0f%% (%s/%s) %s/s ETA: %s",
		b.label, bar, percent,
		FormatBytes(b.written), FormatBytes(b.total),
		FormatBytes(int64(speed)), eta)
}

// FormatBytes renders a byte count as B, KB, MB or GB.
func FormatBytes(n int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case n >= GB:
		return fmt.Sprintf("%.1fGB", float64(n)/GB)
	case n >= MB:
		return fmt.Sprintf("%.1fMB", float64(n)/MB)
	case n >= KB:
		return fmt.Sprintf("%.1fKB", float64(n)/KB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// formatDuration renders seconds as M:SS or H:MM:SS.
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// ShouldShowProgress reports whether stdout is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}

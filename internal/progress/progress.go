// Package progress renders the producer driver's terminal progress bar,
// driven by the compositor's tilesComposed/tileCount fraction: one monotonic
// series spanning the whole run.
package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Bar renders an in-place terminal progress bar driven by compositor.ProgressFunc
// callbacks. It refreshes at a fixed interval and is safe for concurrent
// Update calls, though in practice the compositor drives it from a single
// goroutine.
type Bar struct {
	label    string
	total    int64
	barWidth int
	start    time.Time
	done     chan struct{}

	mu       sync.Mutex
	fraction float64
}

// New starts a Bar labeled label, tracking a total-tile denominator used
// only for the "%d tiles" suffix in the rendered line.
func New(label string, total int64) *Bar {
	b := &Bar{
		label:    label,
		total:    total,
		barWidth: 30,
		start:    time.Now(),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

// Update is a compositor.ProgressFunc: it records the new fraction for the
// next redraw tick.
func (b *Bar) Update(_, newFraction float64) {
	b.mu.Lock()
	b.fraction = newFraction
	b.mu.Unlock()
}

// Finish stops the refresh loop and prints the final bar state with a
// trailing newline.
func (b *Bar) Finish() {
	close(b.done)
	b.draw()
	fmt.Fprint(os.Stderr, "\n")
}

func (b *Bar) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.draw()
		}
	}
}

func (b *Bar) draw() {
	b.mu.Lock()
	frac := b.fraction
	b.mu.Unlock()
	if frac > 1 {
		frac = 1
	}

	filled := int(float64(b.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.barWidth-filled)

	elapsed := time.Since(b.start)
	composed := int64(frac * float64(b.total))

	fmt.Fprintf(os.Stderr, "\r%s [%s] %3.0f%%  %s/%s tiles  %s\033[K",
		b.label, bar, frac*100, humanize.Comma(composed), humanize.Comma(b.total), formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}

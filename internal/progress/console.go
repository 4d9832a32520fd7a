// Package progress renders engine events as a single terminal status line.
package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/datallboy/modfetch/internal/domain"
)

const barWidth = 20

// Console aggregates events from a batch and redraws one status line.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	total    int64
	requests int
	started  time.Time

	bytes    map[string]int64
	done     int
	failed   int
	manual   int
	retrying int

	lastBytes int64
}

// NewConsole tracks a batch of requests whose sizes add up to total.
func NewConsole(out io.Writer, requests int, total int64) *Console {
	return &Console{
		out:      out,
		total:    total,
		requests: requests,
		started:  time.Now(),
		bytes:    make(map[string]int64, requests),
	}
}

// Handle is a domain.ProgressFunc.
func (c *Console) Handle(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case domain.EventProgress:
		c.bytes[ev.RequestID] = ev.Downloaded
	case domain.EventRetryAttempt:
		c.retrying++
		// the next attempt may restart the transfer
		c.bytes[ev.RequestID] = 0
	case domain.EventComplete:
		c.bytes[ev.RequestID] = ev.Downloaded
		c.done++
		if ev.Outcome == domain.OutcomeManual {
			c.manual++
		}
	case domain.EventError:
		c.done++
		c.failed++
	}
}

// Start redraws the line every second until ctx ends.
func (c *Console) Start(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.render(false)
		case <-ctx.Done():
			return
		}
	}
}

// Finish draws the final summary line.
func (c *Console) Finish() {
	c.render(true)
	fmt.Fprintln(c.out)
}

func (c *Console) render(final bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current int64
	for _, n := range c.bytes {
		current += n
	}
	delta := current - c.lastBytes
	c.lastBytes = current

	elapsed := time.Since(c.started)

	percent := 0.0
	if c.total > 0 {
		percent = float64(current) / float64(c.total) * 100
	} else if c.requests > 0 {
		percent = float64(c.done) / float64(c.requests) * 100
	}
	if final || percent > 100 {
		percent = 100
	}

	speed := delta
	etaStr := "calc..."
	speedLabel := "Speed"
	timeLabel := "ETA"

	if final {
		speedLabel = "Avg"
		timeLabel = "Time"
		etaStr = elapsed.Truncate(time.Second).String()

		seconds := elapsed.Seconds()
		if seconds < 0.1 {
			seconds = 0.1
		}
		speed = int64(float64(current) / seconds)
	} else if avg := float64(current) / elapsed.Seconds(); avg > 0 && c.total > current {
		etaStr = (time.Duration(float64(c.total-current)/avg) * time.Second).Truncate(time.Second).String()
	}

	fmt.Fprintf(c.out, "\r%s | %s: %9s/s | %s: %-7s | %s/%s | %d/%d files (%d failed, %d manual)      ",
		bar(percent), speedLabel, humanize.IBytes(uint64(max(speed, 0))), timeLabel, etaStr,
		humanize.IBytes(uint64(current)), humanize.IBytes(uint64(c.total)),
		c.done, c.requests, c.failed, c.manual)
}

// bar draws [=====>    ] 25.0%
func bar(percent float64) string {
	completed := int(percent / 100 * barWidth)
	b := strings.Repeat("=", completed)
	if completed < barWidth {
		b += ">" + strings.Repeat(" ", barWidth-completed-1)
	}
	return fmt.Sprintf("[%s] %5.1f%%", b, percent)
}

package engine

import (
	"sync"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
	"golang.org/x/time/rate"
)

// reporter serializes the events of one request and drops anything that
// would follow its terminal event.
type reporter struct {
	mu       sync.Mutex
	id       string
	fn       domain.ProgressFunc
	done     bool
	interval time.Duration
}

func newReporter(id string, fn domain.ProgressFunc, interval time.Duration) *reporter {
	return &reporter{id: id, fn: fn, interval: interval}
}

func (r *reporter) emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done || r.fn == nil {
		return
	}
	ev.RequestID = r.id
	ev.Time = time.Now()
	if ev.Terminal() {
		r.done = true
	}
	r.fn(ev)
}

// throttled returns a byte counter callback that emits kind at most once
// per interval. The first call and the call reaching total always emit.
func (r *reporter) throttled(kind domain.EventKind) func(done, total int64) {
	var (
		sometimes = &rate.Sometimes{Interval: r.interval}
		start     = time.Now()
		base      = int64(-1)
	)

	return func(done, total int64) {
		if base < 0 {
			base = done
		}

		send := func() {
			ev := domain.Event{Kind: kind, Downloaded: done, Total: total}
			if secs := time.Since(start).Seconds(); secs > 0 {
				ev.SpeedBPS = float64(done-base) / secs
			}
			r.emit(ev)
		}

		if r.interval <= 0 || (total > 0 && done >= total) {
			send()
			return
		}
		sometimes.Do(send)
	}
}

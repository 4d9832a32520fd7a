package engine

import (
	"sync/atomic"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
)

// Metrics are the cumulative counters of one engine. Safe for concurrent use.
type Metrics struct {
	attempted          atomic.Int64
	succeeded          atomic.Int64
	failed             atomic.Int64
	retried            atomic.Int64
	validationFailures atomic.Int64
	manual             atomic.Int64
	bytes              atomic.Int64
	elapsed            atomic.Int64 // nanoseconds spent inside Run
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Attempted          int64         `json:"attempted"`
	Succeeded          int64         `json:"succeeded"`
	Failed             int64         `json:"failed"`
	Retried            int64         `json:"retried"`
	ValidationFailures int64         `json:"validation_failures"`
	ManualRequired     int64         `json:"manual_required"`
	BytesTransferred   int64         `json:"bytes_transferred"`
	Elapsed            time.Duration `json:"elapsed"`
	ThroughputBPS      float64       `json:"throughput_bps"`
	SuccessRate        float64       `json:"success_rate"`
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Attempted:          m.attempted.Load(),
		Succeeded:          m.succeeded.Load(),
		Failed:             m.failed.Load(),
		Retried:            m.retried.Load(),
		ValidationFailures: m.validationFailures.Load(),
		ManualRequired:     m.manual.Load(),
		BytesTransferred:   m.bytes.Load(),
		Elapsed:            time.Duration(m.elapsed.Load()),
	}

	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.ThroughputBPS = float64(s.BytesTransferred) / secs
	}
	if s.Attempted > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Attempted)
	}
	return s
}

// record counts one terminal result. Every request, including one rejected
// before admission, counts as attempted, so attempted always equals
// succeeded + failed + manual.
func (m *Metrics) record(res domain.Result) {
	m.attempted.Add(1)
	switch res.Outcome {
	case domain.OutcomeSuccess:
		m.succeeded.Add(1)
	case domain.OutcomeManual:
		m.manual.Add(1)
	case domain.OutcomeValidationFailed, domain.OutcomeSizeMismatch:
		m.validationFailures.Add(1)
		m.failed.Add(1)
	default:
		m.failed.Add(1)
	}
}

// Observer receives engine activity, e.g. for export to a metrics system.
type Observer interface {
	ObserveResult(kind domain.SourceKind, res domain.Result)
	ObserveRetry(kind domain.SourceKind)
	ObserveBytes(kind domain.SourceKind, n int64)
}

type nopObserver struct{}

func (nopObserver) ObserveResult(domain.SourceKind, domain.Result) {}
func (nopObserver) ObserveRetry(domain.SourceKind)                 {}
func (nopObserver) ObserveBytes(domain.SourceKind, int64)          {}

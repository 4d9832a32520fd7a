// Package engine runs batches of download requests with bounded
// concurrency, retries, mirror failover and validation.
package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/source"
	"github.com/datallboy/modfetch/internal/validation"
)

// Fetcher performs a single attempt for a request.
type Fetcher interface {
	Fetch(ctx context.Context, a source.Attempt) (*source.Transfer, error)
}

// Logger is the subset of the application logger the engine uses.
type Logger interface {
	Debug(f string, v ...any)
	Info(f string, v ...any)
	Warn(f string, v ...any)
	Error(f string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type Options struct {
	MaxConcurrency int
	// MaxRetries is the number of retries after the first attempt,
	// shared across every mirror of a request.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// MirrorFailover is how many consecutive retryable failures against
	// one URL promote the next mirror.
	MirrorFailover int

	Timeout            time.Duration
	LargeFileTimeout   time.Duration
	LargeFileThreshold int64

	AsyncValidation   bool
	ValidationWorkers int

	ProgressInterval time.Duration
	Less             Comparator
}

func DefaultOptions() Options {
	return Options{
		MaxConcurrency:     4,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		MaxRetryDelay:      60 * time.Second,
		MirrorFailover:     2,
		Timeout:            30 * time.Second,
		LargeFileTimeout:   600 * time.Second,
		LargeFileThreshold: 100_000_000,
		AsyncValidation:    true,
		ValidationWorkers:  4,
		ProgressInterval:   100 * time.Millisecond,
		Less:               Ascending,
	}
}

// Engine owns an admission gate, a validation pool and metrics. It holds no
// global state; construct one per independent workload.
type Engine struct {
	opts     Options
	fetcher  Fetcher
	gate     Gate
	pool     *validation.Pool
	metrics  *Metrics
	observer Observer
	log      Logger
}

type Option func(*Engine)

// WithGate replaces the default semaphore gate.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

func WithLogger(l Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func New(fetcher Fetcher, opts Options, extra ...Option) *Engine {
	if opts.Less == nil {
		opts.Less = Ascending
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MirrorFailover < 1 {
		opts.MirrorFailover = 1
	}

	e := &Engine{
		opts:     opts,
		fetcher:  fetcher,
		gate:     NewGate(opts.MaxConcurrency),
		pool:     validation.NewPool(opts.ValidationWorkers),
		metrics:  &Metrics{},
		observer: nopObserver{},
		log:      nopLogger{},
	}
	for _, o := range extra {
		o(e)
	}
	return e
}

func (e *Engine) Metrics() Snapshot { return e.metrics.Snapshot() }

// Batch is one call to Run. A nil Gate uses the engine's own.
type Batch struct {
	Requests []domain.Request
	Progress domain.ProgressFunc
	Gate     Gate
}

// Run executes every request and returns results aligned with b.Requests.
// Per-request failures never abort the batch. When ctx ends, in-flight
// attempts stop at their next I/O and requests not yet admitted fail with
// the context error; partial files are kept for resume.
func (e *Engine) Run(ctx context.Context, b Batch) []domain.Result {
	started := time.Now()
	defer func() { e.metrics.elapsed.Add(int64(time.Since(started))) }()

	gate := b.Gate
	if gate == nil {
		gate = e.gate
	}

	results := make([]domain.Result, len(b.Requests))
	first, second := schedule(b.Requests, e.opts.Less)

	// references resolve only against archives of this batch
	archives := source.NewArchiveIndex()

	e.log.Info("Starting batch of %d requests", len(b.Requests))

	e.runPhase(ctx, b, gate, archives, first, results)
	e.runPhase(ctx, b, gate, archives, second, results)

	snap := e.metrics.Snapshot()
	e.log.Info("Batch finished in %s: %d succeeded, %d failed, %d manual",
		time.Since(started).Truncate(time.Millisecond), snap.Succeeded, snap.Failed, snap.ManualRequired)

	return results
}

func (e *Engine) runPhase(ctx context.Context, b Batch, gate Gate, archives *source.ArchiveIndex, order []int, results []domain.Result) {
	var wg sync.WaitGroup

	for _, i := range order {
		req := &b.Requests[i]
		rep := newReporter(req.ID, b.Progress, e.opts.ProgressInterval)

		if err := req.Validate(); err != nil {
			results[i] = e.finish(req, rep, domain.ResultFromError(req, err, 0), time.Now())
			continue
		}

		// Admission happens in priority order; once ctx is done every
		// remaining request fails immediately.
		if err := gate.Acquire(ctx); err != nil {
			results[i] = e.finish(req, rep, domain.ResultFromError(req, err, 0), time.Now())
			continue
		}
		if err := ctx.Err(); err != nil {
			gate.Release()
			results[i] = e.finish(req, rep, domain.ResultFromError(req, err, 0), time.Now())
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			var once sync.Once
			release := func() { once.Do(gate.Release) }
			defer release()

			results[i] = e.execute(ctx, req, archives, rep, release)
		}()
	}

	wg.Wait()
}

// execute drives one request through its attempts and validation.
// release frees the admission slot; it may be called before execute
// returns so background validation does not hold the gate.
func (e *Engine) execute(ctx context.Context, req *domain.Request, archives *source.ArchiveIndex, rep *reporter, release func()) domain.Result {
	start := time.Now()
	kind := req.Source.Kind()

	rep.emit(domain.Event{Kind: domain.EventStarted})

	tr, attempts, mirror, err := e.attempts(ctx, req, archives, rep)
	if err != nil {
		e.log.Error("[FAIL] %s permanently failed after %d attempt(s): %v", req.Locator(), attempts, err)
		return e.finish(req, rep, domain.ResultFromError(req, err, attempts), start)
	}

	if tr.Prompt != nil {
		e.log.Info("[Manual] %s: %s", req.Locator(), tr.Prompt.Message)
		return e.finish(req, rep, domain.Result{
			RequestID: req.ID,
			Outcome:   domain.OutcomeManual,
			Locator:   req.Locator(),
			Attempts:  attempts,
			Prompt:    tr.Prompt,
		}, start)
	}

	e.metrics.bytes.Add(tr.Size)
	e.observer.ObserveBytes(kind, tr.Size)

	if !req.Validation.IsEmpty() {
		if err := e.validate(ctx, req, tr, rep, release); err != nil {
			if kind == domain.KindGameFile && isMismatch(err) {
				// a bad copy must not be mistaken for the real file later
				_ = os.Remove(tr.Path)
			}
			e.log.Error("[FAIL] %s failed validation: %v", req.Locator(), err)
			return e.finish(req, rep, domain.ResultFromError(req, err, attempts), start)
		}
	}

	archives.Record(req.ArchiveID(), tr.Path)

	return e.finish(req, rep, domain.Result{
		RequestID: req.ID,
		Outcome:   domain.OutcomeSuccess,
		Locator:   req.Locator(),
		Attempts:  attempts,
		Path:      tr.Path,
		Size:      tr.Size,
		Mirror:    mirror,
	}, start)
}

// attempts runs the retry loop. It returns the transfer, the number of
// attempts made and the mirror used when it was not the primary URL.
//
// Every candidate URL gets up to MaxRetries+1 attempts. A candidate with a
// successor is abandoned early after MirrorFailover consecutive retryable
// failures (never more than MaxRetries of them) or on a terminal HTTP
// status, so every listed mirror is tried before the request fails.
func (e *Engine) attempts(ctx context.Context, req *domain.Request, archives *source.ArchiveIndex, rep *reporter) (*source.Transfer, int, string, error) {
	candidates := []string{""}
	if src, ok := req.Source.(domain.HTTPSource); ok {
		candidates = src.Candidates(req.Mirrors...)
		if len(candidates) == 0 {
			return nil, 0, "", domain.ErrNoCandidates
		}
	}

	var (
		cur         int
		onCur       int
		consecutive int
		attempts    int
		perURL      = e.opts.MaxRetries + 1
		failover    = min(e.opts.MirrorFailover, max(e.opts.MaxRetries, 1))
	)

	for {
		attempts++
		onCur++

		actx, cancel := e.attemptContext(ctx, req)
		tr, err := e.fetcher.Fetch(actx, source.Attempt{
			Request:  req,
			URL:      candidates[cur],
			Progress: rep.throttled(domain.EventProgress),
			Archives: archives,
		})
		cancel()

		if err == nil {
			mirror := ""
			if cur > 0 {
				mirror = candidates[cur]
			}
			return tr, attempts, mirror, nil
		}

		if ctx.Err() != nil {
			return nil, attempts, "", ctx.Err()
		}

		retryable := domain.IsRetryable(err)
		hasNext := cur+1 < len(candidates)
		exhausted := onCur >= perURL

		promote := false
		var he *domain.HTTPStatusError
		switch {
		case retryable:
			consecutive++
			promote = hasNext && (consecutive >= failover || exhausted)
		case errors.As(err, &he):
			// a dead URL is terminal for that URL only
			promote = hasNext
		}

		if !promote && (!retryable || exhausted) {
			return nil, attempts, "", err
		}

		if promote {
			cur++
			onCur = 0
			consecutive = 0
			e.log.Warn("[Mirror] %s: switching to %s", req.Locator(), candidates[cur])
		}

		e.metrics.retried.Add(1)
		e.observer.ObserveRetry(req.Source.Kind())
		e.log.Warn("[Retry] %s: Attempt %d/%d - Error: %v", req.Locator(), attempts, e.opts.MaxRetries, err)
		rep.emit(domain.Event{
			Kind:        domain.EventRetryAttempt,
			Attempt:     attempts,
			MaxAttempts: e.opts.MaxRetries,
			Err:         err,
		})

		// a freshly promoted mirror is tried right away
		if !promote {
			if err := sleep(ctx, e.backoff(onCur)); err != nil {
				return nil, attempts, "", err
			}
		}
	}
}

func (e *Engine) validate(ctx context.Context, req *domain.Request, tr *source.Transfer, rep *reporter, release func()) error {
	rep.emit(domain.Event{Kind: domain.EventValidationStarted, Total: tr.Size})
	progress := rep.throttled(domain.EventValidationProgress)

	job := func(vctx context.Context) error {
		_, err := validation.VerifyFile(vctx, tr.Path, req.Validation, progress)
		return err
	}

	var err error
	if e.opts.AsyncValidation {
		pending := e.pool.Submit(ctx, job)
		release()
		err = pending.Wait(ctx)
	} else {
		err = job(ctx)
		release()
	}

	rep.emit(domain.Event{Kind: domain.EventValidationComplete, Total: tr.Size, Err: err})
	return err
}

// finish records the result and emits the terminal event.
func (e *Engine) finish(req *domain.Request, rep *reporter, res domain.Result, start time.Time) domain.Result {
	res.Elapsed = time.Since(start)
	e.metrics.record(res)

	kind := domain.KindUndefined
	if req.Source != nil {
		kind = req.Source.Kind()
	}
	e.observer.ObserveResult(kind, res)

	switch res.Outcome {
	case domain.OutcomeSuccess, domain.OutcomeManual:
		rep.emit(domain.Event{Kind: domain.EventComplete, Outcome: res.Outcome, Downloaded: res.Size, Total: res.Size})
	default:
		rep.emit(domain.Event{Kind: domain.EventError, Outcome: res.Outcome, Err: res.Err})
	}
	return res
}

func isMismatch(err error) bool {
	if _, ok := domain.AsValidationError(err); ok {
		return true
	}
	_, ok := domain.AsSizeMismatch(err)
	return ok
}

func (e *Engine) attemptContext(ctx context.Context, req *domain.Request) (context.Context, context.CancelFunc) {
	timeout := e.opts.Timeout
	if e.opts.LargeFileThreshold > 0 && req.Validation.Size >= e.opts.LargeFileThreshold && e.opts.LargeFileTimeout > 0 {
		timeout = e.opts.LargeFileTimeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// backoff returns RetryDelay * 2^(n-1), capped at MaxRetryDelay.
func (e *Engine) backoff(n int) time.Duration {
	d := e.opts.RetryDelay
	for i := 1; i < n; i++ {
		d *= 2
		if e.opts.MaxRetryDelay > 0 && d >= e.opts.MaxRetryDelay {
			return e.opts.MaxRetryDelay
		}
	}
	if e.opts.MaxRetryDelay > 0 && d > e.opts.MaxRetryDelay {
		return e.opts.MaxRetryDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

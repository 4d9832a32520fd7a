package domain

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded manifest or batch execution.
type Run struct {
	ID         string     `json:"id"`
	Manifest   string     `json:"manifest"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Total       int `json:"total"`
	Automatable int `json:"automatable"`
	Manual      int `json:"manual"`

	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Bytes     int64  `json:"bytes"`
	Error     string `json:"error,omitempty"`

	Results []RunResult `json:"results,omitempty"`
}

// RunResult is the stored form of one Result within a Run.
type RunResult struct {
	RequestID string     `json:"request_id"`
	Name      string     `json:"name"`
	Source    SourceKind `json:"source"`
	Outcome   Outcome    `json:"outcome"`
	Locator   string     `json:"locator"`
	Path      string     `json:"path,omitempty"`
	Size      int64      `json:"size"`
	Attempts  int        `json:"attempts"`
	Check     string     `json:"check,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// NewRunResult flattens a request and its result for storage.
func NewRunResult(req *Request, res Result) RunResult {
	rr := RunResult{
		RequestID: res.RequestID,
		Name:      req.FileName(),
		Outcome:   res.Outcome,
		Locator:   res.Locator,
		Path:      res.Path,
		Size:      res.Size,
		Attempts:  res.Attempts,
		Check:     res.Check,
	}
	if req.Source != nil {
		rr.Source = req.Source.Kind()
	}
	switch {
	case res.Prompt != nil:
		rr.Message = res.Prompt.Message
	case !res.OK():
		rr.Message = res.Reason()
	}
	return rr
}

// Tally fills the success and failure counters from results.
func (r *Run) Tally() {
	r.Succeeded, r.Failed, r.Bytes = 0, 0, 0
	for _, rr := range r.Results {
		switch rr.Outcome {
		case OutcomeSuccess:
			r.Succeeded++
			r.Bytes += rr.Size
		case OutcomeManual:
		default:
			r.Failed++
		}
	}
}

package domain

import (
	"fmt"
	"time"
)

type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeSizeMismatch     Outcome = "size_mismatch"
	OutcomeManual           Outcome = "manual_action_required"
	OutcomeFailed           Outcome = "failed"
)

// ManualPrompt tells a human what to fetch and where to put it.
type ManualPrompt struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Target  string `json:"target"`
}

// Result is the terminal state of one request.
type Result struct {
	RequestID string  `json:"request_id"`
	Outcome   Outcome `json:"outcome"`
	Locator   string  `json:"locator"`
	Attempts  int     `json:"attempts"`

	// Success
	Path    string        `json:"path,omitempty"`
	Size    int64         `json:"size,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
	// Mirror is the candidate URL that produced the file, if not the primary.
	Mirror string `json:"mirror,omitempty"`

	// ValidationFailed and SizeMismatch
	Check    string `json:"check,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	Prompt *ManualPrompt `json:"prompt,omitempty"`
	Err    error         `json:"-"`
}

func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

// Terminal reports whether the result needs no further work from the engine.
// Every result returned by the engine is terminal; this guards zero values.
func (r Result) Terminal() bool { return r.Outcome != "" }

// Reason renders the failure cause, or "" for success and manual outcomes.
func (r Result) Reason() string {
	switch r.Outcome {
	case OutcomeValidationFailed:
		return fmt.Sprintf("%s mismatch: expected %s, got %s", r.Check, r.Expected, r.Actual)
	case OutcomeSizeMismatch:
		return fmt.Sprintf("size mismatch: expected %s, got %s", r.Expected, r.Actual)
	case OutcomeFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "failed"
	}
	return ""
}

// ResultFromError maps a terminal error onto the matching outcome.
func ResultFromError(req *Request, err error, attempts int) Result {
	res := Result{
		RequestID: req.ID,
		Locator:   req.Locator(),
		Attempts:  attempts,
		Err:       err,
		Outcome:   OutcomeFailed,
	}

	if ve, ok := AsValidationError(err); ok {
		res.Outcome = OutcomeValidationFailed
		res.Check, res.Expected, res.Actual = ve.Check, ve.Expected, ve.Actual
	} else if se, ok := AsSizeMismatch(err); ok {
		res.Outcome = OutcomeSizeMismatch
		res.Check = CheckSize
		res.Expected = fmt.Sprint(se.Expected)
		res.Actual = fmt.Sprint(se.Actual)
	}
	return res
}

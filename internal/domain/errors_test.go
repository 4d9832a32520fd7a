package domain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", &TransportError{URL: "u", Err: io.ErrUnexpectedEOF}, true},
		{"wrapped transport", fmt.Errorf("attempt: %w", &TransportError{URL: "u", Err: io.EOF}), true},
		{"503", &HTTPStatusError{Status: http.StatusServiceUnavailable}, true},
		{"429", &HTTPStatusError{Status: http.StatusTooManyRequests}, true},
		{"404", &HTTPStatusError{Status: http.StatusNotFound}, false},
		{"501", &HTTPStatusError{Status: http.StatusNotImplemented}, false},
		{"validation", &ValidationError{Check: CheckSHA256}, false},
		{"size", &SizeMismatchError{Expected: 1, Actual: 2}, false},
		{"filesystem", &FilesystemError{Op: "open", Path: "/x", Err: io.EOF}, false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestResultFromError(t *testing.T) {
	req := &Request{ID: "r1", Source: HTTPSource{URL: "https://x/y.zip"}, Destination: "/d"}

	res := ResultFromError(req, fmt.Errorf("validate: %w", &ValidationError{Check: CheckSHA256, Expected: "aa", Actual: "bb"}), 2)
	assert.Equal(t, OutcomeValidationFailed, res.Outcome)
	assert.Equal(t, CheckSHA256, res.Check)
	assert.Equal(t, "aa", res.Expected)
	assert.Equal(t, "bb", res.Actual)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "https://x/y.zip", res.Locator)

	res = ResultFromError(req, &SizeMismatchError{Expected: 10, Actual: 4}, 1)
	assert.Equal(t, OutcomeSizeMismatch, res.Outcome)
	assert.Equal(t, "10", res.Expected)
	assert.Equal(t, "4", res.Actual)

	res = ResultFromError(req, io.EOF, 4)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "EOF", res.Reason())
}

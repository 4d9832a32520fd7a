package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datallboy/modfetch/internal/domain"
)

func TestConsole_Summary(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, 3, 2048)

	c.Handle(domain.Event{RequestID: "a", Kind: domain.EventStarted})
	c.Handle(domain.Event{RequestID: "a", Kind: domain.EventProgress, Downloaded: 512, Total: 1024})
	c.Handle(domain.Event{RequestID: "a", Kind: domain.EventComplete, Outcome: domain.OutcomeSuccess, Downloaded: 1024})
	c.Handle(domain.Event{RequestID: "b", Kind: domain.EventError, Outcome: domain.OutcomeValidationFailed})
	c.Handle(domain.Event{RequestID: "c", Kind: domain.EventComplete, Outcome: domain.OutcomeManual})

	c.Finish()

	line := out.String()
	assert.True(t, strings.HasPrefix(line, "\r[====================] 100.0%"))
	assert.Contains(t, line, "Avg:")
	assert.Contains(t, line, "1.0 KiB/2.0 KiB")
	assert.Contains(t, line, "3/3 files (1 failed, 1 manual)")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestConsole_RetryResetsBytes(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, 1, 1000)

	c.Handle(domain.Event{RequestID: "a", Kind: domain.EventProgress, Downloaded: 500})
	c.Handle(domain.Event{RequestID: "a", Kind: domain.EventRetryAttempt, Attempt: 1})
	c.render(false)

	assert.Contains(t, out.String(), "[>                   ]   0.0%")
	assert.Contains(t, out.String(), "0 B/1000 B")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "[=====>              ]  25.0%", bar(25))
	assert.Equal(t, "[====================] 100.0%", bar(100))
}

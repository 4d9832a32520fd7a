// Package httpclient issues single HTTP attempts for the download engine.
// It never retries: every failure is classified and handed back so the
// orchestrator can decide.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
)

// ErrRangeNotSatisfiable means the requested offset is at or past the end
// of the remote file.
var ErrRangeNotSatisfiable = errors.New("http: range not satisfiable")

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int

	// UserAgent is sent with every request.
	UserAgent string

	// Transport overrides the default transport, mainly for tests.
	Transport http.RoundTripper
}

func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 16,
		UserAgent:           "modfetch/1.0",
	}
}

// Response is an open body positioned at Offset within the remote file.
type Response struct {
	Body          io.ReadCloser
	Status        int
	ContentLength int64
	// Offset is where Body starts: the requested offset for a 206, 0 when
	// the server ignored the range.
	Offset int64
	// Total is the full remote size, or -1 if unknown.
	Total int64
	// ETag is the unquoted strong validator, empty when the server sent
	// none or only a weak one.
	ETag string
}

type Client struct {
	client    *http.Client
	userAgent string
}

func New(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
			MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  true, // We want raw bytes for range requests
		}
	}

	return &Client{
		// Deadlines come from the per-attempt context
		client:    &http.Client{Transport: transport},
		userAgent: opts.UserAgent,
	}
}

// Open starts a GET. With offset > 0 a Range header asks for the tail of the
// file; callers must check Response.Offset because servers may ignore it.
func (c *Client) Open(ctx context.Context, url string, offset int64, headers map[string]string) (*Response, error) {
	return c.Resume(ctx, url, offset, "", headers)
}

// Resume is Open guarded by If-Range: when etag no longer matches the remote
// file the server sends all of it and Response.Offset is 0.
func (c *Client) Resume(ctx context.Context, url string, offset int64, etag string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		if etag != "" {
			req.Header.Set("If-Range", `"`+etag+`"`)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{URL: url, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		start, _, total, perr := ParseContentRange(resp.Header.Get("Content-Range"))
		if perr != nil {
			resp.Body.Close()
			return nil, &domain.TransportError{URL: url, Err: perr}
		}
		return &Response{
			Body:          resp.Body,
			Status:        resp.StatusCode,
			ContentLength: resp.ContentLength,
			Offset:        start,
			Total:         total,
			ETag:          cleanETag(resp.Header.Get("ETag")),
		}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		total := resp.ContentLength
		if total < 0 {
			total = -1
		}
		return &Response{
			Body:          resp.Body,
			Status:        resp.StatusCode,
			ContentLength: resp.ContentLength,
			Offset:        0,
			Total:         total,
			ETag:          cleanETag(resp.Header.Get("ETag")),
		}, nil

	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0:
		resp.Body.Close()
		return nil, ErrRangeNotSatisfiable
	}

	// Drain a little so the connection can be reused
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)
	resp.Body.Close()
	return nil, &domain.HTTPStatusError{URL: url, Status: resp.StatusCode}
}

// Fetch reads a whole, small resource into memory.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	resp, err := c.Open(ctx, url, 0, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	return data, nil
}

// cleanETag removes quotes from a strong ETag. Weak ETags cannot guard a
// range request and come back empty.
func cleanETag(etag string) string {
	if strings.HasPrefix(etag, "W/") {
		return ""
	}
	return strings.Trim(etag, `"`)
}

// ParseContentRange parses a Content-Range header value.
// Returns start, end, total bytes. Total may be -1 if unknown.
func ParseContentRange(header string) (start, end, total int64, err error) {
	// Format: bytes start-end/total or bytes start-end/*
	header = strings.TrimPrefix(header, "bytes ")
	parts := strings.Split(header, "/")
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	rangeParts := strings.Split(parts[0], "-")
	if len(rangeParts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	start, err = strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}

	end, err = strconv.ParseInt(rangeParts[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}

	if parts[1] == "*" {
		total = -1
	} else {
		total, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
		}
	}

	return start, end, total, nil
}

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = "0123456789abcdefghij"

func rangeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "modfetch-test", r.Header.Get("User-Agent"))
		http.ServeContent(w, r, "file.bin", time.Time{}, strings.NewReader(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient() *Client {
	opts := DefaultOptions()
	opts.UserAgent = "modfetch-test"
	return New(opts)
}

func TestOpenWhole(t *testing.T) {
	srv := rangeServer(t)

	resp, err := newClient().Open(context.Background(), srv.URL, 0, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, int64(0), resp.Offset)
	assert.Equal(t, int64(len(body)), resp.Total)
}

func TestOpenRange(t *testing.T) {
	srv := rangeServer(t)

	resp, err := newClient().Open(context.Background(), srv.URL, 10, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, resp.Status)
	assert.Equal(t, body[10:], string(data))
	assert.Equal(t, int64(10), resp.Offset)
	assert.Equal(t, int64(len(body)), resp.Total)
}

func TestOpenRangePastEnd(t *testing.T) {
	srv := rangeServer(t)

	_, err := newClient().Open(context.Background(), srv.URL, int64(len(body)), nil)
	assert.True(t, errors.Is(err, ErrRangeNotSatisfiable))
}

func TestOpenIgnoredRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	resp, err := newClient().Open(context.Background(), srv.URL, 5, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, int64(0), resp.Offset)
}

func TestResumeIfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		http.ServeContent(w, r, "file.bin", time.Time{}, strings.NewReader(body))
	}))
	defer srv.Close()

	resp, err := newClient().Resume(context.Background(), srv.URL, 10, "abc", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusPartialContent, resp.Status)
	assert.Equal(t, int64(10), resp.Offset)
	assert.Equal(t, "abc", resp.ETag)

	resp, err = newClient().Resume(context.Background(), srv.URL, 10, "stale", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(0), resp.Offset)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestCleanETag(t *testing.T) {
	assert.Equal(t, "abc", cleanETag(`"abc"`))
	assert.Equal(t, "", cleanETag(`W/"abc"`))
	assert.Equal(t, "", cleanETag(""))
}

func TestStatusClassification(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	_, err := newClient().Open(context.Background(), srv.URL, 0, nil)
	var he *domain.HTTPStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.Status)
	assert.True(t, domain.IsRetryable(err))

	status.Store(http.StatusNotFound)
	_, err = newClient().Open(context.Background(), srv.URL, 0, nil)
	assert.False(t, domain.IsRetryable(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient().Open(context.Background(), url, 0, nil)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, domain.IsRetryable(err))
}

func TestHeadersForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("X-Token"))
	}))
	defer srv.Close()

	data, err := newClient().Fetch(context.Background(), srv.URL, map[string]string{"X-Token": "secret"})
	require.NoError(t, err)
	assert.Equal(t, "secret", string(data))
}

func TestParseContentRange(t *testing.T) {
	start, end, total, err := ParseContentRange("bytes 100-199/1000")
	require.NoError(t, err)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(199), end)
	assert.Equal(t, int64(1000), total)

	_, _, total, err = ParseContentRange("bytes 0-9/*")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), total)

	_, _, _, err = ParseContentRange("garbage")
	assert.Error(t, err)
}

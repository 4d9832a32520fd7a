package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var content = strings.Repeat("modfetch-", 4096)

func newHTTPFetcher(resume bool) *HTTPFetcher {
	return NewHTTPFetcher(httpclient.New(httpclient.DefaultOptions()), resume)
}

func TestHTTPFetchWholeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "a.bin", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "out", "a.bin")
	var last int64
	tr, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(done, total int64) {
		last = done
		assert.Equal(t, int64(len(content)), total)
	})
	require.NoError(t, err)

	assert.Equal(t, target, tr.Path)
	assert.Equal(t, int64(len(content)), tr.Size)
	assert.Equal(t, int64(len(content)), last)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.NoFileExists(t, target+".part")
}

func TestHTTPResumeFromPart(t *testing.T) {
	var gotRange atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange.Store(r.Header.Get("Range"))
		http.ServeContent(w, r, "a.bin", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(target+".part", []byte(content[:1000]), 0644))

	tr, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.NoError(t, err)

	assert.Equal(t, "bytes=1000-", gotRange.Load())
	assert.Equal(t, int64(len(content)), tr.Size)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestHTTPRestartWhenRangeIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		_, _ = io.WriteString(w, content)
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(target+".part", []byte("garbage that must go"), 0644))

	_, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestHTTPCompletePartIsFinalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "a.bin", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(target+".part", []byte(content), 0644))

	tr, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), tr.Size)
	assert.FileExists(t, target)
}

func TestHTTPTruncatedBodyIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		// short body: the server drops the connection
		_, _ = io.WriteString(w, content[:100])
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	_, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))

	// the partial bytes stay for the next attempt
	info, statErr := os.Stat(target + ".part")
	require.NoError(t, statErr)
	assert.Equal(t, int64(100), info.Size())
	assert.NoFileExists(t, target)
}

func TestHTTPStatusErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	_, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})

	var he *domain.HTTPStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func etagServer(etag, body string, ifRange *atomic.Value) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ifRange.Store(r.Header.Get("If-Range"))
		w.Header().Set("ETag", `"`+etag+`"`)
		http.ServeContent(w, r, "a.bin", time.Time{}, strings.NewReader(body))
	}))
}

func TestHTTPResumeGuardedByETag(t *testing.T) {
	var ifRange atomic.Value
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ifRange.Store(r.Header.Get("If-Range"))
		w.Header().Set("ETag", `"v1"`)
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Length", fmt.Sprint(len(content)))
			_, _ = io.WriteString(w, content[:1000])
			return
		}
		http.ServeContent(w, r, "a.bin", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	f := newHTTPFetcher(true)

	_, err := f.Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.Error(t, err)
	etag, err := os.ReadFile(target + ".part.etag")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(etag))

	tr, err := f.Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, ifRange.Load())
	assert.Equal(t, int64(len(content)), tr.Size)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.NoFileExists(t, target+".part.etag")
}

func TestHTTPResumeRestartsWhenFileChanged(t *testing.T) {
	changed := strings.Repeat("updated!-", 4096)
	var ifRange atomic.Value
	srv := etagServer("v2", changed, &ifRange)
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(target+".part", []byte(content[:1000]), 0644))
	require.NoError(t, os.WriteFile(target+".part.etag", []byte("v1"), 0644))

	tr, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, ifRange.Load())
	assert.Equal(t, int64(len(changed)), tr.Size)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, changed, string(data))
}

func TestHTTPResumeWithoutETagIsUnguarded(t *testing.T) {
	var ifRange atomic.Value
	srv := etagServer("v1", content, &ifRange)
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(target+".part", []byte(content[:1000]), 0644))

	_, err := newHTTPFetcher(true).Fetch(context.Background(), domain.HTTPSource{URL: srv.URL}, srv.URL, target, func(int64, int64) {})
	require.NoError(t, err)
	assert.Equal(t, "", ifRange.Load())
}

package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/modfetch/internal/domain"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	out := filepath.Join(dir, "downloads")
	cfg := fmt.Sprintf(`
download:
  out_dir: %s
  retry_delay: 1ms
  max_retry_delay: 2ms
log:
  path: %s
  include_stdout: false
store:
  sqlite_path: %s
`, out, filepath.Join(dir, "modfetch.log"), filepath.Join(dir, "modfetch.db"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path, out
}

func writeManifest(t *testing.T, url string) string {
	t.Helper()

	body := fmt.Sprintf(`{"Name": "CLI", "Archives": [
	  {"Name": "mod.7z", "Size": 5, "State": {"$type": "HttpDownloader", "Url": "%s/mod.7z"}},
	  {"Name": "manual.zip", "State": {"$type": "ManualDownloader", "Prompt": "grab it"}}
	]}`, url)

	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRun_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	cfg, out := writeConfig(t)
	manifest := writeManifest(t, srv.URL)

	assert.Equal(t, ExitSuccess, run([]string{"fetch", manifest, "--config", cfg}))

	data, err := os.ReadFile(filepath.Join(out, "mod.7z"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, ExitSuccess, run([]string{"history", "--config", cfg}))
}

func TestRun_GetValidationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	cfg, _ := writeConfig(t)

	code := run([]string{"get", srv.URL + "/file.bin", "--config", cfg, "--md5", "00000000000000000000000000000000"})
	assert.Equal(t, ExitValidationFailed, code)

	code = run([]string{"get", srv.URL + "/file.bin", "--config", cfg, "--md5", "5d41402abc4b2a76b9719d911017c592"})
	assert.Equal(t, ExitSuccess, code)
}

func TestRun_InvalidArgs(t *testing.T) {
	cfg, _ := writeConfig(t)

	assert.Equal(t, ExitInvalidArgs, run([]string{"inspect", filepath.Join(t.TempDir(), "missing.json"), "--config", cfg}))
	assert.Equal(t, ExitInvalidArgs, run([]string{"get", "https://example.com/x", "--bogus"}))
	assert.Equal(t, ExitInvalidArgs, run([]string{"history", "--config", filepath.Join(t.TempDir(), "nope.yaml")}))
}

func TestExitFor(t *testing.T) {
	assert.NoError(t, exitFor([]domain.Result{{Outcome: domain.OutcomeSuccess}, {Outcome: domain.OutcomeManual}}))

	var ee *exitError
	require.ErrorAs(t, exitFor([]domain.Result{{Outcome: domain.OutcomeSizeMismatch}}), &ee)
	assert.Equal(t, ExitValidationFailed, ee.code)

	require.ErrorAs(t, exitFor([]domain.Result{{Outcome: domain.OutcomeSizeMismatch}, {Outcome: domain.OutcomeFailed}}), &ee)
	assert.Equal(t, ExitDownloadFailed, ee.code)
}

package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/httpclient"
	"github.com/sourcegraph/conc/pool"
)

// cdnRemaps maps legacy CDN hosts onto the hosts that serve them today.
var cdnRemaps = map[string]string{
	"wabbajack.b-cdn.net":         "authored-files.wabbajack.org",
	"wabbajack-mirror.b-cdn.net":  "mirror.wabbajack.org",
	"wabbajack-patches.b-cdn.net": "patches.wabbajack.org",
	"wabbajacktest.b-cdn.net":     "test-files.wabbajack.org",
}

// ChunkDefinition is the decoded definition.json.gz of a CDN object.
type ChunkDefinition struct {
	MungedName string      `json:"MungedName"`
	Hash       string      `json:"Hash"`
	Size       int64       `json:"Size"`
	Parts      []ChunkPart `json:"Parts"`
}

type ChunkPart struct {
	Index  int    `json:"Index"`
	Size   int64  `json:"Size"`
	Hash   string `json:"Hash"`
	Offset int64  `json:"Offset"`
}

// CDNFetcher assembles chunked CDN objects by writing every part at its
// offset. Objects without a definition are fetched as a single file.
type CDNFetcher struct {
	client      *httpclient.Client
	fallback    *HTTPFetcher
	parallelism int
}

func NewCDNFetcher(client *httpclient.Client, fallback *HTTPFetcher, parallelism int) *CDNFetcher {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &CDNFetcher{client: client, fallback: fallback, parallelism: parallelism}
}

// RemapCDNURL rewrites a legacy CDN host; other URLs are returned unchanged.
func RemapCDNURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if host, ok := cdnRemaps[u.Hostname()]; ok {
		if port := u.Port(); port != "" {
			host += ":" + port
		}
		u.Host = host
		return u.String()
	}
	return raw
}

func (f *CDNFetcher) Fetch(ctx context.Context, src domain.CDNSource, target string, progress ProgressFunc) (*Transfer, error) {
	base := strings.TrimSuffix(RemapCDNURL(src.URL), "/")

	def, err := f.definition(ctx, base)
	var he *domain.HTTPStatusError
	if errors.As(err, &he) && he.Status == http.StatusNotFound {
		return f.fallback.Fetch(ctx, domain.HTTPSource{URL: base}, base, target, progress)
	}
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, &domain.FilesystemError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
	}

	partPath := target + ".part"
	out, err := createChunkFile(partPath, def.Size)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "allocate", Path: partPath, Err: err}
	}
	defer out.Close(0)

	var (
		done   int64
		progMu sync.Mutex
	)

	p := pool.New().WithMaxGoroutines(f.parallelism).WithContext(ctx).WithCancelOnError()
	for _, part := range def.Parts {
		p.Go(func(ctx context.Context) error {
			data, err := f.part(ctx, base, part)
			if err != nil {
				return err
			}
			if err := out.WriteAt(data, part.Offset); err != nil {
				return &domain.FilesystemError{Op: "write", Path: partPath, Err: err}
			}

			progMu.Lock()
			done += int64(len(data))
			progress(done, def.Size)
			progMu.Unlock()
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if err := out.Close(def.Size); err != nil {
		return nil, &domain.FilesystemError{Op: "close", Path: partPath, Err: err}
	}

	return finalize(partPath, target)
}

func (f *CDNFetcher) definition(ctx context.Context, base string) (*ChunkDefinition, error) {
	defURL := base + "/definition.json.gz"

	raw, err := f.client.Fetch(ctx, defURL, nil)
	if err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &domain.TransportError{URL: defURL, Err: fmt.Errorf("definition is not gzip: %w", err)}
	}
	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, &domain.TransportError{URL: defURL, Err: fmt.Errorf("definition truncated: %w", err)}
	}

	var def ChunkDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		return nil, &domain.TransportError{URL: defURL, Err: fmt.Errorf("decode definition: %w", err)}
	}
	return &def, nil
}

// part downloads one chunk and checks its md5. A corrupt chunk is a
// transport failure, so the attempt can be retried.
func (f *CDNFetcher) part(ctx context.Context, base string, part ChunkPart) ([]byte, error) {
	partURL := fmt.Sprintf("%s/parts/%d", base, part.Index)

	data, err := f.client.Fetch(ctx, partURL, nil)
	if err != nil {
		return nil, err
	}

	if part.Size > 0 && int64(len(data)) != part.Size {
		return nil, &domain.TransportError{
			URL: partURL,
			Err: fmt.Errorf("part %d: %w", part.Index, &domain.SizeMismatchError{Expected: part.Size, Actual: int64(len(data))}),
		}
	}

	if part.Hash != "" {
		sum := md5.Sum(data)
		actual := hex.EncodeToString(sum[:])
		if !strings.EqualFold(actual, part.Hash) {
			return nil, &domain.TransportError{
				URL: partURL,
				Err: fmt.Errorf("part %d: %w", part.Index, &domain.ValidationError{Check: domain.CheckMD5, Expected: part.Hash, Actual: actual}),
			}
		}
	}

	return data, nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/httpclient"
)

const copyBufferSize = 128 * 1024

// HTTPFetcher downloads into <target>.part and renames on completion. An
// existing part file is resumed with a Range request, guarded by If-Range
// when the ETag of the first response was kept in <target>.part.etag.
type HTTPFetcher struct {
	client      *httpclient.Client
	allowResume bool
}

func NewHTTPFetcher(client *httpclient.Client, allowResume bool) *HTTPFetcher {
	return &HTTPFetcher{client: client, allowResume: allowResume}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src domain.HTTPSource, url, target string, progress ProgressFunc) (*Transfer, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, &domain.FilesystemError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
	}

	partPath := target + ".part"
	etagPath := partPath + ".etag"

	var offset int64
	var etag string
	if f.allowResume {
		if info, err := os.Stat(partPath); err == nil {
			offset = info.Size()
		}
		if data, err := os.ReadFile(etagPath); err == nil && offset > 0 {
			etag = strings.TrimSpace(string(data))
		}
	}

	resp, err := f.client.Resume(ctx, url, offset, etag, src.Headers)
	if errors.Is(err, httpclient.ErrRangeNotSatisfiable) {
		// The part file already holds every byte the server has
		_ = os.Remove(etagPath)
		return finalize(partPath, target)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 && resp.Offset == offset {
		flags |= os.O_APPEND
	} else {
		// Server ignored the range or the file changed, start over
		flags |= os.O_TRUNC
		offset = 0
		writeETag(etagPath, resp.ETag)
	}

	out, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "open", Path: partPath, Err: err}
	}

	total := resp.Total
	if total < 0 && resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	written, copyErr := copyProgress(ctx, out, resp.Body, offset, total, progress)

	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = &domain.FilesystemError{Op: "close", Path: partPath, Err: err}
	}
	if copyErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var fsErr *domain.FilesystemError
		if errors.As(copyErr, &fsErr) {
			return nil, copyErr
		}
		return nil, &domain.TransportError{URL: url, Err: copyErr}
	}

	if total >= 0 && offset+written != total {
		return nil, &domain.TransportError{
			URL: url,
			Err: fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, offset+written, total),
		}
	}

	_ = os.Remove(etagPath)
	return finalize(partPath, target)
}

// writeETag remembers the validator for the part file. Without one a later
// resume goes unguarded.
func writeETag(path, etag string) {
	if etag == "" {
		_ = os.Remove(path)
		return
	}
	_ = os.WriteFile(path, []byte(etag), 0644)
}

// copyProgress copies src to dst, reporting start+copied after every write.
// Write failures come back as FilesystemError; read failures are returned as is.
func copyProgress(ctx context.Context, dst io.Writer, src io.Reader, start, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, &domain.FilesystemError{Op: "write", Path: nameOf(dst), Err: werr}
			}
			written += int64(n)
			progress(start+written, total)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func nameOf(w io.Writer) string {
	if f, ok := w.(*os.File); ok {
		return f.Name()
	}
	return ""
}

func finalize(partPath, target string) (*Transfer, error) {
	info, err := os.Stat(partPath)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "stat", Path: partPath, Err: err}
	}
	if err := moveFile(partPath, target); err != nil {
		return nil, &domain.FilesystemError{Op: "rename", Path: target, Err: err}
	}
	return &Transfer{Path: target, Size: info.Size()}, nil
}

// Package source performs one fetch attempt for each kind of download
// source. Fetchers never retry; the engine owns the retry policy.
package source

import (
	"context"
	"fmt"

	"github.com/datallboy/modfetch/internal/domain"
)

// ProgressFunc reports transferred bytes; total is -1 when unknown.
// Fetchers call it from one goroutine at a time.
type ProgressFunc func(done, total int64)

// Attempt describes a single fetch.
type Attempt struct {
	Request *domain.Request
	// URL is the candidate chosen by the engine for HTTP sources. Empty
	// means the source's primary URL.
	URL      string
	Progress ProgressFunc
	// Archives holds what the current batch has materialized so far.
	Archives *ArchiveIndex
}

// Transfer is what a successful attempt produced. Prompt is set only for
// manual sources, which produce no file.
type Transfer struct {
	Path   string
	Size   int64
	Prompt *domain.ManualPrompt
}

// Dispatcher routes an attempt to the fetcher for its source kind.
type Dispatcher struct {
	HTTP     *HTTPFetcher
	CDN      *CDNFetcher
	Games    *GameFileFetcher
	Archives *ArchiveFetcher
}

// Fetch performs exactly one attempt.
func (d *Dispatcher) Fetch(ctx context.Context, a Attempt) (*Transfer, error) {
	req := a.Request
	progress := a.Progress
	if progress == nil {
		progress = func(int64, int64) {}
	}

	switch src := req.Source.(type) {
	case domain.HTTPSource:
		url := a.URL
		if url == "" {
			url = src.URL
		}
		if url == "" {
			return nil, domain.ErrNoCandidates
		}
		return d.HTTP.Fetch(ctx, src, url, req.Target(), progress)

	case domain.CDNSource:
		return d.CDN.Fetch(ctx, src, req.Target(), progress)

	case domain.GameFileSource:
		return d.Games.Fetch(ctx, src, req.Target(), progress)

	case domain.ManualSource:
		return &Transfer{Prompt: &domain.ManualPrompt{
			Message: src.Prompt,
			URL:     src.URL,
			Target:  req.Target(),
		}}, nil

	case domain.ArchiveRefSource:
		return d.Archives.Fetch(ctx, src, a.Archives, req.Target(), progress)

	default:
		return nil, &domain.UnsupportedSourceError{Type: fmt.Sprintf("%T", req.Source)}
	}
}

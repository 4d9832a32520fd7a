package source

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/spf13/afero"
)

// ArchiveIndex remembers where each archive of a batch was materialized.
type ArchiveIndex struct {
	mu    sync.RWMutex
	paths map[string]string
}

func NewArchiveIndex() *ArchiveIndex {
	return &ArchiveIndex{paths: make(map[string]string)}
}

func (ix *ArchiveIndex) Record(id, path string) {
	if id == "" {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.paths[id] = path
}

// Lookup is safe on a nil index, which knows no archives.
func (ix *ArchiveIndex) Lookup(id string) (string, bool) {
	if ix == nil {
		return "", false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.paths[id]
	return p, ok
}

// ArchiveFetcher satisfies archive references by copying the archive that
// an earlier request of the same batch already produced.
type ArchiveFetcher struct {
	fs afero.Fs
}

func NewArchiveFetcher(fs afero.Fs) *ArchiveFetcher {
	return &ArchiveFetcher{fs: fs}
}

func (f *ArchiveFetcher) Fetch(ctx context.Context, src domain.ArchiveRefSource, index *ArchiveIndex, target string, progress ProgressFunc) (*Transfer, error) {
	path, ok := index.Lookup(src.ArchiveID)
	if !ok {
		return nil, &domain.UnresolvedReferenceError{ArchiveID: src.ArchiveID}
	}

	info, err := f.fs.Stat(path)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "stat", Path: path, Err: err}
	}

	if filepath.Clean(path) == filepath.Clean(target) {
		progress(info.Size(), info.Size())
		return &Transfer{Path: target, Size: info.Size()}, nil
	}

	return copyInto(ctx, f.fs, path, target, progress)
}

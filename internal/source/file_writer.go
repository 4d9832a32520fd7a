package source

import (
	"fmt"
	"os"
	"sync"
)

// chunkFile is a part file that CDN workers fill at independent offsets.
type chunkFile struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// createChunkFile opens path for writing and sizes it up front. On
// Linux/Unix the truncate leaves a sparse file, so nothing is zero-filled.
func createChunkFile(path string, size int64) (*chunkFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &chunkFile{path: path, file: f}, nil
}

// WriteAt stores one chunk. Safe for concurrent use.
func (c *chunkFile) WriteAt(data []byte, offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return fmt.Errorf("write to closed file %s", c.path)
	}
	_, err := c.file.WriteAt(data, offset)
	return err
}

// Close syncs and closes the file. A positive finalSize truncates it to
// exactly that length first. Closing twice is a no-op.
func (c *chunkFile) Close(finalSize int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}
	f := c.file
	c.file = nil

	if finalSize > 0 {
		if err := f.Truncate(finalSize); err != nil {
			f.Close()
			return err
		}
	}

	syncErr := f.Sync()
	if err := f.Close(); err != nil {
		return err
	}
	return syncErr
}

package modlist

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
)

// zipSignature is the local file header magic of a .wabbajack container.
var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// modlistEntry is the container entry holding the modlist JSON.
const modlistEntry = "modlist"

// Load reads modlist JSON from path, which may be a bare JSON file or a
// .wabbajack container.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modlist %s: %w", path, err)
	}

	if !bytes.HasPrefix(data, zipSignature) {
		return data, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}

	for _, f := range zr.File {
		if f.Name != modlistEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", modlistEntry, path, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	return nil, fmt.Errorf("container %s has no %q entry", path, modlistEntry)
}

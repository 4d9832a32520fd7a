package source

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/spf13/afero"
)

// moveFile renames source to dest, falling back to a copy when they live on
// different filesystems.
func moveFile(source, dest string) error {
	err := os.Rename(source, dest)
	if err == nil {
		return nil
	}

	return moveCrossDevice(source, dest)
}

// moveCrossDevice copies into a hidden temp file next to dest, renames it
// into place and only then removes the source.
func moveCrossDevice(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	tempDest := filepath.Join(filepath.Dir(destPath), "."+filepath.Base(destPath)+".tmp")

	dst, err := os.Create(tempDest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tempDest)
		return err
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tempDest)
		return err
	}

	// Explicitly close before renaming and deleting the source
	src.Close()
	if err := dst.Close(); err != nil {
		os.Remove(tempDest)
		return err
	}

	if err := os.Rename(tempDest, destPath); err != nil {
		os.Remove(tempDest)
		return err
	}

	return os.Remove(sourcePath)
}

// copyInto copies srcPath from fsys to target on the local disk through a
// part file, so an interrupted copy never looks complete.
func copyInto(ctx context.Context, fsys afero.Fs, srcPath, target string, progress ProgressFunc) (*Transfer, error) {
	in, err := fsys.Open(srcPath)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "open", Path: srcPath, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, &domain.FilesystemError{Op: "stat", Path: srcPath, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, &domain.FilesystemError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
	}

	partPath := target + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "create", Path: partPath, Err: err}
	}

	_, copyErr := copyProgress(ctx, out, in, 0, info.Size(), progress)
	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = &domain.FilesystemError{Op: "close", Path: partPath, Err: err}
	}
	if copyErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, ok := copyErr.(*domain.FilesystemError); ok {
			return nil, copyErr
		}
		return nil, &domain.FilesystemError{Op: "read", Path: srcPath, Err: copyErr}
	}

	return finalize(partPath, target)
}

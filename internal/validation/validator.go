// Package validation verifies downloaded files against a ValidationSpec.
package validation

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/datallboy/modfetch/internal/domain"
)

// ProgressFunc reports hashed bytes against the file size.
type ProgressFunc func(done, total int64)

// Digest holds the digests that were computed for a file. Only the
// algorithms named in the ValidationSpec are filled in.
type Digest struct {
	Size     int64
	CRC32    string
	MD5      string
	SHA256   string
	XXHash64 string
}

// VerifyFile checks path against the expected digests. Size is compared
// first so a short file never costs a full hash pass. With nothing to check
// the file is not read at all.
func VerifyFile(ctx context.Context, path string, spec domain.ValidationSpec, progress ProgressFunc) (Digest, error) {
	if spec.IsEmpty() {
		return Digest{}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Digest{}, &domain.FilesystemError{Op: "stat", Path: path, Err: err}
	}

	if spec.Size > 0 && info.Size() != spec.Size {
		return Digest{Size: info.Size()}, &domain.SizeMismatchError{Expected: spec.Size, Actual: info.Size()}
	}

	if !spec.HasHashes() {
		return Digest{Size: info.Size()}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Digest{}, &domain.FilesystemError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return Verify(ctx, f, info.Size(), spec, progress)
}

// Verify hashes r in a single pass and compares the result with spec.
// total is only used for progress reporting.
func Verify(ctx context.Context, r io.Reader, total int64, spec domain.ValidationSpec, progress ProgressFunc) (Digest, error) {
	hs := newHashSet(spec)

	src := &ctxReader{ctx: ctx, r: r, total: total, progress: progress}
	n, err := io.Copy(hs.writer(), src)
	if err != nil {
		return Digest{Size: n}, fmt.Errorf("hashing failed: %w", err)
	}

	d := hs.digest(n)
	return d, compare(spec, d)
}

func compare(spec domain.ValidationSpec, d Digest) error {
	if spec.Size > 0 && d.Size != spec.Size {
		return &domain.SizeMismatchError{Expected: spec.Size, Actual: d.Size}
	}

	checks := []struct {
		name     string
		expected string
		actual   string
		fold     bool
	}{
		{domain.CheckCRC32, normalizeHex(spec.CRC32), d.CRC32, true},
		{domain.CheckMD5, normalizeHex(spec.MD5), d.MD5, true},
		{domain.CheckSHA256, normalizeHex(spec.SHA256), d.SHA256, true},
		{domain.CheckXXHash64, strings.TrimSpace(spec.XXHash64), d.XXHash64, false},
	}

	for _, c := range checks {
		if c.expected == "" {
			continue
		}
		match := c.expected == c.actual
		if c.fold {
			match = strings.EqualFold(c.expected, c.actual)
		}
		if !match {
			return &domain.ValidationError{Check: c.name, Expected: c.expected, Actual: c.actual}
		}
	}
	return nil
}

// EncodeXXHash64 renders a digest the way modlist manifests store it:
// base64 of the little-endian bytes.
func EncodeXXHash64(sum uint64) string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sum)
	return base64.StdEncoding.EncodeToString(buf[:])
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strings.ToLower(s)
}

type hashSet struct {
	crc  hash.Hash32
	md5  hash.Hash
	sha  hash.Hash
	xxh  *xxhash.Digest
	list []io.Writer
}

func newHashSet(spec domain.ValidationSpec) *hashSet {
	hs := &hashSet{}
	if spec.CRC32 != "" {
		hs.crc = crc32.NewIEEE()
		hs.list = append(hs.list, hs.crc)
	}
	if spec.MD5 != "" {
		hs.md5 = md5.New()
		hs.list = append(hs.list, hs.md5)
	}
	if spec.SHA256 != "" {
		hs.sha = sha256.New()
		hs.list = append(hs.list, hs.sha)
	}
	if spec.XXHash64 != "" {
		hs.xxh = xxhash.New()
		hs.list = append(hs.list, hs.xxh)
	}
	return hs
}

func (hs *hashSet) writer() io.Writer {
	if len(hs.list) == 0 {
		return io.Discard
	}
	return io.MultiWriter(hs.list...)
}

func (hs *hashSet) digest(n int64) Digest {
	d := Digest{Size: n}
	if hs.crc != nil {
		d.CRC32 = fmt.Sprintf("%08x", hs.crc.Sum32())
	}
	if hs.md5 != nil {
		d.MD5 = hex.EncodeToString(hs.md5.Sum(nil))
	}
	if hs.sha != nil {
		d.SHA256 = hex.EncodeToString(hs.sha.Sum(nil))
	}
	if hs.xxh != nil {
		d.XXHash64 = EncodeXXHash64(hs.xxh.Sum64())
	}
	return d
}

// ctxReader stops hashing when ctx is done and reports progress.
type ctxReader struct {
	ctx      context.Context
	r        io.Reader
	done     int64
	total    int64
	progress ProgressFunc
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.done += int64(n)
		if c.progress != nil {
			c.progress(c.done, c.total)
		}
	}
	return n, err
}

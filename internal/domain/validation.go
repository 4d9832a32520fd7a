package domain

import "strings"

// Check names used in ValidationError and results.
const (
	CheckCRC32    = "crc32"
	CheckMD5      = "md5"
	CheckSHA256   = "sha256"
	CheckXXHash64 = "xxhash64"
	CheckSize     = "size"
)

// ValidationSpec lists the expected digests of a file. Empty fields are not
// checked, and Size 0 means the size is not checked.
// Hex digests are compared case-insensitively; XXHash64 uses the base64
// little-endian encoding found in modlist manifests.
type ValidationSpec struct {
	CRC32    string `json:"crc32,omitempty"`
	MD5      string `json:"md5,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	XXHash64 string `json:"xxhash64,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// IsEmpty reports whether there is nothing to verify.
func (v ValidationSpec) IsEmpty() bool {
	return !v.HasHashes() && v.Size <= 0
}

func (v ValidationSpec) HasHashes() bool {
	return v.CRC32 != "" || v.MD5 != "" || v.SHA256 != "" || v.XXHash64 != ""
}

// WithHash returns a copy with the digest for algo set.
// Unknown algorithms are ignored.
func (v ValidationSpec) WithHash(algo HashAlgorithm, digest string) ValidationSpec {
	digest = strings.TrimSpace(digest)
	switch algo {
	case HashCRC32:
		v.CRC32 = digest
	case HashMD5:
		v.MD5 = digest
	case HashSHA256:
		v.SHA256 = digest
	case HashXXHash64:
		v.XXHash64 = digest
	}
	return v
}

type HashAlgorithm string

const (
	HashNone     HashAlgorithm = ""
	HashCRC32    HashAlgorithm = "crc32"
	HashMD5      HashAlgorithm = "md5"
	HashSHA256   HashAlgorithm = "sha256"
	HashXXHash64 HashAlgorithm = "xxhash64"
)

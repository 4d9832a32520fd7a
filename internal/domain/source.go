package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

type SourceKind string

const (
	KindHTTP      SourceKind = "http"
	KindCDN       SourceKind = "cdn"
	KindGameFile  SourceKind = "gamefile"
	KindManual    SourceKind = "manual"
	KindArchive   SourceKind = "archive"
	KindUndefined SourceKind = ""
)

// Kinds lists every source kind in a stable order for reporting.
var Kinds = []SourceKind{KindHTTP, KindCDN, KindGameFile, KindManual, KindArchive}

// Source is the closed set of ways file bytes can be obtained.
// Only the variant types in this package implement it.
type Source interface {
	Kind() SourceKind
	// Display is a stable, human readable identity used in logs and results.
	Display() string
	// DefaultName is the file name used when a request has no override.
	DefaultName() string

	sealed()
}

// HTTPSource downloads from a primary URL, falling back to mirrors in order.
type HTTPSource struct {
	URL     string            `json:"url"`
	Mirrors []string          `json:"mirrors,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// CDNSource points at a chunked CDN object; URL is the object root that
// holds definition.json.gz and the parts/ directory.
type CDNSource struct {
	URL string `json:"url"`
}

// GameFileSource copies a file out of a local game installation.
type GameFileSource struct {
	Game        string `json:"game"`
	Path        string `json:"path"`
	GameVersion string `json:"game_version,omitempty"`
	Hash        string `json:"hash,omitempty"`
}

// ManualSource needs a human to fetch the file. No I/O is ever performed.
type ManualSource struct {
	Prompt string `json:"prompt"`
	URL    string `json:"url,omitempty"`
}

// ArchiveRefSource reuses an archive materialized earlier in the same batch.
type ArchiveRefSource struct {
	ArchiveID string `json:"archive_id"`
}

func (HTTPSource) Kind() SourceKind       { return KindHTTP }
func (CDNSource) Kind() SourceKind        { return KindCDN }
func (GameFileSource) Kind() SourceKind   { return KindGameFile }
func (ManualSource) Kind() SourceKind     { return KindManual }
func (ArchiveRefSource) Kind() SourceKind { return KindArchive }

func (HTTPSource) sealed()       {}
func (CDNSource) sealed()        {}
func (GameFileSource) sealed()   {}
func (ManualSource) sealed()     {}
func (ArchiveRefSource) sealed() {}

func (s HTTPSource) Display() string { return s.URL }
func (s CDNSource) Display() string  { return "cdn:" + s.URL }
func (s GameFileSource) Display() string {
	return fmt.Sprintf("game:%s/%s", s.Game, s.Path)
}
func (s ManualSource) Display() string {
	if s.URL != "" {
		return "manual:" + s.URL
	}
	return "manual"
}
func (s ArchiveRefSource) Display() string { return "archive:" + s.ArchiveID }

func (s HTTPSource) DefaultName() string { return nameFromURL(s.URL) }
func (s CDNSource) DefaultName() string  { return nameFromURL(s.URL) }
func (s GameFileSource) DefaultName() string {
	return path.Base(strings.ReplaceAll(s.Path, "\\", "/"))
}
func (s ManualSource) DefaultName() string     { return nameFromURL(s.URL) }
func (s ArchiveRefSource) DefaultName() string { return SanitizeFileName(s.ArchiveID) }

// Candidates returns the primary URL followed by the mirrors, without duplicates.
func (s HTTPSource) Candidates(extra ...string) []string {
	seen := make(map[string]struct{}, len(s.Mirrors)+len(extra)+1)
	out := make([]string, 0, len(s.Mirrors)+len(extra)+1)

	for _, u := range append(append([]string{s.URL}, s.Mirrors...), extra...) {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func nameFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return SanitizeFileName(path.Base(raw))
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return SanitizeFileName(u.Host)
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return SanitizeFileName(base)
}

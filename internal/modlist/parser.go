// Package modlist turns Wabbajack modlist JSON into a normalized Manifest.
package modlist

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/datallboy/modfetch/internal/domain"
)

// ErrNoArchives is returned when the document has no "Archives" array.
var ErrNoArchives = errors.New("modlist has no Archives array")

// State discriminators, without the assembly suffix.
const (
	typeHTTP     = "HttpDownloader"
	typeNexus    = "NexusDownloader"
	typeGameFile = "GameFileSourceDownloader"
	typeCDN      = "WabbajackCDNDownloader+State"
	typeManual   = "ManualDownloader"
)

// Warning describes an archive entry that was skipped.
type Warning struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("archive %d (%s): %s", w.Index, w.Name, w.Reason)
}

type wireModlist struct {
	Name        string          `json:"Name"`
	Version     string          `json:"Version"`
	Author      string          `json:"Author"`
	GameName    string          `json:"GameName"`
	Description string          `json:"Description"`
	Archives    *[]wireArchive  `json:"Archives"`
	Directives  json.RawMessage `json:"Directives"`
}

type wireArchive struct {
	Hash     string          `json:"Hash"`
	Meta     string          `json:"Meta"`
	Name     string          `json:"Name"`
	Size     int64           `json:"Size"`
	Priority int             `json:"Priority"`
	State    json.RawMessage `json:"State"`
}

type wireState struct {
	Type string `json:"$type"`

	// Http, CDN, Manual
	URL     string          `json:"Url"`
	Mirrors []string        `json:"Mirrors"`
	Headers json.RawMessage `json:"Headers"`
	Prompt  string          `json:"Prompt"`

	// Nexus
	GameName    string `json:"GameName"`
	ModID       int64  `json:"ModID"`
	FileID      int64  `json:"FileID"`
	Name        string `json:"Name"`
	Author      string `json:"Author"`
	Version     string `json:"Version"`
	Description string `json:"Description"`
	IsNSFW      bool   `json:"IsNSFW"`
	ImageURL    string `json:"ImageURL"`

	// GameFile
	Game        string `json:"Game"`
	GameFile    string `json:"GameFile"`
	GameVersion string `json:"GameVersion"`
	Hash        string `json:"Hash"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse converts raw modlist JSON. Entries with unknown or malformed state
// become warnings; only a document that is not valid JSON or has no
// archive list is an error. Output order follows the document.
func (p *Parser) Parse(data []byte) (*domain.Manifest, []Warning, error) {
	var wire wireModlist
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("decode modlist: %w", err)
	}
	if wire.Archives == nil {
		return nil, nil, ErrNoArchives
	}

	m := &domain.Manifest{
		Name:        wire.Name,
		Version:     wire.Version,
		Author:      wire.Author,
		Game:        wire.GameName,
		Description: wire.Description,
		Operations:  make([]domain.Operation, 0, len(*wire.Archives)),
	}

	var warnings []Warning
	seen := make(map[string]struct{})

	for i, a := range *wire.Archives {
		var st wireState
		if len(a.State) == 0 {
			warnings = append(warnings, Warning{Index: i, Name: a.Name, Reason: "missing State"})
			continue
		}
		if err := json.Unmarshal(a.State, &st); err != nil {
			warnings = append(warnings, Warning{Index: i, Name: a.Name, Reason: fmt.Sprintf("malformed State: %v", err)})
			continue
		}

		src, meta, err := p.source(st, a)
		if err != nil {
			warnings = append(warnings, Warning{Index: i, Name: a.Name, Type: st.Type, Reason: err.Error()})
			continue
		}

		// Identical archives are fetched once and copied for the rest
		if a.Hash != "" && src.Kind() != domain.KindManual {
			if _, dup := seen[a.Hash]; dup {
				src = domain.ArchiveRefSource{ArchiveID: a.Hash}
			} else {
				seen[a.Hash] = struct{}{}
			}
		}

		meta["type"] = st.Type
		m.Operations = append(m.Operations, domain.Operation{
			Source:          src,
			Name:            a.Name,
			Size:            a.Size,
			Hash:            a.Hash,
			HashAlgorithm:   InferHashAlgorithm(a.Hash),
			Priority:        a.Priority,
			DestinationHint: domain.SanitizeFileName(a.Name),
			Metadata:        meta,
		})
	}

	return m, warnings, nil
}

func (p *Parser) source(st wireState, a wireArchive) (domain.Source, map[string]string, error) {
	meta := map[string]string{}

	switch normalizeType(st.Type) {
	case typeHTTP:
		if st.URL == "" {
			return nil, nil, errors.New("http state without Url")
		}
		headers, err := parseHeaders(st.Headers)
		if err != nil {
			return nil, nil, err
		}
		return domain.HTTPSource{URL: st.URL, Mirrors: st.Mirrors, Headers: headers}, meta, nil

	case typeCDN:
		if st.URL == "" {
			return nil, nil, errors.New("cdn state without Url")
		}
		return domain.CDNSource{URL: st.URL}, meta, nil

	case typeGameFile:
		if st.Game == "" || st.GameFile == "" {
			return nil, nil, errors.New("game file state without Game or GameFile")
		}
		if st.GameVersion != "" {
			meta["game_version"] = st.GameVersion
		}
		hash := st.Hash
		if hash == "" {
			hash = a.Hash
		}
		return domain.GameFileSource{Game: st.Game, Path: st.GameFile, GameVersion: st.GameVersion, Hash: hash}, meta, nil

	case typeManual:
		prompt := st.Prompt
		if prompt == "" {
			prompt = fmt.Sprintf("Download %s manually", a.Name)
		}
		return domain.ManualSource{Prompt: prompt, URL: st.URL}, meta, nil

	case typeNexus:
		meta["nexus_game"] = st.GameName
		meta["nexus_mod_id"] = fmt.Sprint(st.ModID)
		meta["nexus_file_id"] = fmt.Sprint(st.FileID)
		if st.Author != "" {
			meta["author"] = st.Author
		}
		if st.Version != "" {
			meta["version"] = st.Version
		}
		if st.IsNSFW {
			meta["nsfw"] = "true"
		}

		name := st.Name
		if name == "" {
			name = a.Name
		}
		return domain.ManualSource{
			Prompt: fmt.Sprintf("Download %q (mod %d, file %d) from Nexus Mods", name, st.ModID, st.FileID),
			URL:    NexusURL(st.GameName, st.ModID, st.FileID),
		}, meta, nil

	case "":
		return nil, nil, errors.New("State has no $type")
	}

	return nil, nil, &domain.UnsupportedSourceError{Type: st.Type}
}

// normalizeType drops the ", Wabbajack.Lib" assembly suffix.
func normalizeType(t string) string {
	if i := strings.Index(t, ","); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// parseHeaders accepts both ["Name: value"] and {"Name": "value"}.
func parseHeaders(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		headers := make(map[string]string, len(list))
		for _, h := range list {
			k, v, ok := strings.Cut(h, ":")
			if !ok {
				return nil, fmt.Errorf("malformed header %q", h)
			}
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		return headers, nil
	}

	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, fmt.Errorf("malformed Headers: %w", err)
	}
	return headers, nil
}

// InferHashAlgorithm guesses the algorithm from the digest's shape.
// Modlists store xxHash64 as base64 of 8 bytes; hex digests are told apart
// by length.
func InferHashAlgorithm(hash string) domain.HashAlgorithm {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return domain.HashNone
	}

	if isHex(hash) {
		switch len(hash) {
		case 64:
			return domain.HashSHA256
		case 32:
			return domain.HashMD5
		case 8:
			return domain.HashCRC32
		}
	}

	if b, err := base64.StdEncoding.DecodeString(hash); err == nil && len(b) == 8 {
		return domain.HashXXHash64
	}
	return domain.HashNone
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

var nexusSlugs = map[string]string{
	"skyrimspecialedition": "skyrimspecialedition",
	"skyrim":               "skyrim",
	"fallout4":             "fallout4",
	"falloutnewvegas":      "newvegas",
	"fallout3":             "fallout3",
	"oblivion":             "oblivion",
	"morrowind":            "morrowind",
}

// NexusURL links to the files tab of a Nexus Mods page.
func NexusURL(game string, modID, fileID int64) string {
	slug := strings.ToLower(game)
	if s, ok := nexusSlugs[slug]; ok {
		slug = s
	}
	return fmt.Sprintf("https://www.nexusmods.com/%s/mods/%d?tab=files&file_id=%d", slug, modID, fileID)
}

// Package convert maps manifest operations to engine requests.
package convert

import (
	"maps"

	"github.com/datallboy/modfetch/internal/domain"
)

// Stats counts converted operations. Every operation lands in exactly one
// of Automatable or SkippedManual.
type Stats struct {
	Total         int                       `json:"total"`
	Automatable   int                       `json:"automatable"`
	SkippedManual int                       `json:"skipped_manual"`
	BySource      map[domain.SourceKind]int `json:"by_source"`
}

// AutomationRate is Automatable/Total in [0,1]; an empty manifest rates 0.
func (s Stats) AutomationRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Automatable) / float64(s.Total)
}

type Converter struct {
	DownloadDir string
}

func New(downloadDir string) *Converter {
	return &Converter{DownloadDir: downloadDir}
}

// Convert yields one request per operation, in manifest order.
func (c *Converter) Convert(m *domain.Manifest) ([]domain.Request, Stats) {
	stats := Stats{BySource: make(map[domain.SourceKind]int, len(domain.Kinds))}
	reqs := make([]domain.Request, 0, len(m.Operations))

	for _, op := range m.Operations {
		reqs = append(reqs, c.request(op))

		stats.Total++
		stats.BySource[op.Source.Kind()]++
		if op.Source.Kind() == domain.KindManual {
			stats.SkippedManual++
		} else {
			stats.Automatable++
		}
	}

	return reqs, stats
}

func (c *Converter) request(op domain.Operation) domain.Request {
	name := op.DestinationHint
	if name == "" {
		name = domain.SanitizeFileName(op.Name)
	}

	meta := maps.Clone(op.Metadata)
	if meta == nil {
		meta = make(map[string]string)
	}
	if op.Name != "" {
		meta[domain.MetaName] = op.Name
	}
	if op.Hash != "" {
		meta[domain.MetaArchiveID] = op.Hash
	}

	spec := domain.ValidationSpec{Size: op.Size}.WithHash(op.HashAlgorithm, op.Hash)

	return domain.Request{
		ID:          domain.NewID(),
		Source:      op.Source,
		Destination: c.DownloadDir,
		Filename:    name,
		Validation:  spec,
		Priority:    op.Priority,
		Metadata:    meta,
	}
}

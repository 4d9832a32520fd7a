package modlist

import "github.com/datallboy/modfetch/internal/domain"

// Stats summarizes a manifest before conversion.
type Stats struct {
	Total      int                       `json:"total"`
	ByKind     map[domain.SourceKind]int `json:"by_kind"`
	TotalBytes int64                     `json:"total_bytes"`
	Skipped    int                       `json:"skipped"`
}

func Summarize(m *domain.Manifest, warnings []Warning) Stats {
	s := Stats{
		Total:      len(m.Operations),
		ByKind:     make(map[domain.SourceKind]int, len(domain.Kinds)),
		TotalBytes: m.TotalSize(),
		Skipped:    len(warnings),
	}
	for _, op := range m.Operations {
		s.ByKind[op.Source.Kind()]++
	}
	return s
}

// AutomationPercentage is the share of operations that need no human, 0-100.
func (s Stats) AutomationPercentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Total-s.ByKind[domain.KindManual]) / float64(s.Total) * 100
}

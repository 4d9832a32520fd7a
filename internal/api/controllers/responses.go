package controllers

import (
	"github.com/datallboy/modfetch/internal/convert"
	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/downloader"
	"github.com/datallboy/modfetch/internal/modlist"
)

// -- INSPECT (POST /api/manifests/inspect) ---
type InspectResponse struct {
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	Author         string            `json:"author"`
	Game           string            `json:"game"`
	TotalBytes     int64             `json:"total_bytes"`
	Stats          convert.Stats     `json:"stats"`
	AutomationRate float64           `json:"automation_rate"`
	Warnings       []modlist.Warning `json:"warnings"`
	Archives       []ArchiveSummary  `json:"archives"`
}

type ArchiveSummary struct {
	Name     string            `json:"name"`
	Source   domain.SourceKind `json:"source"`
	Locator  string            `json:"locator"`
	Size     int64             `json:"size"`
	Priority int               `json:"priority"`
}

func newInspectResponse(in *downloader.Inspection) InspectResponse {
	m := in.Manifest
	resp := InspectResponse{
		Name:           m.Name,
		Version:        m.Version,
		Author:         m.Author,
		Game:           m.Game,
		TotalBytes:     m.TotalSize(),
		Stats:          in.Stats,
		AutomationRate: in.Stats.AutomationRate(),
		Warnings:       in.Warnings,
		Archives:       make([]ArchiveSummary, 0, len(m.Operations)),
	}
	if resp.Warnings == nil {
		resp.Warnings = []modlist.Warning{}
	}

	for _, op := range m.Operations {
		resp.Archives = append(resp.Archives, ArchiveSummary{
			Name:     op.Name,
			Source:   op.Source.Kind(),
			Locator:  op.Source.Display(),
			Size:     op.Size,
			Priority: op.Priority,
		})
	}
	return resp
}

// -- RUNS (POST /api/runs) ---
type RunAccepted struct {
	ID     string           `json:"id"`
	Status domain.RunStatus `json:"status"`
	Total  int              `json:"total"`
}

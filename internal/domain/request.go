package domain

import (
	"fmt"
	"path/filepath"
)

// Metadata keys understood by the engine.
const (
	MetaArchiveID = "archive_id"
	MetaName      = "name"
)

// Request is one unit of work for the engine.
type Request struct {
	ID          string            `json:"id"`
	Source      Source            `json:"-"`
	Destination string            `json:"destination"`
	Filename    string            `json:"filename,omitempty"`
	Mirrors     []string          `json:"mirrors,omitempty"`
	Validation  ValidationSpec    `json:"validation"`
	Priority    int               `json:"priority"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks the request invariants: a destination and a known source.
func (r *Request) Validate() error {
	if r.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	switch r.Source.(type) {
	case HTTPSource, CDNSource, GameFileSource, ManualSource, ArchiveRefSource:
	case nil:
		return fmt.Errorf("%w: source is required", ErrInvalidRequest)
	default:
		return &UnsupportedSourceError{Type: fmt.Sprintf("%T", r.Source)}
	}
	if r.Source.Kind() != KindManual && r.FileName() == "" {
		return fmt.Errorf("%w: cannot derive a file name from %s", ErrInvalidRequest, r.Source.Display())
	}
	return nil
}

// FileName is the override if set, otherwise the source default.
func (r *Request) FileName() string {
	if r.Filename != "" {
		return r.Filename
	}
	if r.Source == nil {
		return ""
	}
	return r.Source.DefaultName()
}

// Target is the final path of the downloaded file.
func (r *Request) Target() string {
	return filepath.Join(r.Destination, r.FileName())
}

// ArchiveID identifies the materialized file for ArchiveRefSource lookups.
func (r *Request) ArchiveID() string {
	if id := r.Metadata[MetaArchiveID]; id != "" {
		return id
	}
	return r.ID
}

// Locator describes where the request gets its bytes from.
func (r *Request) Locator() string {
	if r.Source == nil {
		return ""
	}
	return r.Source.Display()
}

// Builder assembles a Request fluently.
//
//	req, err := domain.NewRequest(domain.HTTPSource{URL: u}).
//		Into("/downloads").
//		WithMirror(m).
//		WithValidation(domain.ValidationSpec{SHA256: sum}).
//		Build()
type Builder struct {
	req Request
}

func NewRequest(src Source) *Builder {
	return &Builder{req: Request{Source: src}}
}

func (b *Builder) Into(dir string) *Builder {
	b.req.Destination = dir
	return b
}

func (b *Builder) Named(name string) *Builder {
	b.req.Filename = name
	return b
}

func (b *Builder) WithMirror(urls ...string) *Builder {
	b.req.Mirrors = append(b.req.Mirrors, urls...)
	return b
}

func (b *Builder) WithValidation(spec ValidationSpec) *Builder {
	b.req.Validation = spec
	return b
}

func (b *Builder) WithPriority(p int) *Builder {
	b.req.Priority = p
	return b
}

func (b *Builder) WithMeta(key, value string) *Builder {
	if b.req.Metadata == nil {
		b.req.Metadata = make(map[string]string)
	}
	b.req.Metadata[key] = value
	return b
}

func (b *Builder) WithID(id string) *Builder {
	b.req.ID = id
	return b
}

// Build validates the request and assigns an ID if none was given.
func (b *Builder) Build() (Request, error) {
	req := b.req
	if req.ID == "" {
		req.ID = NewID()
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

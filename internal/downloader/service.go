// Package downloader is the entry point for callers: single requests,
// batches, and whole manifests.
package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/datallboy/modfetch/internal/convert"
	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/engine"
	"github.com/datallboy/modfetch/internal/httpclient"
	"github.com/datallboy/modfetch/internal/infra/config"
	"github.com/datallboy/modfetch/internal/modlist"
	"github.com/datallboy/modfetch/internal/source"
)

type Options struct {
	Engine engine.Options
	HTTP   httpclient.Options

	DownloadDir      string
	AllowResume      bool
	ChunkParallelism int

	// GameFS is where game installs are read from; nil means the OS.
	GameFS     afero.Fs
	GamePaths  map[string]string
	SteamRoots []string
}

func DefaultOptions() Options {
	return Options{
		Engine:           engine.DefaultOptions(),
		HTTP:             httpclient.DefaultOptions(),
		DownloadDir:      "./downloads",
		AllowResume:      true,
		ChunkParallelism: 4,
	}
}

// OptionsFromConfig maps the application config onto service options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	less, err := engine.ParseOrder(cfg.Download.PriorityOrder)
	if err != nil {
		return Options{}, err
	}

	opts := DefaultOptions()
	opts.DownloadDir = cfg.Download.OutDir
	opts.AllowResume = cfg.Download.AllowResume
	opts.ChunkParallelism = cfg.Download.ChunkParallelism
	opts.HTTP.UserAgent = cfg.Download.UserAgent
	opts.GamePaths = cfg.Games.Paths
	opts.SteamRoots = cfg.Games.SteamRoots

	e := &opts.Engine
	e.MaxConcurrency = cfg.Download.MaxConcurrent
	e.MaxRetries = cfg.Download.MaxRetries
	e.RetryDelay = cfg.Download.RetryDelay
	e.MaxRetryDelay = cfg.Download.MaxRetryDelay
	e.MirrorFailover = cfg.Download.MirrorFailover
	e.Timeout = cfg.Download.Timeout
	e.LargeFileTimeout = cfg.Download.LargeFileTimeout
	e.LargeFileThreshold = cfg.Download.LargeFileThreshold
	e.AsyncValidation = cfg.Validation.Async
	e.ValidationWorkers = cfg.Validation.MaxConcurrent
	e.Less = less

	return opts, nil
}

// Service owns one engine with its gate and metrics. Nothing is
// shared between Service instances.
type Service struct {
	opts      Options
	engine    *engine.Engine
	parser    *modlist.Parser
	converter *convert.Converter
	log       engine.Logger
}

// ManifestReport is everything produced by one DownloadManifest call.
type ManifestReport struct {
	Manifest *domain.Manifest  `json:"manifest"`
	Warnings []modlist.Warning `json:"warnings"`
	Stats    convert.Stats     `json:"stats"`
	Requests []domain.Request  `json:"requests"`
	Results  []domain.Result   `json:"results"`
	Elapsed  time.Duration     `json:"elapsed"`
}

// Inspection is a parsed and converted manifest with no I/O performed.
type Inspection struct {
	Manifest *domain.Manifest  `json:"manifest"`
	Warnings []modlist.Warning `json:"warnings"`
	Summary  modlist.Stats     `json:"summary"`
	Stats    convert.Stats     `json:"stats"`
	Requests []domain.Request  `json:"requests"`
}

func NewService(opts Options, log engine.Logger, extra ...engine.Option) *Service {
	if opts.GameFS == nil {
		opts.GameFS = afero.NewOsFs()
	}
	if log == nil {
		log = nopLogger{}
	}

	client := httpclient.New(opts.HTTP)
	httpFetcher := source.NewHTTPFetcher(client, opts.AllowResume)

	dispatcher := &source.Dispatcher{
		HTTP:     httpFetcher,
		CDN:      source.NewCDNFetcher(client, httpFetcher, opts.ChunkParallelism),
		Games:    source.NewGameFileFetcher(opts.GameFS, source.NewGameLocator(opts.GameFS, opts.GamePaths, opts.SteamRoots)),
		Archives: source.NewArchiveFetcher(afero.NewOsFs()),
	}

	engineOpts := append([]engine.Option{engine.WithLogger(log)}, extra...)

	return &Service{
		opts:      opts,
		engine:    engine.New(dispatcher, opts.Engine, engineOpts...),
		parser:    modlist.NewParser(),
		converter: convert.New(opts.DownloadDir),
		log:       log,
	}
}

func (s *Service) Metrics() engine.Snapshot {
	return s.engine.Metrics()
}

// Download runs a single request.
func (s *Service) Download(ctx context.Context, req domain.Request, progress domain.ProgressFunc) domain.Result {
	return s.engine.Run(ctx, engine.Batch{
		Requests: []domain.Request{req},
		Progress: progress,
	})[0]
}

// DownloadBatch runs reqs with at most concurrency in flight. A
// concurrency of 0 or less uses the service's configured limit. Results
// are aligned with reqs.
func (s *Service) DownloadBatch(ctx context.Context, reqs []domain.Request, concurrency int, progress domain.ProgressFunc) []domain.Result {
	b := engine.Batch{Requests: reqs, Progress: progress}
	if concurrency > 0 {
		b.Gate = engine.NewGate(concurrency)
	}
	return s.engine.Run(ctx, b)
}

// Inspect parses and converts a manifest without downloading anything.
func (s *Service) Inspect(data []byte) (*Inspection, error) {
	m, warnings, err := s.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	reqs, stats := s.converter.Convert(m)
	return &Inspection{
		Manifest: m,
		Warnings: warnings,
		Summary:  modlist.Summarize(m, warnings),
		Stats:    stats,
		Requests: reqs,
	}, nil
}

// DownloadManifest parses data, converts it and runs the whole batch.
// Only a manifest that cannot be parsed is an error; per-archive failures
// are in the report's results.
func (s *Service) DownloadManifest(ctx context.Context, data []byte, concurrency int, progress domain.ProgressFunc) (*ManifestReport, error) {
	in, err := s.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return s.Execute(ctx, in, concurrency, progress), nil
}

// Execute runs the requests of an inspected manifest.
func (s *Service) Execute(ctx context.Context, in *Inspection, concurrency int, progress domain.ProgressFunc) *ManifestReport {
	for _, w := range in.Warnings {
		s.log.Warn("Skipping %s", w)
	}
	s.log.Info("Manifest %q: %d archives, %.0f%% automatable",
		in.Manifest.Name, in.Stats.Total, in.Stats.AutomationRate()*100)

	start := time.Now()
	results := s.DownloadBatch(ctx, in.Requests, concurrency, progress)

	return &ManifestReport{
		Manifest: in.Manifest,
		Warnings: in.Warnings,
		Stats:    in.Stats,
		Requests: in.Requests,
		Results:  results,
		Elapsed:  time.Since(start),
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

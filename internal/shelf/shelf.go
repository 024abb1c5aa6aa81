// Package shelf runs the listing pipeline: load the spreadsheet, resolve
// and validate every cover, and hand renderable entries to the page.
package shelf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lepinkainen/ebookgrid/internal/cache"
	"github.com/lepinkainen/ebookgrid/internal/config"
	"github.com/lepinkainen/ebookgrid/internal/cover"
	"github.com/lepinkainen/ebookgrid/internal/httpclient"
	"github.com/lepinkainen/ebookgrid/internal/probe"
	"github.com/lepinkainen/ebookgrid/internal/render"
	"github.com/lepinkainen/ebookgrid/internal/source"
	"github.com/lepinkainen/ebookgrid/internal/validate"
)

// Listing is a validated table ready to render.
type Listing struct {
	Source  source.Source
	Entries []validate.Entry
}

// Page converts the listing into grid page data.
func (l Listing) Page(title string) render.Page {
	tiles := make([]render.Tile, len(l.Entries))
	for i, e := range l.Entries {
		alt := e.Row.Ordinal
		if alt == "" {
			alt = fmt.Sprintf("Cover %d", e.Row.Index)
		}
		tiles[i] = render.NewTile(e.Row.Link, e.Cover.Src, alt)
	}
	return render.Page{Title: title, Tiles: tiles, Source: l.Source.Location}
}

// Report summarizes a check run.
type Report struct {
	Source source.Source    `json:"source" yaml:"source"`
	Rows   int              `json:"rows" yaml:"rows"`
	Issues []validate.Issue `json:"issues" yaml:"issues"`
}

// OK reports whether the listing has no issues.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Service builds listings. Every call recomputes from the source.
type Service struct {
	Loader    *source.Loader
	Validator *validate.Validator
	Title     string

	cacheDB *cache.CacheDB
}

// Build loads the configured spreadsheet and validates it. Errors are a
// *errors.SourceError when no source worked, or a *validate.Error when rows
// are invalid.
func (s *Service) Build(ctx context.Context) (Listing, error) {
	table, err := s.Loader.Load(ctx)
	if err != nil {
		return Listing{}, err
	}
	return s.validate(ctx, table)
}

// BuildFromUpload runs the pipeline on a user-supplied file.
func (s *Service) BuildFromUpload(ctx context.Context, name string, data []byte) (Listing, error) {
	table, err := source.FromUpload(name, data)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to read uploaded spreadsheet %s: %w", name, err)
	}
	return s.validate(ctx, table)
}

// Check loads and validates, reporting issues instead of failing on them.
func (s *Service) Check(ctx context.Context) (Report, error) {
	table, err := s.Loader.Load(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Source: table.Source, Rows: len(table.Rows)}
	_, err = s.validate(ctx, table)

	var verr *validate.Error
	switch {
	case err == nil:
	case errors.As(err, &verr):
		report.Issues = verr.Issues
	default:
		return report, err
	}
	return report, nil
}

func (s *Service) validate(ctx context.Context, table source.Table) (Listing, error) {
	start := time.Now()
	entries, err := s.Validator.Validate(ctx, table.Source.Location, table.Rows)
	if err != nil {
		return Listing{}, err
	}

	inlined := 0
	for _, e := range entries {
		if e.Cover.IsInline() {
			inlined++
		}
	}

	slog.Info("Listing built", "source", table.Source.Location, "kind", table.Source.Kind,
		"covers", len(entries), "inlined", inlined, "duration", time.Since(start))
	return Listing{Source: table.Source, Entries: entries}, nil
}

// Close releases the probe cache, if one was opened.
func (s *Service) Close() error {
	if s.cacheDB == nil {
		return nil
	}
	return s.cacheDB.Close()
}

// New wires a Service from settings. provider may be nil.
func New(settings config.Settings, provider source.Provider) (*Service, error) {
	client, err := httpclient.New(settings.HTTPTimeout, settings.HTTPProxy)
	if err != nil {
		return nil, err
	}

	loader := source.NewLoader(client, source.Options{
		URL:         settings.ListingURL,
		FallbackURL: settings.FallbackURL,
		LocalPaths:  settings.LocalPaths,
		TTL:         settings.ListingTTL,
		Provider:    provider,
	})

	imageDir := settings.ImageDir
	if imageDir == "" {
		imageDir = cover.DefaultImageDir
	}

	svc := &Service{
		Loader: loader,
		Validator: &validate.Validator{
			Resolver: &cover.Resolver{Root: settings.ImageRoot, ThumbWidth: settings.ThumbWidth},
			ImageDir: imageDir,
		},
		Title: settings.PageTitle,
	}

	if settings.VerifyCovers {
		if settings.CacheDB != "" {
			db, err := cache.Open(filepath.Clean(settings.CacheDB))
			if err != nil {
				slog.Warn("Probe cache unavailable, probing without cache", "path", settings.CacheDB, "error", err)
			} else {
				svc.cacheDB = db
			}
		}
		svc.Validator.Prober = probe.New(client,
			probe.WithCache(svc.cacheDB, settings.ProbeTTL),
			probe.WithRate(settings.ProbeRate),
		)
	}

	return svc, nil
}

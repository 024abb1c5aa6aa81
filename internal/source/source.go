// Package source loads the listing spreadsheet from the first location in
// the fallback chain that yields a parsable table.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lepinkainen/ebookgrid/internal/cache"
	apperrors "github.com/lepinkainen/ebookgrid/internal/errors"
	"github.com/lepinkainen/ebookgrid/internal/httpclient"
	"github.com/lepinkainen/ebookgrid/internal/sheet"
)

// DefaultURL is used when no listing URL is configured.
const DefaultURL = "https://raw.githubusercontent.com/SEU_USER/SEU_REPO/main/listagem.xlsx"

// DefaultTTL is how long a fetched remote table is reused.
const DefaultTTL = 5 * time.Minute

// MaxBytes caps a downloaded or uploaded spreadsheet.
const MaxBytes = 32 << 20

// Kind says where a table came from.
type Kind string

const (
	Remote Kind = "remote"
	Local  Kind = "local"
	Upload Kind = "upload"
)

// Source identifies the origin of a table.
type Source struct {
	Kind     Kind   `json:"kind" yaml:"kind"`
	Location string `json:"location" yaml:"location"`
}

func (s Source) String() string {
	return s.Location
}

// Table is a parsed listing and where it came from.
type Table struct {
	Source Source
	Rows   []sheet.Row
}

// Provider supplies a spreadsheet interactively once every configured
// location has failed.
type Provider interface {
	Provide(ctx context.Context) (name string, data []byte, err error)
}

// Options configures a Loader.
type Options struct {
	// URL is the primary remote location. Empty means DefaultURL.
	URL string
	// FallbackURL overrides the derived alternate form of URL.
	FallbackURL string
	// LocalPaths are tried before any remote location.
	LocalPaths []string
	// TTL for remote tables; <= 0 disables the table cache.
	TTL time.Duration
	// Provider is the last resort. Optional.
	Provider Provider
}

// Loader walks the source fallback chain.
type Loader struct {
	client   httpclient.Doer
	opts     Options
	tables   *cache.TTL[Table]
	provider Provider
}

// NewLoader creates a Loader fetching remote locations with client.
func NewLoader(client httpclient.Doer, opts Options) *Loader {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	return &Loader{
		client:   client,
		opts:     opts,
		tables:   cache.NewTTL[Table](opts.TTL),
		provider: opts.Provider,
	}
}

// Candidates lists the configured locations in the order they are tried.
// The interactive provider is not included.
func (l *Loader) Candidates() []Source {
	var out []Source
	for _, p := range l.opts.LocalPaths {
		if p != "" {
			out = append(out, Source{Kind: Local, Location: p})
		}
	}
	out = append(out, locationSource(l.opts.URL))

	alt := l.opts.FallbackURL
	if alt == "" {
		alt = AlternateURL(l.opts.URL)
	}
	if alt != "" && alt != l.opts.URL {
		out = append(out, locationSource(alt))
	}
	return out
}

// locationSource treats anything that is not an http(s) URL as a local path.
func locationSource(loc string) Source {
	lower := strings.ToLower(loc)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Source{Kind: Remote, Location: loc}
	}
	return Source{Kind: Local, Location: loc}
}

// Load returns the first table any candidate yields. When all fail, the
// returned error is a *errors.SourceError listing every attempt.
func (l *Loader) Load(ctx context.Context) (Table, error) {
	var attempts []apperrors.Attempt

	for _, src := range l.Candidates() {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}

		table, err := l.loadOne(ctx, src)
		if err == nil {
			if len(attempts) > 0 {
				slog.Info("Loaded spreadsheet from fallback source", "source", src.Location, "failed_attempts", len(attempts))
			}
			return table, nil
		}

		slog.Warn("Spreadsheet source failed", "kind", src.Kind, "source", src.Location, "error", err)
		attempts = append(attempts, apperrors.Attempt{Kind: string(src.Kind), Location: src.Location, Err: err})
	}

	if l.provider != nil {
		name, data, err := l.provider.Provide(ctx)
		if err == nil {
			table, parseErr := FromUpload(name, data)
			if parseErr == nil {
				return table, nil
			}
			err = parseErr
		}
		if name == "" {
			name = "interactive"
		}
		slog.Warn("Spreadsheet source failed", "kind", Upload, "source", name, "error", err)
		attempts = append(attempts, apperrors.Attempt{Kind: string(Upload), Location: name, Err: err})
	}

	return Table{}, &apperrors.SourceError{Attempts: attempts}
}

// FromUpload parses a user-supplied spreadsheet.
func FromUpload(name string, data []byte) (Table, error) {
	if len(data) > MaxBytes {
		return Table{}, fmt.Errorf("%s exceeds %d bytes", name, MaxBytes)
	}
	rows, err := sheet.Parse(data, name)
	if err != nil {
		return Table{}, err
	}
	return Table{Source: Source{Kind: Upload, Location: name}, Rows: rows}, nil
}

func (l *Loader) loadOne(ctx context.Context, src Source) (Table, error) {
	switch src.Kind {
	case Local:
		return loadLocal(src)
	case Remote:
		table, hit, err := l.tables.GetOrFetch(src.Location, func() (Table, error) {
			return l.loadRemote(ctx, src)
		})
		if hit {
			expiresAt, _ := l.tables.ExpiresAt(src.Location)
			slog.Debug("Using cached spreadsheet", "source", src.Location, "expires_at", expiresAt)
		}
		return table, err
	default:
		return Table{}, fmt.Errorf("unsupported source kind %q", src.Kind)
	}
}

func loadLocal(src Source) (Table, error) {
	info, err := os.Stat(src.Location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, errors.New("file not found")
		}
		return Table{}, err
	}
	if info.IsDir() {
		return Table{}, errors.New("is a directory")
	}
	if info.Size() > MaxBytes {
		return Table{}, fmt.Errorf("file exceeds %d bytes", MaxBytes)
	}

	data, err := os.ReadFile(src.Location)
	if err != nil {
		return Table{}, err
	}
	rows, err := sheet.Parse(data, filepath.Base(src.Location))
	if err != nil {
		return Table{}, err
	}
	return Table{Source: src, Rows: rows}, nil
}

var (
	rawGitHubRe  = regexp.MustCompile(`^https?://raw\.githubusercontent\.com/([^/]+)/([^/]+)/([^?#]+)$`)
	blobGitHubRe = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/]+)/([^/]+)/blob/([^?#]+?)(?:\?raw=true)?$`)
)

// AlternateURL derives the other download form of a GitHub-hosted file:
// raw.githubusercontent.com <-> github.com/.../blob/...?raw=true.
// It returns "" for URLs that have no known alternate.
func AlternateURL(u string) string {
	if m := rawGitHubRe.FindStringSubmatch(u); m != nil {
		return fmt.Sprintf("https://github.com/%s/%s/blob/%s?raw=true", m[1], m[2], m[3])
	}
	if m := blobGitHubRe.FindStringSubmatch(u); m != nil {
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
	}
	return ""
}

// Package validate checks that every listing row can be rendered.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/ebookgrid/internal/cover"
	"github.com/lepinkainen/ebookgrid/internal/probe"
	"github.com/lepinkainen/ebookgrid/internal/sheet"
)

// IssueKind classifies a row problem.
type IssueKind string

const (
	EmptyLink        IssueKind = "empty_link"
	MissingCover     IssueKind = "missing_cover"
	UnreachableCover IssueKind = "unreachable_cover"
)

// Issue is one problem found on one row.
type Issue struct {
	Row    int       `json:"row" yaml:"row"`
	Kind   IssueKind `json:"kind" yaml:"kind"`
	Cover  string    `json:"cover,omitempty" yaml:"cover,omitempty"`
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case EmptyLink:
		return fmt.Sprintf("row %d: empty link", i.Row)
	case MissingCover:
		return fmt.Sprintf("row %d: missing cover '%s'", i.Row, i.Cover)
	case UnreachableCover:
		return fmt.Sprintf("row %d: unreachable cover '%s': %s", i.Row, i.Cover, i.Detail)
	default:
		return fmt.Sprintf("row %d: %s", i.Row, i.Detail)
	}
}

// Error carries every issue found in a listing together with the source
// location the listing was loaded from.
type Error struct {
	Source string
	Issues []Issue
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return fmt.Sprintf("%d invalid row(s) in %s: %s", len(e.Issues), e.Source, strings.Join(lines, "; "))
}

// Prober checks a cover URL.
type Prober interface {
	Probe(ctx context.Context, url string) (probe.Result, error)
}

// Entry is a validated row with its resolved cover.
type Entry struct {
	Row   sheet.Row
	Cover cover.Resolved
}

// Validator resolves covers and checks rows.
type Validator struct {
	Resolver *cover.Resolver
	ImageDir string
	// Prober is consulted for URL covers when non-nil.
	Prober Prober
}

// Validate resolves every row. It returns all entries when the listing is
// clean, otherwise a *Error listing every issue. A non-*Error error means
// ctx ended while probing.
func (v *Validator) Validate(ctx context.Context, source string, rows []sheet.Row) ([]Entry, error) {
	entries := make([]Entry, 0, len(rows))
	var issues []Issue

	for _, row := range rows {
		if cover.IsPlaceholder(row.Link) {
			issues = append(issues, Issue{Row: row.Index, Kind: EmptyLink})
		}

		resolved := v.Resolver.Resolve(cover.Classify(row.Cover, v.ImageDir))
		if !resolved.OK() {
			issues = append(issues, Issue{Row: row.Index, Kind: MissingCover, Cover: row.Cover, Detail: resolved.Reason})
			continue
		}

		if v.Prober != nil && resolved.Ref.Kind == cover.URL {
			result, err := v.Prober.Probe(ctx, resolved.Src)
			if err != nil {
				return nil, fmt.Errorf("probe cover on row %d: %w", row.Index, err)
			}
			if !result.OK {
				issues = append(issues, Issue{Row: row.Index, Kind: UnreachableCover, Cover: resolved.Src, Detail: result.Reason})
				continue
			}
		}

		entries = append(entries, Entry{Row: row, Cover: resolved})
	}

	if len(issues) > 0 {
		return nil, &Error{Source: source, Issues: issues}
	}
	return entries, nil
}

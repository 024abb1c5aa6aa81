package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/lepinkainen/ebookgrid/internal/errors"
	"github.com/lepinkainen/ebookgrid/internal/sheet"
)

func (l *Loader) loadRemote(ctx context.Context, src Source) (Table, error) {
	data, err := l.fetch(ctx, src.Location)
	if err != nil {
		return Table{}, err
	}

	rows, err := sheet.Parse(data, src.Location)
	if errors.Is(err, sheet.ErrHTMLDocument) {
		link, ok := findRawLink(data, src.Location)
		if !ok {
			return Table{}, fmt.Errorf("%w and has no raw download link", err)
		}

		slog.Info("Source returned a web page, following raw download link", "source", src.Location, "link", link)
		data, err = l.fetch(ctx, link)
		if err != nil {
			return Table{}, fmt.Errorf("raw download link %s: %w", link, err)
		}
		rows, err = sheet.Parse(data, link)
	}
	if err != nil {
		return Table{}, err
	}

	return Table{Source: src, Rows: rows}, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewHTTPStatusError(rawURL, resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxBytes)
	}
	return data, nil
}

// findRawLink looks for the direct download link on a file viewer page.
func findRawLink(page []byte, pageURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !isRawLink(s, href) {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		if resolved.String() == pageURL {
			return true
		}
		found = resolved.String()
		return false
	})

	return found, found != ""
}

func isRawLink(s *goquery.Selection, href string) bool {
	if id, _ := s.Attr("id"); id == "raw-url" {
		return true
	}
	if testID, _ := s.Attr("data-testid"); testID == "raw-button" {
		return true
	}
	if _, ok := s.Attr("download"); ok {
		return true
	}

	text := strings.ToLower(strings.TrimSpace(s.Text()))
	if text == "raw" || text == "download raw file" {
		return true
	}

	lower := strings.ToLower(href)
	return strings.Contains(lower, "raw.githubusercontent.com/") || strings.Contains(lower, "?raw=true")
}

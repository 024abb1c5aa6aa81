package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/ebookgrid/internal/config"
	"github.com/lepinkainen/ebookgrid/internal/fileutil"
	"github.com/lepinkainen/ebookgrid/internal/render"
	"github.com/lepinkainen/ebookgrid/internal/server"
	"github.com/lepinkainen/ebookgrid/internal/shelf"
	"github.com/lepinkainen/ebookgrid/internal/source"
	"github.com/lepinkainen/ebookgrid/internal/tui"
	"github.com/lepinkainen/ebookgrid/internal/validate"
)

var stdout io.Writer = os.Stdout

// ServeCmd represents the serve command
type ServeCmd struct {
	Addr string `help:"Listen address (defaults to server.addr)"`
}

// RenderCmd represents the render command
type RenderCmd struct {
	Output      string `short:"o" help:"Output HTML file" default:"index.html"`
	Overwrite   bool   `help:"Overwrite the output file if it exists"`
	Interactive bool   `help:"Pick a local spreadsheet in the terminal when every source fails"`
}

// CheckCmd represents the check command
type CheckCmd struct {
	Format string `help:"Report format" enum:"text,yaml,json" default:"text"`
}

func (s *ServeCmd) Run(ctx context.Context) error {
	settings := config.Load()
	if s.Addr != "" {
		settings.ServerAddr = s.Addr
	}

	svc, err := newService(settings, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	handler := server.NewHandler(svc, settings.PageTitle)
	return runServer(ctx, settings.ServerAddr, server.NewRouter(handler))
}

func (r *RenderCmd) Run(ctx context.Context) error {
	settings := config.Load()

	var provider source.Provider
	if r.Interactive {
		provider = tui.FilePicker{Dir: "."}
	}

	svc, err := newService(settings, provider)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	listing, err := svc.Build(ctx)
	if err != nil {
		logIssues(err)
		return err
	}

	page, err := render.GridBytes(listing.Page(settings.PageTitle))
	if err != nil {
		return err
	}

	written, err := fileutil.WriteFileWithOverwrite(r.Output, page, 0644, r.Overwrite || config.OverwriteFiles)
	if err != nil {
		return err
	}
	if !written {
		return fmt.Errorf("%s already exists (use --overwrite to replace it)", r.Output)
	}

	slog.Info("Cover grid written", "file", r.Output, "covers", len(listing.Entries), "source", listing.Source.Location)
	return nil
}

func (c *CheckCmd) Run(ctx context.Context) error {
	svc, err := newService(config.Load(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	report, err := svc.Check(ctx)
	if err != nil {
		return err
	}

	if err := writeReport(stdout, report, c.Format); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%d issue(s) found in %s", len(report.Issues), report.Source.Location)
	}
	return nil
}

func writeReport(w io.Writer, report shelf.Report, format string) error {
	if report.Issues == nil {
		report.Issues = []validate.Issue{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		if _, err := fmt.Fprintf(w, "Source: %s (%s)\nRows: %d\n", report.Source.Location, report.Source.Kind, report.Rows); err != nil {
			return err
		}
		if report.OK() {
			_, err := fmt.Fprintln(w, "OK")
			return err
		}
		for _, issue := range report.Issues {
			if _, err := fmt.Fprintln(w, issue.String()); err != nil {
				return err
			}
		}
		return nil
	}
}

func logIssues(err error) {
	var verr *validate.Error
	if !errors.As(err, &verr) {
		return
	}
	for _, issue := range verr.Issues {
		slog.Warn("Invalid row", "row", issue.Row, "issue", issue.String())
	}
}

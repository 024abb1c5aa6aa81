// Package server exposes the cover grid over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/lepinkainen/ebookgrid/internal/errors"
	"github.com/lepinkainen/ebookgrid/internal/render"
	"github.com/lepinkainen/ebookgrid/internal/shelf"
	"github.com/lepinkainen/ebookgrid/internal/source"
	"github.com/lepinkainen/ebookgrid/internal/validate"
)

const uploadField = "sheet"

// maxUploadBytes caps the whole multipart body: the spreadsheet plus room for
// the form envelope.
var maxUploadBytes int64 = source.MaxBytes + 1<<20

// Builder produces listings. *shelf.Service implements it.
type Builder interface {
	Build(ctx context.Context) (shelf.Listing, error)
	BuildFromUpload(ctx context.Context, name string, data []byte) (shelf.Listing, error)
}

// Handler serves the grid page and the upload fallback.
type Handler struct {
	Builder Builder
	Title   string
}

// NewHandler creates a Handler.
func NewHandler(b Builder, title string) *Handler {
	return &Handler{Builder: b, Title: title}
}

// RegisterRoutes mounts the page routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.index)
	r.POST("/upload", h.upload)
	r.GET("/healthz", h.health)
}

// NewRouter builds the engine with the request id, logging and recovery
// middleware.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = source.MaxBytes
	_ = router.SetTrustedProxies(nil)
	router.Use(RequestID(), RequestLogger(), gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) index(c *gin.Context) {
	listing, err := h.Builder.Build(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.renderGrid(c, listing)
}

func (h *Handler) upload(c *gin.Context) {
	if c.Request.ContentLength > maxUploadBytes {
		h.uploadTooLarge(c, "The upload")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fh, err := c.FormFile(uploadField)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.uploadTooLarge(c, "The upload")
		return
	}
	if err != nil {
		h.writeError(c, http.StatusBadRequest, render.ErrorPage{
			Headline: "No spreadsheet uploaded",
			Message:  fmt.Sprintf("Choose a file for the %q field.", uploadField),
			Upload:   true,
		})
		return
	}
	if fh.Size > source.MaxBytes {
		h.uploadTooLarge(c, fh.Filename)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.renderError(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, source.MaxBytes))
	if err != nil {
		h.renderError(c, err)
		return
	}

	listing, err := h.Builder.BuildFromUpload(c.Request.Context(), fh.Filename, data)
	if err != nil {
		var verr *validate.Error
		if !errors.As(err, &verr) && c.Request.Context().Err() == nil {
			h.writeError(c, http.StatusBadRequest, render.ErrorPage{
				Headline: "Could not read the uploaded spreadsheet",
				Message:  err.Error(),
				Upload:   true,
			})
			return
		}
		h.renderError(c, err)
		return
	}
	h.renderGrid(c, listing)
}

func (h *Handler) uploadTooLarge(c *gin.Context, what string) {
	h.writeError(c, http.StatusRequestEntityTooLarge, render.ErrorPage{
		Headline: "Spreadsheet too large",
		Message:  fmt.Sprintf("%s is larger than %d MiB.", what, source.MaxBytes>>20),
		Upload:   true,
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) renderGrid(c *gin.Context, listing shelf.Listing) {
	var buf bytes.Buffer
	if err := render.Grid(&buf, listing.Page(h.Title)); err != nil {
		slog.Error("Failed to render grid", "error", err)
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// renderError maps pipeline errors to status codes and error pages.
func (h *Handler) renderError(c *gin.Context, err error) {
	var verr *validate.Error
	var srcErr *apperrors.SourceError

	switch {
	case errors.As(err, &verr):
		issues := make([]string, len(verr.Issues))
		for i, issue := range verr.Issues {
			issues[i] = issue.String()
		}
		slog.Warn("Listing has invalid rows", "source", verr.Source, "issues", len(issues))
		h.writeError(c, http.StatusUnprocessableEntity, render.ErrorPage{
			Headline: "The spreadsheet has invalid rows",
			Issues:   issues,
			Source:   verr.Source,
		})
	case errors.As(err, &srcErr):
		attempts := make([]string, len(srcErr.Attempts))
		for i, a := range srcErr.Attempts {
			attempts[i] = a.String()
		}
		h.writeError(c, http.StatusBadGateway, render.ErrorPage{
			Headline: "Could not load the spreadsheet",
			Message:  "Every configured source failed. Upload the spreadsheet to continue.",
			Issues:   attempts,
			Source:   srcErr.LastLocation(),
			Upload:   true,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(c, http.StatusGatewayTimeout, render.ErrorPage{
			Headline: "Request cancelled",
			Message:  err.Error(),
		})
	default:
		slog.Error("Listing build failed", "error", err)
		h.writeError(c, http.StatusInternalServerError, render.ErrorPage{
			Headline: "Something went wrong",
			Message:  err.Error(),
		})
	}
}

func (h *Handler) writeError(c *gin.Context, status int, page render.ErrorPage) {
	page.Title = h.Title

	var buf bytes.Buffer
	if err := render.Error(&buf, page); err != nil {
		slog.Error("Failed to render error page", "error", err)
		c.String(status, page.Headline)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

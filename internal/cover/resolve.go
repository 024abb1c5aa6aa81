package cover

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/lepinkainen/ebookgrid/internal/fileutil"
)

// ProbeExtensions are tried, in order, when a local cover file is not found
// under its exact name.
var ProbeExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".PNG", ".JPG", ".JPEG", ".WEBP"}

// Resolved is the renderable form of a Reference.
type Resolved struct {
	Ref Reference
	// Src is a URL or a data: URI; empty when unresolved.
	Src string
	// Path is the image-root relative path of the local file that was used.
	Path string
	// Reason explains why Src is empty.
	Reason string
}

// OK reports whether the cover resolved to something renderable.
func (r Resolved) OK() bool {
	return r.Src != ""
}

// IsInline reports whether Src is an inlined data payload.
func (r Resolved) IsInline() bool {
	return strings.HasPrefix(r.Src, "data:")
}

// Resolver turns references into image sources, reading local files from Root.
type Resolver struct {
	// Root is the directory local cover paths are relative to.
	Root string
	// ThumbWidth downsizes wider local images before inlining; 0 keeps originals.
	ThumbWidth int
}

// Resolve produces the image source for ref. It never fabricates a
// placeholder: anything it cannot read comes back with an empty Src.
func (r *Resolver) Resolve(ref Reference) Resolved {
	switch ref.Kind {
	case URL:
		return Resolved{Ref: ref, Src: ref.Value}
	case LocalPath:
		return r.resolveLocal(ref)
	default:
		return Resolved{Ref: ref, Reason: "empty cover reference"}
	}
}

func (r *Resolver) resolveLocal(ref Reference) Resolved {
	rel, full, ok := r.locate(ref.Value)
	if !ok {
		return Resolved{Ref: ref, Reason: fmt.Sprintf("file %s not found", ref.Value)}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return Resolved{Ref: ref, Path: rel, Reason: fmt.Sprintf("failed to read %s: %v", rel, err)}
	}

	mime := mimetype.Detect(data).String()
	if !strings.HasPrefix(mime, "image/") {
		return Resolved{Ref: ref, Path: rel, Reason: fmt.Sprintf("%s is %s, not an image", rel, mime)}
	}

	data, mime = r.thumbnail(data, mime, rel)
	return Resolved{Ref: ref, Src: DataURI(mime, data), Path: rel}
}

// locate finds the file for a relative reference: exact name first, then the
// same stem with each of ProbeExtensions.
func (r *Resolver) locate(rel string) (string, string, bool) {
	root := r.Root
	if root == "" {
		root = "."
	}

	rel = path.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", "", false
	}

	if full := filepath.Join(root, filepath.FromSlash(rel)); fileutil.FileExists(full) {
		return rel, full, true
	}

	dir, base := path.Split(rel)
	stem := base
	if isImageExt(path.Ext(base)) {
		stem = strings.TrimSuffix(base, path.Ext(base))
	}

	for _, ext := range ProbeExtensions {
		candidate := dir + stem + ext
		if candidate == rel {
			continue
		}
		if full := filepath.Join(root, filepath.FromSlash(candidate)); fileutil.FileExists(full) {
			slog.Debug("Resolved cover by extension probe", "reference", rel, "file", candidate)
			return candidate, full, true
		}
	}
	return "", "", false
}

func isImageExt(ext string) bool {
	for _, e := range ProbeExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// thumbnail downsizes images wider than ThumbWidth. Formats imaging cannot
// decode (WebP among them) are returned untouched.
func (r *Resolver) thumbnail(data []byte, mime, rel string) ([]byte, string) {
	if r.ThumbWidth <= 0 {
		return data, mime
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= r.ThumbWidth {
		return data, mime
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		slog.Debug("Cover not decodable, inlining original", "file", rel, "error", err)
		return data, mime
	}

	resized := imaging.Resize(img, r.ThumbWidth, 0, imaging.Lanczos)

	outFormat, outMime := imaging.PNG, "image/png"
	if format == "jpeg" {
		outFormat, outMime = imaging.JPEG, "image/jpeg"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, outFormat, imaging.JPEGQuality(85)); err != nil {
		slog.Warn("Failed to encode cover thumbnail, inlining original", "file", rel, "error", err)
		return data, mime
	}

	slog.Debug("Cover thumbnail created", "file", rel, "from_width", cfg.Width, "to_width", r.ThumbWidth)
	return buf.Bytes(), outMime
}

// DataURI encodes data as a base64 data: URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

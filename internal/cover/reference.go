// Package cover turns the free-form cover cell of the listing spreadsheet
// into an image source the page can render.
package cover

import (
	"path"
	"regexp"
	"strings"
)

// DefaultImageDir is the conventional folder, relative to the image root,
// that holds local cover files.
const DefaultImageDir = "img"

// Kind is the closed set of cover reference variants.
type Kind int

const (
	// Unresolved means the cell holds nothing usable.
	Unresolved Kind = iota
	// URL is an absolute http(s) image address.
	URL
	// LocalPath is a forward-slash path relative to the image root.
	LocalPath
)

func (k Kind) String() string {
	switch k {
	case URL:
		return "url"
	case LocalPath:
		return "local"
	default:
		return "unresolved"
	}
}

// Reference is a classified cover cell.
type Reference struct {
	Kind  Kind
	Value string
	// Raw is the trimmed cell text the reference was derived from.
	Raw string
}

var placeholders = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
}

// IsPlaceholder reports whether a spreadsheet cell is empty or holds one of
// the textual null markers spreadsheet exports leave behind.
func IsPlaceholder(cell string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(cell))]
}

var (
	// github.com/<owner>/<repo>/blob/<ref>/<path>, also the /raw/ variant
	githubBlobRe   = regexp.MustCompile(`^(?i:https?://(?:www\.)?github\.com)/([^/]+)/([^/]+)/(?:blob|raw)/([^?#]+)`)
	// <gitlab host>/<group>/<project>/-/blob/<ref>/<path>, self-hosted too
	gitlabBlobRe   = regexp.MustCompile(`^(https?://[^/?#]+/[^?#]+?)/-/blob/([^?#]+)`)
	// bitbucket.org/<owner>/<repo>/src/<ref>/<path>
	bitbucketSrcRe = regexp.MustCompile(`^(?i:https?://(?:www\.)?bitbucket\.org)/([^/]+)/([^/]+)/src/([^?#]+)`)
	driveRe        = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

// Classify maps a raw cover cell to a Reference. Local paths are placed
// under imageDir; absolute paths keep only their file name.
func Classify(raw, imageDir string) Reference {
	raw = strings.TrimSpace(raw)
	if IsPlaceholder(raw) {
		return Reference{Kind: Unresolved, Raw: raw}
	}

	if hasHTTPPrefix(raw) {
		return Reference{Kind: URL, Value: NormalizeURL(raw), Raw: raw}
	}

	if isAbsolutePath(raw) {
		base := baseName(raw)
		if base == "" {
			return Reference{Kind: Unresolved, Raw: raw}
		}
		return Reference{Kind: LocalPath, Value: joinImageDir(imageDir, base), Raw: raw}
	}

	rel := strings.ReplaceAll(raw, `\`, "/")
	rel = strings.TrimPrefix(rel, "./")
	rel = path.Clean(rel)
	if rel == "." || rel == "" {
		return Reference{Kind: Unresolved, Raw: raw}
	}

	imageDir = strings.Trim(imageDir, "/")
	if imageDir != "" && (rel == imageDir || strings.HasPrefix(rel, imageDir+"/")) {
		return Reference{Kind: LocalPath, Value: rel, Raw: raw}
	}
	return Reference{Kind: LocalPath, Value: joinImageDir(imageDir, rel), Raw: raw}
}

// NormalizeURL rewrites GitHub, GitLab and Bitbucket file viewer URLs to their
// raw-content form and percent-encodes literal spaces. Applying it twice
// yields the same string.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if m := githubBlobRe.FindStringSubmatch(u); m != nil {
		u = "https://raw.githubusercontent.com/" + m[1] + "/" + m[2] + "/" + m[3]
	} else if m := gitlabBlobRe.FindStringSubmatch(u); m != nil {
		u = m[1] + "/-/raw/" + m[2]
	} else if m := bitbucketSrcRe.FindStringSubmatch(u); m != nil {
		u = "https://bitbucket.org/" + m[1] + "/" + m[2] + "/raw/" + m[3]
	}
	return strings.ReplaceAll(u, " ", "%20")
}

func hasHTTPPrefix(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isAbsolutePath(s string) bool {
	return driveRe.MatchString(s) || strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`)
}

// baseName splits on both separators so Windows paths work on any OS.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func joinImageDir(imageDir, rel string) string {
	imageDir = strings.Trim(imageDir, "/")
	if imageDir == "" {
		return rel
	}
	return imageDir + "/" + rel
}

// Package acquire turns a video reference (direct URL, page URL, or
// local path) into a local media file inside the session workspace.
// Two remote strategies exist: a plain HTTP fetch and a browser
// automation path for pages that assemble their player in JS. The
// strategy choice is a pure function of the request; the direct fetch
// falls back to the browser exactly once when its result looks like an
// auth-rejection payload instead of real media.
package acquire

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

// Kind discriminates the request union.
type Kind int

const (
	KindDirectURL Kind = iota
	KindPageURL
	KindLocalPath
)

func (k Kind) String() string {
	switch k {
	case KindDirectURL:
		return "direct-url"
	case KindPageURL:
		return "page-url"
	case KindLocalPath:
		return "local-path"
	default:
		return "unknown"
	}
}

// Request identifies the clip to acquire. Exactly one variant is set.
type Request struct {
	Kind  Kind
	Value string
}

// DirectURL builds a request for a URL believed to point at raw media.
func DirectURL(u string) Request { return Request{Kind: KindDirectURL, Value: u} }

// PageURL builds a request for a page that embeds the media.
func PageURL(u string) Request { return Request{Kind: KindPageURL, Value: u} }

// LocalPath builds a request for a file already on disk.
func LocalPath(p string) Request { return Request{Kind: KindLocalPath, Value: p} }

// InferRequest classifies a bare source string the way a user means
// it: URLs with a media extension are direct, other URLs are pages,
// everything else is a local path.
func InferRequest(source string) Request {
	if strings.Contains(source, "://") {
		if videoExts[extFromURL(source)] {
			return DirectURL(source)
		}
		return PageURL(source)
	}
	return LocalPath(source)
}

// Validate checks the single-variant invariant and basic shape.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("acquire: empty %s request", r.Kind)
	}
	switch r.Kind {
	case KindDirectURL, KindPageURL:
		u, err := url.Parse(r.Value)
		if err != nil {
			return fmt.Errorf("acquire: parsing URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("acquire: unsupported URL scheme %q", u.Scheme)
		}
	case KindLocalPath:
	default:
		return fmt.Errorf("acquire: unknown request kind %d", r.Kind)
	}
	return nil
}

// Asset is the acquired clip on disk.
type Asset struct {
	Path string
	Size int64
	MIME string
}

// PathFor maps a media extension (".mp4", ".gif", …) to the destination
// path inside the workspace.
type PathFor func(ext string) string

var (
	// ErrNoVideoFound means neither the network observer nor the DOM
	// query produced a media URL for a page.
	ErrNoVideoFound = errors.New("no video reference found on page")

	// ErrAuthRejected means the server answered with an auth-rejection
	// payload instead of media. For a direct fetch this triggers the
	// one-shot browser fallback.
	ErrAuthRejected = errors.New("request rejected (authentication required)")
)

// videoExts are the media extensions the pipeline accepts.
var videoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".m4v":  true,
	".avi":  true,
	".gif":  true,
}

// isVideoLike reports whether a URL/MIME pair plausibly identifies a clip.
func isVideoLike(rawURL, mimeType string) bool {
	mt := strings.ToLower(mimeType)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	if strings.HasPrefix(mt, "video/") || mt == "image/gif" {
		return true
	}
	return videoExts[extFromURL(rawURL)]
}

// extFromURL extracts a lowercase media extension from a URL path,
// ignoring query strings. Returns "" when there is none.
func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// chooseExt picks the on-disk extension for an asset, preferring the
// URL's own extension and falling back to the MIME type.
func chooseExt(rawURL, mimeType string) string {
	if ext := extFromURL(rawURL); videoExts[ext] {
		return ext
	}
	mt := strings.ToLower(mimeType)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	if mt == "image/gif" {
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".mp4"
}

package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// scanPageForVideo fetches a page and statically scans its HTML for a
// <video src> or nested <source src>. Pages that build their player in
// JS come back empty; the browser strategy handles those.
func scanPageForVideo(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching page %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing page HTML: %w", err)
	}

	src := findVideoSrc(doc)
	if src == "" {
		return "", nil
	}
	return resolveURL(pageURL, src), nil
}

// findVideoSrc walks the parsed document for the first usable video source.
func findVideoSrc(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "video" {
		if src := attr(n, "src"); src != "" {
			return src
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "source" {
				if src := attr(c, "src"); src != "" {
					return src
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if src := findVideoSrc(c); src != "" {
			return src
		}
	}
	return ""
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// resolveURL makes a possibly-relative media src absolute against the page.
func resolveURL(pageURL, src string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

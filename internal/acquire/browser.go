package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// navigationTimeout bounds a single page load.
const navigationTimeout = 30 * time.Second

// settleDelay gives JS players a moment to attach their media source
// after the load event.
const settleDelay = 2 * time.Second

// BrowserStrategy acquires media through a headless browser: it loads
// the page, watches CDP network responses for video-like URLs, and
// independently asks the DOM's <video> element for its source. The
// network-observed URL wins; the DOM one is the fallback.
type BrowserStrategy struct {
	// ControlURL connects to an already-running Chrome instead of
	// launching one. Used by tests and remote setups.
	ControlURL string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewBrowserStrategy creates the browser-automation strategy.
func NewBrowserStrategy() *BrowserStrategy {
	return &BrowserStrategy{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
}

func (s *BrowserStrategy) Name() string { return "browser" }

// Fetch resolves the page to a media URL and downloads it.
func (s *BrowserStrategy) Fetch(ctx context.Context, req Request, dst PathFor) (*Asset, error) {
	mediaURL, err := s.resolveMediaURL(ctx, req.Value)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("browser: resolved media URL", "page", req.Value, "media", mediaURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", mediaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: unexpected status %d", mediaURL, resp.StatusCode)
	}

	mimeType := resp.Header.Get("Content-Type")
	dest := dst(chooseExt(mediaURL, mimeType))
	size, err := writeAsset(dest, resp.Body)
	if err != nil {
		return nil, err
	}

	return &Asset{Path: dest, Size: size, MIME: mimeType}, nil
}

// resolveMediaURL loads the page and returns the best media URL found.
func (s *BrowserStrategy) resolveMediaURL(ctx context.Context, pageURL string) (string, error) {
	browser, cleanup, err := s.connect()
	if err != nil {
		return "", err
	}
	defer cleanup()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("browser: create page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()

	// Collect video-like network responses while the page loads.
	var mu sync.Mutex
	var netURLs []string
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return "", fmt.Errorf("browser: enable network domain: %w", err)
	}
	wait := page.Context(navCtx).EachEvent(func(e *proto.NetworkResponseReceived) {
		if isVideoLike(e.Response.URL, e.Response.MIMEType) {
			mu.Lock()
			netURLs = append(netURLs, e.Response.URL)
			mu.Unlock()
		}
	})
	go wait()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	select {
	case <-navCtx.Done():
	case <-time.After(settleDelay):
	}

	// Ask the DOM independently.
	domURL := s.queryVideoElement(navCtx, page)

	mu.Lock()
	defer mu.Unlock()
	return pickMediaURL(netURLs, domURL)
}

// queryVideoElement returns the page's <video> source, or "".
func (s *BrowserStrategy) queryVideoElement(ctx context.Context, page *rod.Page) string {
	res, err := page.Context(ctx).Eval(`() => {
		const v = document.querySelector('video');
		if (!v) return '';
		if (v.currentSrc) return v.currentSrc;
		if (v.src) return v.src;
		const s = v.querySelector('source');
		return (s && s.src) || '';
	}`)
	if err != nil {
		s.logger.Debug("browser: video element query failed", "error", err)
		return ""
	}
	return res.Value.Str()
}

// pickMediaURL prefers the first network-observed URL over the DOM one.
func pickMediaURL(netURLs []string, domURL string) (string, error) {
	if len(netURLs) > 0 {
		return netURLs[0], nil
	}
	if domURL != "" {
		return domURL, nil
	}
	return "", ErrNoVideoFound
}

// connect attaches to ControlURL or launches a local headless Chrome.
func (s *BrowserStrategy) connect() (*rod.Browser, func(), error) {
	if s.ControlURL != "" {
		b := rod.New().ControlURL(s.ControlURL)
		if err := b.Connect(); err != nil {
			return nil, nil, fmt.Errorf("browser: connect %s: %w", s.ControlURL, err)
		}
		return b, func() { b.Close() }, nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled")
	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("browser: connect: %w", err)
	}

	cleanup := func() {
		b.Close()
		l.Cleanup()
	}
	return b, cleanup, nil
}

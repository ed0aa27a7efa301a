package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Strategy is one way to turn a request into local bytes.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, req Request, dst PathFor) (*Asset, error)
}

// Acquirer selects a strategy per request and applies the single
// direct→browser fallback. It never retries beyond that.
type Acquirer struct {
	direct  Strategy
	browser Strategy
	local   Strategy

	pageClient *http.Client
	logger     *slog.Logger
}

// New creates an Acquirer with the production strategies.
func New() *Acquirer {
	return NewWithStrategies(NewDirectStrategy(), NewBrowserStrategy(), NewLocalStrategy())
}

// NewWithStrategies wires explicit strategies (tests inject fakes here).
func NewWithStrategies(direct, browser, local Strategy) *Acquirer {
	return &Acquirer{
		direct:     direct,
		browser:    browser,
		local:      local,
		pageClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
}

// selectStrategy is the pure decision function mapping a request to its
// primary strategy.
func (a *Acquirer) selectStrategy(req Request) Strategy {
	switch req.Kind {
	case KindDirectURL:
		return a.direct
	case KindPageURL:
		return a.browser
	default:
		return a.local
	}
}

// Acquire obtains the clip. For a DirectURL whose response is classified
// as an auth rejection, exactly one fallback attempt runs through the
// browser strategy — never a retry loop. For a PageURL, a cheap static
// HTML scan runs first; the browser only launches when the scan finds
// nothing.
func (a *Acquirer) Acquire(ctx context.Context, req Request, dst PathFor) (*Asset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Kind == KindPageURL {
		if asset, ok := a.tryStaticScan(ctx, req, dst); ok {
			return asset, nil
		}
	}

	primary := a.selectStrategy(req)
	asset, err := primary.Fetch(ctx, req, dst)
	if err == nil {
		return asset, nil
	}

	if req.Kind == KindDirectURL && errors.Is(err, ErrAuthRejected) {
		a.logger.Info("acquire: direct fetch rejected, falling back to browser", "url", req.Value)
		asset, fbErr := a.browser.Fetch(ctx, Request{Kind: KindPageURL, Value: req.Value}, dst)
		if fbErr != nil {
			return nil, fmt.Errorf("direct fetch rejected and browser fallback failed: %w", fbErr)
		}
		return asset, nil
	}

	return nil, err
}

// tryStaticScan attempts the no-browser path for a page URL. Any
// failure here is soft: the browser strategy is the authoritative path.
func (a *Acquirer) tryStaticScan(ctx context.Context, req Request, dst PathFor) (*Asset, bool) {
	mediaURL, err := scanPageForVideo(ctx, a.pageClient, req.Value)
	if err != nil || mediaURL == "" {
		if err != nil {
			a.logger.Debug("acquire: static page scan failed", "url", req.Value, "error", err)
		}
		return nil, false
	}

	asset, err := a.direct.Fetch(ctx, Request{Kind: KindDirectURL, Value: mediaURL}, dst)
	if err != nil {
		a.logger.Debug("acquire: statically-scanned URL did not download", "url", mediaURL, "error", err)
		return nil, false
	}

	a.logger.Info("acquire: resolved media via static page scan", "page", req.Value, "media", mediaURL)
	return asset, true
}

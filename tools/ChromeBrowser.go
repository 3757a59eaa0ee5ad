package tools

/*
Shared Chrome session for the marketplace. One logged-in browser context is reused
across listing scrapes and chat turns; each operation runs against a timeout-wrapped
child context.
*/

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"marketbot/config"
)

type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBrowser starts Chrome, applies the session cookies, and verifies the
// logged-in state by loading the marketplace home page.
func NewBrowser(sessionCookies string, headless bool) (*Browser, error) {
	opts := FastFlags(headless)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		ctx: ctx,
		cancel: func() {
			cancel()
			allocCancel()
		},
	}

	if err := b.login(sessionCookies); err != nil {
		b.cancel()
		return nil, err
	}
	return b, nil
}

// login navigates to the site, installs the authentication cookies, and reloads
// so the session applies.
func (b *Browser) login(sessionCookies string) error {
	cookies := parseCookies(sessionCookies)
	if len(cookies) == 0 {
		return fmt.Errorf("no session cookies configured")
	}

	return chromedp.Run(b.ctx,
		// First navigate to the site
		chromedp.Navigate(config.MarketplaceHome),

		// Set the authentication cookies
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(cookies).Do(ctx)
		}),

		// Reload to apply the cookies
		chromedp.Reload(),
		chromedp.WaitReady("body"),
	)
}

// parseCookies splits a "name=value; name=value" string into cookie params for
// the marketplace domain.
func parseCookies(raw string) []*network.CookieParam {
	var out []*network.CookieParam
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		eq := strings.IndexByte(pair, '=')
		if eq <= 0 {
			continue
		}
		out = append(out, &network.CookieParam{
			Name:     pair[:eq],
			Value:    pair[eq+1:],
			Domain:   ".facebook.com",
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
		})
	}
	return out
}

// Reset navigates back to the marketplace home page.
func (b *Browser) Reset() error {
	return chromedp.Run(b.ctx, chromedp.Navigate(config.MarketplaceHome))
}

// GetContext returns the chromedp context.
func (b *Browser) GetContext() context.Context {
	return b.ctx
}

// GetContextWithTimeout returns the chromedp context with a timeout.
// Always resets to the home page when cancel() is called.
func (b *Browser) GetContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	timeoutCtx, cancel := context.WithTimeout(b.ctx, timeout)

	wrappedCancel := func() {
		b.Reset()
		cancel()
	}

	return timeoutCtx, wrappedCancel
}

// Close closes the browser.
func (b *Browser) Close() {
	b.cancel()
}

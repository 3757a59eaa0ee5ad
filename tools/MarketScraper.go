package tools

/*
Scrapes marketplace search results and listing pages, and sends the opening offer
message from a listing page. Everything runs through the shared logged-in browser.
*/

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"marketbot/config"
)

// ListingDetails is what a listing page yields.
type ListingDetails struct {
	Title       string
	Description string
	SellerName  string
	AskingPrice int
	Unavailable bool
}

// CollectListingURLs searches the marketplace for the product and returns
// normalized listing URLs, newest results first.
func CollectListingURLs(b *Browser, product string, limit int) ([]string, error) {
	ctx, cancel := b.GetContextWithTimeout(45 * time.Second)
	defer cancel()

	searchURL := fmt.Sprintf(config.MarketplaceSearchURL, url.QueryEscape(product))

	var hrefs []string
	err := chromedp.Run(ctx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),

		//Scroll a couple of screens to pull more results into the DOM
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(1500*time.Millisecond),

		chromedp.Evaluate(`
			(() => {
				const seen = new Set();
				const out = [];
				for (const a of document.querySelectorAll('a[href*="/marketplace/item/"]')) {
					const m = a.href.match(/\/marketplace\/item\/(\d+)/);
					if (!m || seen.has(m[1])) continue;
					seen.add(m[1]);
					out.push("https://www.facebook.com/marketplace/item/" + m[1]);
				}
				return out;
			})();
		`, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("search scrape failed: %w", err)
	}

	if limit > 0 && len(hrefs) > limit {
		hrefs = hrefs[:limit]
	}
	return hrefs, nil
}

// FetchListing opens a listing page and extracts its details.
func FetchListing(b *Browser, listingURL string) (*ListingDetails, error) {
	ctx, cancel := b.GetContextWithTimeout(30 * time.Second)
	defer cancel()

	var title, price, desc, seller string
	var unavailable bool
	err := chromedp.Run(ctx,
		chromedp.Navigate(listingURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(1500*time.Millisecond),

		chromedp.Evaluate(`
			(() => {
				const t = document.body.innerText.toLowerCase();
				return t.includes("this listing is unavailable") || t.includes("listing isn't available");
			})();
		`, &unavailable),

		chromedp.Evaluate(textOf(config.ListingTitleSelector), &title),
		chromedp.Evaluate(textOf(config.ListingPriceSelector), &price),
		chromedp.Evaluate(textOf(config.ListingDescSelector), &desc),
		chromedp.Evaluate(textOf(config.ListingSellerSelector), &seller),
	)
	if err != nil {
		return nil, fmt.Errorf("listing scrape failed: %w", err)
	}

	d := &ListingDetails{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(desc),
		SellerName:  strings.TrimSpace(seller),
		AskingPrice: parsePrice(price),
		Unavailable: unavailable,
	}
	if d.Title == "" {
		d.Unavailable = true
	}
	return d, nil
}

// SendListingMessage opens the chat dialog on a listing page, replaces the
// default text, and sends the offer.
func SendListingMessage(b *Browser, listingURL, message string) error {
	ctx, cancel := b.GetContextWithTimeout(45 * time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(listingURL),
		chromedp.WaitVisible(config.MessageButtonSelector, chromedp.ByQuery),
		chromedp.Click(config.MessageButtonSelector, chromedp.NodeVisible, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),

		//Clear the prefilled "Is this still available?" text
		chromedp.WaitVisible(config.MessageInputSelector, chromedp.ByQuery),
		chromedp.Click(config.MessageInputSelector, chromedp.ByQuery),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent("\b"),

		chromedp.SendKeys(config.MessageInputSelector, message, chromedp.ByQuery),
		chromedp.Sleep(250*time.Millisecond),
		chromedp.KeyEvent("\r"),
	)
	if err != nil {
		return fmt.Errorf("sending listing message failed: %w", err)
	}

	time.Sleep(2 * time.Second)
	return nil
}

// textOf builds a JS snippet returning the trimmed text of the first node
// matching the selector, or "" when absent.
func textOf(selector string) string {
	return fmt.Sprintf(`
		(() => {
			const el = document.querySelector(%q);
			return el ? el.textContent.trim() : "";
		})();
	`, selector)
}

// parsePrice turns "$1,234" into 1234.
func parsePrice(raw string) int {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

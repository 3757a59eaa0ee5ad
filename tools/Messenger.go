package tools

/*
Reads and writes marketplace chat threads: collects thread URLs from the inbox,
snapshots the newest message in a thread, and sends replies.
*/

import (
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"marketbot/config"
)

// ThreadSnapshot is the state of a conversation as rendered in the chat UI.
type ThreadSnapshot struct {
	SellerName  string `json:"sellerName"`
	ProductName string `json:"productName"`
	LastMessage string `json:"lastMessage"`
	FromSeller  bool   `json:"fromSeller"`
}

// CollectThreadURLs opens the messages inbox and returns marketplace
// conversation URLs. Marketplace threads are titled "Seller · Product", which
// separates them from personal chats.
func CollectThreadURLs(b *Browser, limit int) ([]string, error) {
	ctx, cancel := b.GetContextWithTimeout(45 * time.Second)
	defer cancel()

	var urls []string
	err := chromedp.Run(ctx,
		chromedp.Navigate(config.MessagesInboxURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),

		chromedp.Evaluate(`
			(() => {
				const seen = new Set();
				const out = [];
				for (const a of document.querySelectorAll('a[href*="/messages/t/"]')) {
					const m = a.href.match(/\/messages\/t\/([A-Za-z0-9]+)/);
					if (!m || seen.has(m[1])) continue;
					//Marketplace threads carry the "name · product" separator
					if (!a.innerText.includes("·")) continue;
					seen.add(m[1]);
					out.push("https://www.facebook.com/messages/t/" + m[1]);
				}
				return out;
			})();
		`, &urls),
	)
	if err != nil {
		return nil, fmt.Errorf("inbox scrape failed: %w", err)
	}

	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}

// ReadThread opens a conversation and snapshots its newest message.
func ReadThread(b *Browser, threadURL string) (*ThreadSnapshot, error) {
	ctx, cancel := b.GetContextWithTimeout(30 * time.Second)
	defer cancel()

	var snap ThreadSnapshot
	err := chromedp.Run(ctx,
		chromedp.Navigate(threadURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),

		chromedp.Evaluate(`
			(() => {
				const out = { sellerName: "", productName: "", lastMessage: "", fromSeller: false };

				//Thread header reads "Seller · Product"
				const header = document.querySelector('h1, [role="main"] h2');
				if (header) {
					const parts = header.textContent.split("·");
					out.sellerName = (parts[0] || "").trim();
					out.productName = (parts[1] || "").trim();
				}

				const rows = document.querySelectorAll('[role="row"]');
				for (let i = rows.length - 1; i >= 0; i--) {
					const text = rows[i].innerText.trim();
					if (!text) continue;
					out.lastMessage = text.split("\n")[0];
					//Our own bubbles sit in right-aligned rows
					out.fromSeller = !rows[i].querySelector('[data-own-message], .x13a6bvl');
					break;
				}
				return out;
			})();
		`, &snap),
	)
	if err != nil {
		return nil, fmt.Errorf("thread read failed: %w", err)
	}
	return &snap, nil
}

// SendReply types a reply into an open conversation and sends it.
func SendReply(b *Browser, threadURL, text string) error {
	ctx, cancel := b.GetContextWithTimeout(30 * time.Second)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(threadURL),
		chromedp.WaitVisible(config.MessageInputSelector, chromedp.ByQuery),
		chromedp.Click(config.MessageInputSelector, chromedp.ByQuery),
		chromedp.SendKeys(config.MessageInputSelector, text, chromedp.ByQuery),
		chromedp.Sleep(250*time.Millisecond),
		chromedp.KeyEvent("\r"),
	)
	if err != nil {
		return fmt.Errorf("sending reply failed: %w", err)
	}

	time.Sleep(1 * time.Second)
	return nil
}

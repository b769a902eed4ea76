package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Render loads rawURL in headless Chrome and returns the rendered document.
// The site builder assembles some galleries with scripts, so the served
// HTML can lack the image tags that the rendered DOM contains.
// Requires Chrome or Chromium on the system.
func Render(ctx context.Context, rawURL, userAgent string, timeout time.Duration) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "browser rendering failed", Cause: err}
	}
	return html, nil
}

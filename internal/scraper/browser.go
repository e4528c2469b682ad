package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser fetches pages through headless Chrome for requests that the
// plain HTTP client gets blocked on. The extraction pipeline is the same
// either way; only the transport differs.
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	headless bool
}

// NewBrowser creates a browser-based fetcher.
func NewBrowser(headless bool) *Browser {
	return &Browser{headless: headless}
}

// Start initializes the browser allocator.
func (b *Browser) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// Anti-detection flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)

	b.allocCtx, b.cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return nil
}

// Stop closes the browser.
func (b *Browser) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// FetchHTML navigates to a URL and returns the rendered page source.
func (b *Browser) FetchHTML(ctx context.Context, url string) (string, error) {
	if b.allocCtx == nil {
		return "", fmt.Errorf("browser not started")
	}

	taskCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, 45*time.Second)
	defer cancel()

	headers := network.Headers{
		"Accept-Language": "en-GB,en;q=0.9",
	}

	var html string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Hide the automation fingerprint before the page scripts look
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`, nil),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser fetch of %s: %w", url, err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return html, nil
}

package trending

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/joelkehle/trend-digest/internal/browser"
)

const (
	DefaultUserAgent    = "Mozilla/5.0"
	DefaultFetchTimeout = 30 * time.Second
	maxPageBytes        = 8 << 20
)

// Fetcher returns the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{},
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultFetchTimeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	// Invalid UTF-8 bytes are dropped.
	return strings.ToValidUTF8(string(body), ""), nil
}

// BrowserFetcher loads the page in headless Chromium and returns the
// rendered document, for when the static response is blocked or incomplete.
type BrowserFetcher struct {
	ChromePath string
	Timeout    time.Duration
}

func NewBrowserFetcher() *BrowserFetcher {
	return &BrowserFetcher{ChromePath: browser.DetectChromePath(), Timeout: DefaultFetchTimeout}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	taskCtx, cancel := browser.NewContext(ctx, f.ChromePath, f.Timeout)
	defer cancel()

	var doc string
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("browser fetch %s: %w", url, err)
	}
	return doc, nil
}

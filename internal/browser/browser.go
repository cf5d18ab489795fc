// Package browser starts headless Chromium sessions for page fetching and
// PDF printing.
package browser

import (
	"context"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

const DefaultTimeout = 30 * time.Second

var chromeCandidates = []string{
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
}

// DetectChromePath returns the first installed Chromium binary, or "" to let
// chromedp search on its own.
func DetectChromePath() string {
	for _, p := range chromeCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// NewContext returns a chromedp task context bounded by timeout. The cancel
// func tears down the tab, the allocator and the browser process.
func NewContext(ctx context.Context, chromePath string, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, timeout)

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	return taskCtx, func() {
		cancelTask()
		cancelAlloc()
		cancelTimeout()
	}
}

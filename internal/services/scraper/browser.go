package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
)

// Browser manages a lazily started Chrome session shared across page fetches.
type Browser struct {
	config *common.ScraperConfig
	logger arbor.ILogger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	started       bool
}

// NewBrowser creates a browser wrapper. Chrome is not launched until the
// first fetch.
func NewBrowser(config *common.ScraperConfig, logger arbor.ILogger) *Browser {
	return &Browser{
		config: config,
		logger: logger,
	}
}

// ensureStarted launches Chrome on first use.
func (b *Browser) ensureStarted(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(b.config.UserAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(1920, 1080),
	}
	if b.config.Headless {
		// New headless mode is less detectable
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			b.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	// Startup probe
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.allocCancel = allocCancel
	b.started = true

	b.logger.Info().Bool("headless", b.config.Headless).Msg("Browser session started")
	return nil
}

// FetchHTML renders the page at url in a fresh tab and returns its HTML
// after the configured JavaScript wait.
func (b *Browser) FetchHTML(ctx context.Context, url string) (string, error) {
	if err := b.ensureStarted(ctx); err != nil {
		return "", err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()

	pageCtx, cancel := context.WithTimeout(tabCtx, b.config.PageTimeout)
	defer cancel()

	b.logger.Debug().Str("url", url).Msg("Rendering page")

	var html string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.config.RenderWait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("page render failed for %s: %w", url, err)
	}
	return html, nil
}

// Close shuts down the Chrome session if it was started.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.started = false
	b.logger.Info().Msg("Browser session closed")
}

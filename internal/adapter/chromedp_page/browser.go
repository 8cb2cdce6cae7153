package chromedp_page

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/user/ghibli-blocker/pkg/logger"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36`

// BrowserConfig selects how the tab is obtained.
type BrowserConfig struct {
	// CDPURL attaches to an already running browser (ws:// or http:// DevTools endpoint).
	CDPURL string
	// Headless only applies when a browser is launched.
	Headless bool
	// UserDataDir points at a profile that is already logged in.
	UserDataDir string
	// Proxy is passed to a launched browser as --proxy-server.
	Proxy string
}

// Browser owns the allocator and the single tab the agent drives.
type Browser struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Launch starts (or attaches to) a browser and opens a tab.
func Launch(ctx context.Context, cfg BrowserConfig) (*Browser, error) {
	log := logger.Component("browser")

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if cfg.CDPURL != "" {
		log.Info("Attaching to remote browser", "cdp_url", cfg.CDPURL)
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, cfg.CDPURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)
		if cfg.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		}
		if cfg.Proxy != "" {
			opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
		}
		log.Info("Launching browser", "headless", cfg.Headless, "user_data_dir", cfg.UserDataDir, "proxy", cfg.Proxy != "")
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	}), chromedp.WithErrorf(func(format string, args ...any) {
		log.Error(fmt.Sprintf(format, args...))
	}))

	// First Run allocates the browser and the target.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser tab: %w", err)
	}

	return &Browser{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Tab returns the chromedp context of the driven tab.
func (b *Browser) Tab() context.Context {
	return b.tab
}

// Close closes the tab and, for launched browsers, the browser process.
func (b *Browser) Close() {
	b.cancelTab()
	b.cancelAlloc()
	slog.Info("Browser closed")
}

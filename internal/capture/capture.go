// Package capture renders the dashboard page to a PNG using headless
// Chromium via chromedp.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Default viewport sized for a landscape tablet-style preview.
const (
	DefaultWidth   = 1200
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second
)

// Options configures a single dashboard capture.
type Options struct {
	// URL to capture, either the running server's /dashboard or a
	// file:// URL for one-shot rendering.
	URL string

	// OutputPath is where the PNG will be written.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

// DashboardPNG navigates to opts.URL, waits for the page root to publish
// data-ready="true", and writes a full-page PNG to opts.OutputPath.
func DashboardPNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Let final paints settle before the screenshot.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: writing PNG: %w", err)
	}
	return nil
}

// HTMLToPNG writes html to a temp file and captures it through a file://
// URL. Used by the one-shot render command where no server is running.
func HTMLToPNG(ctx context.Context, html string, opts Options) error {
	tmp, err := os.CreateTemp("", "edusync-dashboard-*.html")
	if err != nil {
		return fmt.Errorf("capture: creating temp html: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: writing temp html: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	abs, err := filepath.Abs(tmp.Name())
	if err != nil {
		return err
	}
	opts.URL = "file://" + abs
	return DashboardPNG(ctx, opts)
}

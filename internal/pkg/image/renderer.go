// Package image converts a rendered dashboard page into a PNG screenshot.
package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// Renderer knows how to take a screenshot from a HTML input and writes it as PNG.
type Renderer struct {
	options

	l *slog.Logger
}

// New builds an image [Renderer] from HTML.
func New(opts ...Option) *Renderer {
	return &Renderer{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "image")),
	}
}

// Render a PNG image as a screenshot from a HTML input [io.Reader].
func (r *Renderer) Render(ctx context.Context, dest io.Writer, source io.Reader) error {
	content, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	screenshot, err := r.screenshot(ctx, content)
	if err != nil {
		return fmt.Errorf("taking screenshot: %w", err)
	}

	_, err = dest.Write(screenshot)
	if err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	r.l.Debug("screenshot taken", slog.Int("bytes", len(screenshot)), slog.Int64("width", r.Width), slog.Int64("height", r.Height))

	return nil
}

func (r *Renderer) screenshot(parent context.Context, content []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	ctx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()

	const qualityPNG = 100 // 100 to force PNG

	// the page is base64-encoded: color codes like "#FF1744" would otherwise end the data URL
	actions := []chromedp.Action{
		chromedp.Emulate(device.Info{
			Height:    r.Height,
			Width:     r.Width,
			Landscape: true,
		}),
		chromedp.Navigate("data:text/html;base64," + base64.StdEncoding.EncodeToString(content)),
	}

	if r.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(r.WaitSelector, chromedp.ByQuery))
	}

	var screenshot []byte
	actions = append(actions,
		chromedp.Sleep(r.SleepDuration), // echarts animations need some time to settle
		chromedp.FullScreenshot(&screenshot, qualityPNG),
	)

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, err
	}

	return screenshot, nil
}

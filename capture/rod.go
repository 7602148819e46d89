package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/drummonds/docpreview/preview"
)

// RodBrowser drives Chrome with go-rod. Without a configured path rod falls back
// to its own lookup, which may download a browser.
type RodBrowser struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewRod launches (or connects to) a browser
func NewRod(ctx context.Context, opts Options) (*RodBrowser, error) {
	b := &RodBrowser{logger: opts.Logger}

	wsURL := opts.RemoteURL
	if wsURL != "" {
		opts.Logger.Info("Connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(true).NoSandbox(true)
		if opts.BrowserPath != "" {
			l = l.Bin(opts.BrowserPath)
		} else if path, has := launcher.LookPath(); has {
			l = l.Bin(path)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		wsURL = u
		b.launcher = l
		opts.Logger.Info("Launched headless browser", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		b.Close()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	b.browser = browser
	return b, nil
}

// Open creates a new blank tab with the given viewport
func (b *RodBrowser) Open(ctx context.Context, uri string, width, height int) (preview.Embed, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}
	// Detach from the caller's context so the tab outlives this call
	page = page.Context(context.Background())
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return &rodTab{page: page, uri: uri}, nil
}

// Close disconnects and kills a locally launched browser
func (b *RodBrowser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.browser != nil {
			err = b.browser.Close()
		}
		if b.launcher != nil {
			b.launcher.Kill()
		}
		b.logger.Info("Headless browser stopped")
	})
	return err
}

type rodTab struct {
	page *rod.Page
	uri  string
}

func (t *rodTab) WaitReady(ctx context.Context) error {
	page := t.page.Context(ctx)
	if err := page.Navigate(t.uri); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (t *rodTab) Probe(ctx context.Context) (preview.Capability, error) {
	res, err := t.page.Context(ctx).Eval(`() => ` + probeScript)
	if err != nil {
		return preview.CaptureUnknown, err
	}
	return capability(res.Value.Bool()), nil
}

func (t *rodTab) Capture(ctx context.Context) (image.Image, error) {
	data, err := t.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

func (t *rodTab) Close() error {
	return t.page.Close()
}

package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/drummonds/docpreview/preview"
)

// ChromedpBrowser drives Chrome over the DevTools protocol with chromedp
type ChromedpBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *slog.Logger
	closeOnce     sync.Once
}

// NewChromedp launches (or attaches to) a browser and waits until it answers
func NewChromedp(ctx context.Context, opts Options) (*ChromedpBrowser, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc

	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
		opts.Logger.Info("Attaching to remote browser", "url", opts.RemoteURL)
	} else {
		path := opts.BrowserPath
		if path == "" {
			found, err := FindBrowser()
			if err != nil {
				return nil, err
			}
			path = found
		}
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(path),
			chromedp.DisableGPU,
			chromedp.NoSandbox,
			chromedp.Headless,
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
		opts.Logger.Info("Launching headless browser", "path", path)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b := &ChromedpBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        opts.Logger,
	}

	// The first Run on the browser context starts the browser
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-ctx.Done():
		b.Close()
		return nil, ctx.Err()
	}
	return b, nil
}

// Open creates a new tab with the given viewport. Navigation happens in WaitReady.
func (b *ChromedpBrowser) Open(ctx context.Context, uri string, width, height int) (preview.Embed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	// The tab is created by the first Run, which must use the tab context itself
	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromedpTab{ctx: tabCtx, cancel: cancel, uri: uri}, nil
}

// Close shuts the browser down
func (b *ChromedpBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.browserCancel()
		b.allocCancel()
		b.logger.Info("Headless browser stopped")
	})
	return nil
}

type chromedpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
	uri    string
}

// run executes actions on the tab, aborting when ctx is done without closing the tab
func (t *chromedpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (t *chromedpTab) WaitReady(ctx context.Context) error {
	return t.run(ctx, chromedp.Navigate(t.uri))
}

func (t *chromedpTab) Probe(ctx context.Context) (preview.Capability, error) {
	var enabled bool
	if err := t.run(ctx, chromedp.Evaluate(probeScript, &enabled)); err != nil {
		return preview.CaptureUnknown, err
	}
	return capability(enabled), nil
}

func (t *chromedpTab) Capture(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := t.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(buf))
}

func (t *chromedpTab) Close() error {
	t.cancel()
	return nil
}

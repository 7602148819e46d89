// Package capture provides headless browser backends for the capture strategy.
// A backend opens one invisible tab per document, lets the browser's built-in
// viewer render it and screenshots the result.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/drummonds/docpreview/preview"
)

// ErrDisabled is returned when the capture backend is switched off
var ErrDisabled = errors.New("capture backend disabled")

// Options selects and configures a browser backend
type Options struct {
	// Backend is "chromedp" (default), "rod" or "none"
	Backend string
	// BrowserPath overrides browser discovery
	BrowserPath string
	// RemoteURL attaches to an already running browser's DevTools endpoint
	RemoteURL string
	Logger    *slog.Logger
}

// candidates are the executables tried by FindBrowser, in order
var candidates = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome", "headless-shell"}

// FindBrowser finds a Chromium based browser on PATH
func FindBrowser() (string, error) {
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chromium based browser found on PATH")
}

// New starts the configured backend. It is expensive and meant to be the
// factory of a preview.Loader.
func New(ctx context.Context, opts Options) (preview.Browser, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "chromedp", "chrome":
		b, err := NewChromedp(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "rod":
		b, err := NewRod(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "none", "off", "disabled":
		return nil, ErrDisabled
	}
	return nil, fmt.Errorf("unknown capture backend %q", opts.Backend)
}

// Factory adapts New to a preview.Loader factory
func Factory(opts Options) preview.Factory[preview.Browser] {
	return func(ctx context.Context) (preview.Browser, error) {
		return New(ctx, opts)
	}
}

// probeScript reports whether the browser has a built-in document viewer.
// Headless shells without one render an empty frame, so copying is pointless.
const probeScript = `navigator.pdfViewerEnabled === true`

func capability(enabled bool) preview.Capability {
	if enabled {
		return preview.CaptureSupported
	}
	return preview.CaptureUnsupported
}

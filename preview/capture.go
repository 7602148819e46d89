package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"
)

// Capability is the outcome of probing whether pixels can be copied out of an
// embedding surface
type Capability int

const (
	CaptureUnknown Capability = iota
	CaptureSupported
	// CaptureUnsupported means the environment's isolation policy refuses the copy
	CaptureUnsupported
)

func (c Capability) String() string {
	switch c {
	case CaptureSupported:
		return "supported"
	case CaptureUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Browser creates isolated, invisible embedding surfaces
type Browser interface {
	// Open creates a surface of the given viewport size pointed at uri
	Open(ctx context.Context, uri string, width, height int) (Embed, error)
}

// Embed is one off-screen embedding surface
type Embed interface {
	// WaitReady blocks until the surface reports it has loaded
	WaitReady(ctx context.Context) error
	// Probe reports whether Capture can succeed in this environment
	Probe(ctx context.Context) (Capability, error)
	// Capture copies the rendered pixels
	Capture(ctx context.Context) (image.Image, error)
	Close() error
}

// CaptureOptions tunes the capture renderer
type CaptureOptions struct {
	// Timeout bounds the wait for the surface to report ready
	Timeout time.Duration
	// CopyTimeout bounds the probe and the pixel copy
	CopyTimeout time.Duration
	Width       int
	Height      int
	Background  color.Color
	Format      Format
	MaxWidth    int
	// PreferPassthrough returns the original document when the copy is refused
	// and the source has a durable URI
	PreferPassthrough bool
	Logger            *slog.Logger
}

// DefaultCaptureTimeout is how long the capture renderer waits for readiness
const DefaultCaptureTimeout = 2 * time.Second

// Capture embeds the document in a browser surface and copies its pixels
type Capture struct {
	browsers  *Loader[Browser]
	resources *ResourceManager
	opts      CaptureOptions
}

// NewCapture builds the capture renderer
func NewCapture(browsers *Loader[Browser], resources *ResourceManager, opts CaptureOptions) *Capture {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCaptureTimeout
	}
	if opts.CopyTimeout <= 0 {
		opts.CopyTimeout = time.Second
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		// US letter at 96 DPI
		opts.Width, opts.Height = 816, 1056
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	if opts.Format.Extension == "" {
		opts.Format = FormatPNG
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Capture{browsers: browsers, resources: resources, opts: opts}
}

func (c *Capture) Strategy() Strategy { return StrategyCapture }

// Render releases every temporary resource before returning, on all paths
func (c *Capture) Render(ctx context.Context, src Source) Result {
	scope := c.resources.Scope()
	defer scope.Release()

	result, err := c.render(ctx, scope, src)
	if err != nil {
		return failure(StrategyCapture, err)
	}
	return result
}

func (c *Capture) render(ctx context.Context, scope *Scope, src Source) (Result, error) {
	browser, err := c.browsers.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}

	_, uri, err := scope.TempFile(src.Data, ".pdf")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	embed, err := browser.Open(ctx, uri, c.opts.Width, c.opts.Height)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open embedding surface: %v", ErrLoad, err)
	}
	scope.Track("embed", src.DisplayName, embed.Close)

	if err := c.waitReady(ctx, embed); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%w: capture abandoned: %w", ErrLoad, ctx.Err())
		}
		// A partially loaded surface is still worth capturing
		c.opts.Logger.Info("Proceeding with partially loaded surface", "name", src.DisplayName, "reason", err)
	}

	surface, err := NewSurface(c.opts.Width, c.opts.Height)
	if err != nil {
		return Result{}, err
	}
	surface.Fill(c.opts.Background)

	copyCtx, cancel := context.WithTimeout(ctx, c.opts.CopyTimeout)
	defer cancel()

	capability, err := embed.Probe(copyCtx)
	if err != nil {
		c.opts.Logger.Debug("Capture probe failed, attempting copy anyway", "name", src.DisplayName, "error", err)
		capability = CaptureUnknown
	}
	if capability == CaptureUnsupported {
		if c.opts.PreferPassthrough && src.URI != "" {
			c.opts.Logger.Info("Pixel copy refused, passing original document through", "name", src.DisplayName, "uri", src.URI)
			return passthrough(StrategyCapture, src), nil
		}
		return Result{}, ErrCaptureUnsupported
	}

	img, err := embed.Capture(copyCtx)
	if err != nil {
		if errors.Is(err, ErrCaptureUnsupported) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: pixel copy: %v", ErrRender, err)
	}
	surface.DrawFit(img)

	data, err := surface.Encode(c.opts.Format, c.opts.MaxWidth)
	if err != nil {
		return Result{}, err
	}
	return success(StrategyCapture, &Artifact{
		Name:      ArtifactName(src.DisplayName, c.opts.Format),
		MediaType: c.opts.Format.MediaType,
		Data:      data,
	}), nil
}

// waitReady races the surface's ready signal against the timeout. The embed
// may keep loading in the background after a timeout; it is closed with the scope.
func (c *Capture) waitReady(ctx context.Context, embed Embed) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- embed.WaitReady(waitCtx) }()

	select {
	case err := <-done:
		if err != nil && waitCtx.Err() != nil {
			return fmt.Errorf("%w after %s", ErrTimeout, c.opts.Timeout)
		}
		return err
	case <-waitCtx.Done():
		return fmt.Errorf("%w after %s", ErrTimeout, c.opts.Timeout)
	}
}

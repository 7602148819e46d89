package preview

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/drummonds/docpreview/engine/pdfrenderer"
)

// DefaultScale is the viewport scale applied to the page's intrinsic size
const DefaultScale = 1.5

// NativeOptions tunes the native renderer
type NativeOptions struct {
	Format   Format
	Scale    float64
	MaxWidth int
	Logger   *slog.Logger
}

// Native rasterizes the first page with a real PDF engine
type Native struct {
	engines *Loader[pdfrenderer.Engine]
	opts    NativeOptions
}

// NewNative builds the native renderer on top of an engine loader
func NewNative(engines *Loader[pdfrenderer.Engine], opts NativeOptions) *Native {
	if opts.Format.Extension == "" {
		opts.Format = FormatPNG
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Native{engines: engines, opts: opts}
}

func (n *Native) Strategy() Strategy { return StrategyNative }

// Render never returns an error; failures are reported in the Result
func (n *Native) Render(ctx context.Context, src Source) Result {
	artifact, err := n.render(ctx, src)
	if err != nil {
		return failure(StrategyNative, err)
	}
	return success(StrategyNative, artifact)
}

func (n *Native) render(ctx context.Context, src Source) (*Artifact, error) {
	engine, err := n.engines.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := engine.Open(ctx, src.Data)
	if err != nil {
		if errors.Is(err, pdfrenderer.ErrInvalidDocument) || errors.Is(err, pdfrenderer.ErrNoPages) {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, engine.Name(), err)
	}
	defer doc.Close()

	width, height, err := doc.PageSize(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	surface, err := NewSurface(viewport(width, n.opts.Scale), viewport(height, n.opts.Scale))
	if err != nil {
		return nil, err
	}
	surface.Fill(color.White)

	if err := doc.RenderPage(ctx, 0, surface.Image()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	data, err := surface.Encode(n.opts.Format, n.opts.MaxWidth)
	if err != nil {
		return nil, err
	}
	n.opts.Logger.Debug("Rendered first page", "engine", engine.Name(), "name", src.DisplayName,
		"pages", doc.NumPage(), "width", surface.Width(), "height", surface.Height(), "bytes", len(data))

	return &Artifact{
		Name:      ArtifactName(src.DisplayName, n.opts.Format),
		MediaType: n.opts.Format.MediaType,
		Data:      data,
	}, nil
}

func viewport(points, scale float64) int {
	if points <= 0 || math.IsNaN(points) || math.IsInf(points, 0) {
		return 0
	}
	return int(math.Ceil(points * scale))
}

package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math/rand/v2"
	"unicode/utf8"

	svg "github.com/ajstarks/svgo"
	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Synthetic page geometry: A4 proportions at 72 DPI
const (
	SyntheticWidth  = 595
	SyntheticHeight = 842

	syntheticMargin    = 48
	syntheticLines     = 20
	syntheticLineGap   = 26
	syntheticLineH     = 9
	syntheticNameLimit = 48
	syntheticTitle     = "RESUME"
)

var (
	headerColor  = color.NRGBA{0x2c, 0x3e, 0x50, 0xff}
	contactColor = color.NRGBA{0x95, 0xa5, 0xa6, 0xff}
	dividerColor = color.NRGBA{0xbd, 0xc3, 0xc7, 0xff}
	lineColor    = color.NRGBA{0xd5, 0xdb, 0xdb, 0xff}
	footerColor  = color.NRGBA{0x7f, 0x8c, 0x8d, 0xff}
)

// SyntheticLayout is the structural geometry of a placeholder page. It depends
// only on the display name and size hint.
type SyntheticLayout struct {
	Width, Height int
	Header        image.Rectangle
	Title         image.Point
	Contact       image.Rectangle
	Divider       image.Rectangle
	// Lines are the slots content placeholders are drawn in; drawn widths vary inside them
	Lines      []image.Rectangle
	Footer     image.Point
	FooterText string
}

// SyntheticOptions tunes the placeholder renderer
type SyntheticOptions struct {
	Format   Format
	MaxWidth int
	// Jitter returns values in [0,1) used for cosmetic line widths; math/rand by default
	Jitter func() float64
	Logger *slog.Logger
}

// Synthetic draws a content-free, resume-shaped placeholder. It never looks at
// the document bytes.
type Synthetic struct {
	opts SyntheticOptions
}

// NewSynthetic builds the placeholder renderer
func NewSynthetic(opts SyntheticOptions) *Synthetic {
	if opts.Format.Extension == "" {
		opts.Format = FormatPNG
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synthetic{opts: opts}
}

func (s *Synthetic) Strategy() Strategy { return StrategySynthetic }

// Render adapts Draw to the strategy interface. Drawing is bounded and never
// reads the document, so it runs even after the caller has gone away.
func (s *Synthetic) Render(_ context.Context, src Source) Result {
	return s.Draw(src.DisplayName, src.SizeHint())
}

// Layout computes the placeholder geometry
func (s *Synthetic) Layout(displayName string, sizeHint int64) SyntheticLayout {
	contentWidth := SyntheticWidth - 2*syntheticMargin
	l := SyntheticLayout{
		Width:   SyntheticWidth,
		Height:  SyntheticHeight,
		Header:  image.Rect(0, 0, SyntheticWidth, 120),
		Title:   image.Pt(syntheticMargin, 40),
		Contact: image.Rect(syntheticMargin, 150, syntheticMargin+320, 160),
		Divider: image.Rect(syntheticMargin, 179, SyntheticWidth-syntheticMargin, 181),
		Footer:  image.Pt(syntheticMargin, SyntheticHeight-40),
	}
	top := 205
	for i := 0; i < syntheticLines; i++ {
		y := top + i*syntheticLineGap
		l.Lines = append(l.Lines, image.Rect(syntheticMargin, y, syntheticMargin+contentWidth, y+syntheticLineH))
	}
	l.FooterText = footerText(displayName, sizeHint)
	return l
}

// Draw renders the placeholder. The only failure is an unavailable surface.
func (s *Synthetic) Draw(displayName string, sizeHint int64) Result {
	layout := s.Layout(displayName, sizeHint)
	surface, err := NewSurface(layout.Width, layout.Height)
	if err != nil {
		return failure(StrategySynthetic, err)
	}
	surface.Fill(color.White)

	if err := rasterizeSVG(surface, s.shapes(layout)); err != nil {
		return failure(StrategySynthetic, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err))
	}
	drawLabel(surface.Image(), syntheticTitle, layout.Title, color.White, 3)
	drawLabel(surface.Image(), layout.FooterText, layout.Footer, footerColor, 1)

	data, err := surface.Encode(s.opts.Format, s.opts.MaxWidth)
	if err != nil {
		return failure(StrategySynthetic, err)
	}
	return success(StrategySynthetic, &Artifact{
		Name:      ArtifactName(displayName, s.opts.Format),
		MediaType: s.opts.Format.MediaType,
		Data:      data,
	})
}

// shapes writes the vector part of the layout as SVG
func (s *Synthetic) shapes(l SyntheticLayout) []byte {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(l.Width, l.Height, 0, 0, l.Width, l.Height)
	fillRect(canvas, l.Header, headerColor)
	fillRect(canvas, l.Contact, contactColor)
	fillRect(canvas, l.Divider, dividerColor)
	for i, slot := range l.Lines {
		// Every fifth line ends a paragraph and is drawn shorter
		minimum, spread := 0.7, 0.3
		if i%5 == 4 {
			minimum, spread = 0.35, 0.2
		}
		width := int(float64(slot.Dx()) * (minimum + spread*s.opts.Jitter()))
		if width > slot.Dx() {
			width = slot.Dx()
		}
		fillRect(canvas, image.Rect(slot.Min.X, slot.Min.Y, slot.Min.X+width, slot.Max.Y), lineColor)
	}
	canvas.End()
	return buf.Bytes()
}

func fillRect(canvas *svg.SVG, r image.Rectangle, c color.NRGBA) {
	canvas.Rect(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), fmt.Sprintf(`fill="#%02x%02x%02x"`, c.R, c.G, c.B))
}

func rasterizeSVG(surface *Surface, doc []byte) error {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc), oksvg.StrictErrorMode)
	if err != nil {
		return fmt.Errorf("parse placeholder svg: %w", err)
	}
	w, h := surface.Width(), surface.Height()
	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, surface.Image(), surface.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return nil
}

// drawLabel draws text with its top-left corner at 'at', scaled up by an integer factor
func drawLabel(dst draw.Image, text string, at image.Point, c color.Color, scale int) {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil()
	if width == 0 {
		return
	}
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	label := image.NewNRGBA(image.Rect(0, 0, width, height))
	d.Dst = label
	d.Src = image.NewUniform(c)
	d.Dot = fixed.P(0, metrics.Ascent.Ceil())
	d.DrawString(text)

	var img image.Image = label
	if scale > 1 {
		img = imaging.Resize(label, width*scale, height*scale, imaging.NearestNeighbor)
	}
	draw.Draw(dst, img.Bounds().Add(at), img, img.Bounds().Min, draw.Over)
}

func footerText(displayName string, sizeHint int64) string {
	name := truncateName(displayName, syntheticNameLimit)
	if name == "" {
		name = "untitled document"
	}
	text := "Preview unavailable - " + name
	if sizeHint > 0 {
		text += " (" + humanize.Bytes(uint64(sizeHint)) + ")"
	}
	return text
}

func truncateName(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	runes := []rune(name)
	return string(runes[:limit-3]) + "..."
}

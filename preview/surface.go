package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxSurfacePixels bounds the size of any raster surface (about 64 MP)
const MaxSurfacePixels = 64 << 20

// Format describes an encoded raster format
type Format struct {
	Name      string
	Extension string
	MediaType string
	// Quality is used by lossy formats, 1-100
	Quality int

	encoding imaging.Format
}

var (
	FormatPNG  = Format{Name: "png", Extension: ".png", MediaType: "image/png", encoding: imaging.PNG}
	FormatJPEG = Format{Name: "jpeg", Extension: ".jpg", MediaType: "image/jpeg", Quality: 95, encoding: imaging.JPEG}
)

// ParseFormat returns the named format. quality only applies to JPEG; zero keeps the default.
func ParseFormat(name string, quality int) (Format, error) {
	var f Format
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "png":
		f = FormatPNG
	case "jpeg", "jpg":
		f = FormatJPEG
	default:
		return Format{}, fmt.Errorf("unsupported preview format %q", name)
	}
	if quality != 0 {
		if quality < 1 || quality > 100 {
			return Format{}, fmt.Errorf("preview quality must be between 1 and 100, got %d", quality)
		}
		f.Quality = quality
	}
	return f, nil
}

// Surface is a fixed-size pixel buffer that drawing operations target.
// One is created per attempt and discarded after encoding.
type Surface struct {
	img *image.NRGBA
}

// NewSurface allocates a transparent surface of the given size
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrSurfaceUnavailable, width, height)
	}
	if int64(width)*int64(height) > MaxSurfacePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrSurfaceUnavailable, width, height, MaxSurfacePixels)
	}
	return &Surface{img: imaging.New(width, height, color.Transparent)}, nil
}

// Width of the surface in pixels
func (s *Surface) Width() int { return s.img.Bounds().Dx() }

// Height of the surface in pixels
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

// Bounds of the surface
func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Image exposes the surface as a draw target
func (s *Surface) Image() draw.Image { return s.img }

// Fill paints the whole surface with c
func (s *Surface) Fill(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// DrawFit composites src over the surface, scaled to fit and centred
func (s *Surface) DrawFit(src image.Image) {
	if src == nil || src.Bounds().Empty() {
		return
	}
	fitted := imaging.Fit(src, s.Width(), s.Height(), imaging.Lanczos)
	offset := image.Pt((s.Width()-fitted.Bounds().Dx())/2, (s.Height()-fitted.Bounds().Dy())/2)
	draw.Draw(s.img, fitted.Bounds().Add(offset), fitted, image.Point{}, draw.Over)
}

// Encode compresses the surface. When maxWidth is positive and smaller than the
// surface the image is downscaled first, keeping its aspect ratio.
func (s *Surface) Encode(f Format, maxWidth int) ([]byte, error) {
	var img image.Image = s.img
	if maxWidth > 0 && s.Width() > maxWidth {
		img = imaging.Resize(s.img, maxWidth, 0, imaging.Lanczos)
	}
	var opts []imaging.EncodeOption
	if f.encoding == imaging.JPEG && f.Quality > 0 {
		opts = append(opts, imaging.JPEGQuality(f.Quality))
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f.encoding, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if buf.Len() == 0 {
		return nil, ErrEncode
	}
	return buf.Bytes(), nil
}

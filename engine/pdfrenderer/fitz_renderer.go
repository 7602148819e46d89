//go:build fitz

package pdfrenderer

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// FitzEngine implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzEngine struct{}

// NewFitzEngine creates a new Fitz-based PDF engine
func NewFitzEngine() (Engine, error) {
	return &FitzEngine{}, nil
}

func (e *FitzEngine) Name() string { return "fitz" }

// Open parses the PDF from memory; MuPDF keeps no state between documents
func (e *FitzEngine) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, ErrNoPages
	}
	return &fitzDocument{doc: doc}, nil
}

// Close is a no-op, documents are closed individually
func (e *FitzEngine) Close() error {
	return nil
}

// fitzDocument serializes access, a MuPDF document is not safe for concurrent use
type fitzDocument struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fitzDocument) PageSize(index int) (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bound, err := d.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get size of page %d: %w", index, err)
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}

func (d *fitzDocument) RenderPage(ctx context.Context, index int, dst draw.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	bound, err := d.doc.Bound(index)
	if err != nil {
		return fmt.Errorf("unable to get size of page %d: %w", index, err)
	}
	if bound.Dx() == 0 {
		return fmt.Errorf("page %d has zero width", index)
	}
	// Bound is in points, so 72 DPI maps one point to one pixel
	dpi := 72 * float64(dst.Bounds().Dx()) / float64(bound.Dx())
	img, err := d.doc.ImageDPI(index, dpi)
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", index, err)
	}
	draw.Draw(dst, dst.Bounds(), img, image.Point{}, draw.Over)
	return nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

package pdfrenderer

import (
	"context"
	"errors"
	"fmt"
	"image/draw"
	"time"
)

var (
	// ErrInvalidDocument is returned by Open when the bytes are not a usable PDF
	ErrInvalidDocument = errors.New("invalid PDF document")
	// ErrNoPages is returned by Open for documents without pages
	ErrNoPages = errors.New("PDF has no pages")
)

// Engine defines a loaded PDF rendering engine
type Engine interface {
	// Name identifies the backend in logs
	Name() string

	// Open parses a PDF held in memory
	Open(ctx context.Context, data []byte) (Document, error)

	// Close cleans up any resources used by the engine
	Close() error
}

// Document is an opened PDF
type Document interface {
	NumPage() int

	// PageSize returns the intrinsic page size in PDF points (1/72 inch)
	PageSize(index int) (width, height float64, err error)

	// RenderPage rasterizes a page scaled to fill the bounds of dst
	RenderPage(ctx context.Context, index int, dst draw.Image) error

	Close() error
}

// Config selects and tunes an engine backend
type Config struct {
	// Backend is "pdfium" (WebAssembly, default) or "fitz" (MuPDF, needs the fitz build tag)
	Backend string
	// Workers is the size of the pdfium worker pool
	Workers int
	// WorkerTimeout bounds how long Open waits for a free worker
	WorkerTimeout time.Duration
}

// NewEngine creates the configured engine. This is the expensive call callers
// are expected to make once and share.
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Backend {
	case "", "pdfium":
		engine, err := NewPDFiumEngine(cfg)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "fitz", "mupdf":
		return NewFitzEngine()
	}
	return nil, fmt.Errorf("unknown PDF engine backend %q", cfg.Backend)
}

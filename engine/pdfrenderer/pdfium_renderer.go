package pdfrenderer

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumEngine renders with go-pdfium compiled to WebAssembly (pure Go, no CGo).
// Each opened document borrows a worker from the pool until it is closed.
type PDFiumEngine struct {
	pool    pdfium.Pool
	timeout time.Duration
}

// NewPDFiumEngine starts the WebAssembly runtime and its worker pool
func NewPDFiumEngine(cfg Config) (*PDFiumEngine, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := cfg.WorkerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  workers,
		MaxTotal: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	// Borrow a worker once so a broken runtime fails here and not on the first document
	instance, err := pool.GetInstance(timeout)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}
	instance.Close()

	return &PDFiumEngine{pool: pool, timeout: timeout}, nil
}

func (e *PDFiumEngine) Name() string { return "pdfium" }

// Open parses the document on a borrowed worker
func (e *PDFiumEngine) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	instance, err := e.pool.GetInstance(e.timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to get PDFium worker: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, fmt.Errorf("%w: unable to get page count: %v", ErrInvalidDocument, err)
	}
	if pageCount.PageCount == 0 {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, ErrNoPages
	}

	return &pdfiumDocument{
		instance: instance,
		doc:      doc.Document,
		pages:    pageCount.PageCount,
	}, nil
}

// Close shuts the worker pool down
func (e *PDFiumEngine) Close() error {
	if e.pool != nil {
		err := e.pool.Close()
		e.pool = nil
		return err
	}
	return nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
	pages    int
}

func (d *pdfiumDocument) NumPage() int { return d.pages }

func (d *pdfiumDocument) PageSize(index int) (float64, float64, error) {
	size, err := d.instance.FPDF_GetPageSizeByIndex(&requests.FPDF_GetPageSizeByIndex{
		Document: d.doc,
		Index:    index,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get size of page %d: %w", index, err)
	}
	return size.Width, size.Height, nil
}

func (d *pdfiumDocument) RenderPage(ctx context.Context, index int, dst draw.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bounds := dst.Bounds()
	pageRender, err := d.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: d.doc,
				Index:    index,
			},
		},
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	})
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", index, err)
	}
	// Clean up WebAssembly memory for this page once copied out
	defer pageRender.Cleanup()

	draw.Draw(dst, bounds, pageRender.Result.Image, image.Point{}, draw.Over)
	return nil
}

func (d *pdfiumDocument) Close() error {
	if d.instance == nil {
		return nil
	}
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: d.doc})
	if cerr := d.instance.Close(); err == nil {
		err = cerr
	}
	d.instance = nil
	return err
}

package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/drummonds/docpreview/engine/pdfrenderer"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeEngine treats any input starting with %PDF as a valid single page US letter document
type fakeEngine struct {
	renderErr error
	pageW     float64
	pageH     float64
	opened    atomic.Int64
	closed    atomic.Int64
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Open(ctx context.Context, data []byte) (pdfrenderer.Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) || bytes.Contains(data, []byte("corrupt")) {
		return nil, pdfrenderer.ErrInvalidDocument
	}
	e.opened.Add(1)
	w, h := e.pageW, e.pageH
	if w == 0 {
		w, h = 612, 792
	}
	return &fakeDocument{engine: e, w: w, h: h}, nil
}

func (e *fakeEngine) Close() error { return nil }

type fakeDocument struct {
	engine *fakeEngine
	w, h   float64
}

func (d *fakeDocument) NumPage() int { return 10 }

func (d *fakeDocument) PageSize(int) (float64, float64, error) { return d.w, d.h, nil }

func (d *fakeDocument) RenderPage(ctx context.Context, index int, dst draw.Image) error {
	if d.engine.renderErr != nil {
		return d.engine.renderErr
	}
	draw.Draw(dst, image.Rect(0, 0, 20, 20), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return nil
}

func (d *fakeDocument) Close() error {
	d.engine.closed.Add(1)
	return nil
}

func engineLoader(engine pdfrenderer.Engine, err error) *Loader[pdfrenderer.Engine] {
	return NewLoader("fake engine", func(ctx context.Context) (pdfrenderer.Engine, error) {
		if err != nil {
			return nil, err
		}
		return engine, nil
	}, testLogger)
}

// fakeBrowser hands out fakeEmbeds configured by the test
type fakeBrowser struct {
	embed   *fakeEmbed
	openErr error
	uris    []string
}

func (b *fakeBrowser) Open(ctx context.Context, uri string, width, height int) (Embed, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.uris = append(b.uris, uri)
	return b.embed, nil
}

type fakeEmbed struct {
	neverReady bool
	capability Capability
	captureErr error
	closed     atomic.Int64
}

func (e *fakeEmbed) WaitReady(ctx context.Context) error {
	if e.neverReady {
		// Ignores ctx on purpose: the renderer must not depend on it
		select {}
	}
	return nil
}

func (e *fakeEmbed) Probe(ctx context.Context) (Capability, error) {
	return e.capability, nil
}

func (e *fakeEmbed) Capture(ctx context.Context) (image.Image, error) {
	if e.captureErr != nil {
		return nil, e.captureErr
	}
	img := image.NewNRGBA(image.Rect(0, 0, 100, 130))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img, nil
}

func (e *fakeEmbed) Close() error {
	e.closed.Add(1)
	return nil
}

func browserLoader(b Browser, err error) *Loader[Browser] {
	return NewLoader("fake browser", func(ctx context.Context) (Browser, error) {
		if err != nil {
			return nil, err
		}
		return b, nil
	}, testLogger)
}

// stubRenderer returns a canned result, or panics when told to
type stubRenderer struct {
	strategy Strategy
	result   Result
	panicMsg string
	calls    int
}

func (s *stubRenderer) Strategy() Strategy { return s.strategy }

func (s *stubRenderer) Render(ctx context.Context, src Source) Result {
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.result
}

var errStub = errors.New("stub failure")

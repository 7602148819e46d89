package preview

import "errors"

// Conversion error taxonomy. Strategies wrap these with the underlying cause so
// callers can match with errors.Is.
var (
	// ErrLoad means the rendering engine (or capture browser) is unavailable
	ErrLoad = errors.New("engine unavailable")
	// ErrParse means the bytes are not a recognizable document
	ErrParse = errors.New("malformed or unsupported document")
	// ErrRender means page rasterization faulted
	ErrRender = errors.New("page rasterization failed")
	// ErrTimeout means the capture surface did not report ready in time.
	// Informational for the capture strategy, which proceeds anyway.
	ErrTimeout = errors.New("capture timed out")
	// ErrEncode means encoding the surface produced no bytes
	ErrEncode = errors.New("encoding produced no bytes")
	// ErrSurfaceUnavailable means a drawing surface could not be allocated
	ErrSurfaceUnavailable = errors.New("drawing surface unavailable")
	// ErrCaptureUnsupported means the environment refuses cross-surface pixel copies
	ErrCaptureUnsupported = errors.New("pixel capture unsupported")
	// ErrExhausted is returned when every configured strategy failed
	ErrExhausted = errors.New("all preview strategies failed")
)

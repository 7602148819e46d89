// Package inspect reads document metadata that is stored alongside previews.
// It never rasterizes anything.
package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned for input without a PDF header
var ErrNotPDF = errors.New("not a PDF document")

// Info describes a document
type Info struct {
	Pages int `json:"pages"`
	// Width and Height of the first page in points
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Version   string  `json:"version"`
	Encrypted bool    `json:"encrypted"`
	// HasText reports whether the first page carries extractable text
	HasText bool `json:"hasText"`
}

// Inspect parses the document structure
func Inspect(data []byte) (info Info, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return Info{}, ErrNotPDF
	}
	// pdfcpu dereferences nil objects in damaged cross reference tables
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, fmt.Errorf("read PDF structure: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, fmt.Errorf("read PDF structure: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("count pages: %w", err)
	}

	info = Info{
		Pages:     ctx.PageCount,
		Version:   ctx.VersionString(),
		Encrypted: ctx.Encrypt != nil,
	}
	if dims, err := ctx.PageDims(); err == nil && len(dims) > 0 {
		info.Width, info.Height = dims[0].Width, dims[0].Height
	}
	if !info.Encrypted {
		text, err := FirstPageText(data)
		info.HasText = err == nil && strings.TrimSpace(text) != ""
	}
	return info, nil
}

// FirstPageText extracts the plain text of the first page
func FirstPageText(data []byte) (text string, err error) {
	// The text extractor panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}
	if reader.NumPage() < 1 {
		return "", nil
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

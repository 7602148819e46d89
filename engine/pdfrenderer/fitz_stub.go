//go:build !fitz

package pdfrenderer

import "errors"

// NewFitzEngine is unavailable unless built with the fitz tag (CGo and MuPDF)
func NewFitzEngine() (Engine, error) {
	return nil, errors.New("fitz engine not compiled in, rebuild with -tags fitz")
}

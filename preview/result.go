// Package preview turns document bytes into a displayable raster preview.
//
// Conversion runs through an ordered list of strategies: the native renderer
// (a real PDF engine), the capture renderer (an embedded browser surface) and a
// synthetic placeholder. The pipeline never returns an error to the caller; every
// outcome, including total failure, is a Result.
package preview

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Strategy identifies which attempt produced a result
type Strategy int

const (
	StrategyNative Strategy = iota
	StrategyCapture
	StrategySynthetic
)

// DefaultOrder is the order strategies are tried in when none is configured
var DefaultOrder = []Strategy{StrategyNative, StrategyCapture, StrategySynthetic}

func (s Strategy) String() string {
	switch s {
	case StrategyNative:
		return "native"
	case StrategyCapture:
		return "capture"
	case StrategySynthetic:
		return "synthetic"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a configuration name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "native", "a":
		return StrategyNative, nil
	case "capture", "b":
		return StrategyCapture, nil
	case "synthetic", "c":
		return StrategySynthetic, nil
	}
	return 0, fmt.Errorf("unknown preview strategy %q", name)
}

// ParseStrategies parses a comma separated, ordered strategy list.
// Duplicates are dropped, the first occurrence wins.
func ParseStrategies(list string) ([]Strategy, error) {
	var order []Strategy
	seen := make(map[Strategy]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseStrategy(part)
		if err != nil {
			return nil, err
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		order = append(order, s)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("no preview strategies in %q", list)
	}
	return order, nil
}

// Source is a document submitted for conversion
type Source struct {
	Data        []byte
	DisplayName string
	// Size is the byte length reported by the uploader; falls back to len(Data)
	Size int64
	// URI is a durable location of the stored original, if the caller has one.
	// Passthrough results point here.
	URI string
	// MediaType of the original document, application/pdf when empty
	MediaType string
}

// SizeHint returns the reported size or the length of the data
func (s Source) SizeHint() int64 {
	if s.Size > 0 {
		return s.Size
	}
	return int64(len(s.Data))
}

func (s Source) mediaType() string {
	if s.MediaType != "" {
		return s.MediaType
	}
	return MediaTypePDF
}

// MediaTypePDF is the media type of the documents this package ingests
const MediaTypePDF = "application/pdf"

// Artifact is the named, typed binary output of a successful attempt
type Artifact struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"-"`
}

// Result is the outcome of a conversion. Exactly one of Artifact or ErrorMessage
// is set, except for passthrough results which carry only PreviewURI.
type Result struct {
	PreviewURI   string    `json:"previewUri,omitempty"`
	Artifact     *Artifact `json:"artifact,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	// Passthrough results reference the original document instead of a raster
	Passthrough bool `json:"passthrough,omitempty"`
	// MediaType of what PreviewURI or Artifact points at
	MediaType string `json:"mediaType,omitempty"`

	Strategy Strategy      `json:"-"`
	Err      error         `json:"-"`
	Elapsed  time.Duration `json:"-"`
}

// Failed reports whether the result carries an error
func (r Result) Failed() bool { return r.ErrorMessage != "" }

// HasArtifact reports whether the result holds a non-empty raster
func (r Result) HasArtifact() bool { return r.Artifact != nil && len(r.Artifact.Data) > 0 }

func success(s Strategy, a *Artifact) Result {
	return Result{Artifact: a, MediaType: a.MediaType, Strategy: s}
}

func passthrough(s Strategy, src Source) Result {
	return Result{PreviewURI: src.URI, Passthrough: true, MediaType: src.mediaType(), Strategy: s}
}

func failure(s Strategy, err error) Result {
	return Result{ErrorMessage: err.Error(), Err: err, Strategy: s}
}

// documentExtensions are stripped from display names when naming artifacts
var documentExtensions = []string{".pdf"}

// ArtifactName derives the artifact file name from a display name: one trailing
// recognized document extension is removed (case-insensitive) and the format's
// extension appended.
func ArtifactName(displayName string, format Format) string {
	base := filepath.Base(strings.TrimSpace(displayName))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	ext := filepath.Ext(base)
	for _, known := range documentExtensions {
		if strings.EqualFold(ext, known) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	if base == "" {
		base = "preview"
	}
	return base + format.Extension
}

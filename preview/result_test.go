package preview

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name     string
		display  string
		format   Format
		expected string
	}{
		{"pdf extension replaced", "resume.pdf", FormatPNG, "resume.png"},
		{"extension match is case-insensitive", "scan.PDF", FormatPNG, "scan.png"},
		{"only the last extension is removed", "a.b.pdf", FormatPNG, "a.b.png"},
		{"no extension", "noext", FormatPNG, "noext.png"},
		{"unknown extension kept", "notes.txt", FormatPNG, "notes.txt.png"},
		{"only one pdf extension removed", "double.pdf.pdf", FormatPNG, "double.pdf.png"},
		{"directories dropped", "uploads/2024/cv.pdf", FormatPNG, "cv.png"},
		{"empty name", "", FormatPNG, "preview.png"},
		{"bare extension", ".pdf", FormatPNG, "preview.png"},
		{"jpeg format", "resume.pdf", FormatJPEG, "resume.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ArtifactName(tt.display, tt.format)
			if got != tt.expected {
				t.Errorf("ArtifactName(%q) = %q, want %q", tt.display, got, tt.expected)
			}
		})
	}
}

func TestParseStrategies(t *testing.T) {
	order, err := ParseStrategies("capture, native,synthetic,native")
	if err != nil {
		t.Fatalf("ParseStrategies failed: %v", err)
	}
	expected := []Strategy{StrategyCapture, StrategyNative, StrategySynthetic}
	if len(order) != len(expected) {
		t.Fatalf("Expected %d strategies, got %v", len(expected), order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], order[i])
		}
	}

	letters, err := ParseStrategies("A,C")
	if err != nil {
		t.Fatalf("ParseStrategies with letters failed: %v", err)
	}
	if len(letters) != 2 || letters[0] != StrategyNative || letters[1] != StrategySynthetic {
		t.Errorf("Unexpected order from letters: %v", letters)
	}

	if _, err := ParseStrategies("native,bogus"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
	if _, err := ParseStrategies(" , "); err == nil {
		t.Error("Expected error for empty strategy list")
	}
}

func TestStrategyString(t *testing.T) {
	for _, s := range DefaultOrder {
		parsed, err := ParseStrategy(s.String())
		if err != nil {
			t.Fatalf("ParseStrategy(%q) failed: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("Expected %s, got %s", s, parsed)
		}
	}
	if got := Strategy(9).String(); got != "strategy(9)" {
		t.Errorf("Unexpected name for unknown strategy: %q", got)
	}
}

func TestSourceSizeHint(t *testing.T) {
	if got := (Source{Data: []byte("12345")}).SizeHint(); got != 5 {
		t.Errorf("Expected size hint from data length, got %d", got)
	}
	if got := (Source{Data: []byte("12345"), Size: 2048}).SizeHint(); got != 2048 {
		t.Errorf("Expected reported size to win, got %d", got)
	}
}

func TestResultJSON(t *testing.T) {
	r := success(StrategyNative, &Artifact{Name: "cv.png", MediaType: "image/png", Data: []byte{1, 2, 3}})
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "error") {
		t.Errorf("Successful result should not serialize an error: %s", s)
	}
	if !strings.Contains(s, `"name":"cv.png"`) {
		t.Errorf("Expected artifact name in JSON: %s", s)
	}

	f := failure(StrategyCapture, ErrTimeout)
	if !f.Failed() || f.HasArtifact() {
		t.Errorf("Failure result should carry only an error: %+v", f)
	}
	p := passthrough(StrategyCapture, Source{URI: "/documents/1"})
	if p.Failed() || p.HasArtifact() || p.PreviewURI != "/documents/1" || p.MediaType != MediaTypePDF {
		t.Errorf("Unexpected passthrough result: %+v", p)
	}
}

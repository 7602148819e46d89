// Command preview converts documents to preview images from the command line
// using the same strategy pipeline as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/drummonds/docpreview/config"
	"github.com/drummonds/docpreview/engine"
	"github.com/drummonds/docpreview/preview"
	"github.com/dustin/go-humanize"
)

// outcome is what gets printed per converted file
type outcome struct {
	Input    string         `json:"input"`
	Output   string         `json:"output,omitempty"`
	Strategy string         `json:"strategy"`
	Elapsed  string         `json:"elapsed"`
	Result   preview.Result `json:"result"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "preview:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("preview", flag.ContinueOnError)
	flags.SetOutput(stderr)
	outDir := flags.String("out", ".", "Directory previews are written to")
	strategies := flags.String("strategies", "native,capture,synthetic", "Ordered, comma separated strategies")
	format := flags.String("format", "png", "Output format: png or jpeg")
	quality := flags.Int("quality", 95, "JPEG quality (1-100)")
	maxWidth := flags.Int("max-width", 0, "Downscale wider previews to this width (0 keeps the rendered size)")
	scale := flags.Float64("scale", preview.DefaultScale, "Native render scale (pixels per point)")
	engineBackend := flags.String("engine", "pdfium", "Native engine: pdfium or fitz")
	captureBackend := flags.String("capture", "chromedp", "Capture backend: chromedp, rod or none")
	captureTimeout := flags.Duration("timeout", preview.DefaultCaptureTimeout, "Capture readiness timeout")
	browserPath := flags.String("browser", "", "Browser executable for capture")
	verbose := flags.Bool("v", false, "Verbose logging")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: preview [flags] document.pdf [more.pdf ...]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("no input documents")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	engine.Logger = logger

	serverConfig := config.ServerConfig{TempPath: os.TempDir()}
	serverConfig.PreviewStrategies = *strategies
	serverConfig.PreviewFormat = *format
	serverConfig.PreviewQuality = *quality
	serverConfig.PreviewMaxWidth = *maxWidth
	serverConfig.PreviewScale = *scale
	serverConfig.EngineBackend = *engineBackend
	serverConfig.EngineWorkers = 1
	serverConfig.CaptureBackend = *captureBackend
	serverConfig.CaptureTimeout = *captureTimeout
	serverConfig.CaptureBrowserPath = *browserPath

	converter, err := engine.NewConverter(serverConfig, logger)
	if err != nil {
		return err
	}
	defer converter.Close()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	var failed int
	for _, input := range flags.Args() {
		o, err := convertFile(ctx, converter, input, *outDir)
		if err != nil {
			return err
		}
		if o.Result.Failed() {
			failed++
		}
		if err := encoder.Encode(o); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be previewed", failed, flags.NArg())
	}
	return nil
}

func convertFile(ctx context.Context, converter *engine.Converter, input, outDir string) (outcome, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return outcome{}, err
	}
	absInput, err := filepath.Abs(input)
	if err != nil {
		return outcome{}, err
	}

	start := time.Now()
	result := converter.Convert(ctx, preview.Source{
		Data:        data,
		DisplayName: filepath.Base(input),
		Size:        int64(len(data)),
		URI:         "file://" + filepath.ToSlash(absInput),
	})
	o := outcome{
		Input:    input,
		Strategy: result.Strategy.String(),
		Elapsed:  time.Since(start).Round(time.Millisecond).String(),
		Result:   result,
	}

	if result.HasArtifact() {
		o.Output = filepath.Join(outDir, result.Artifact.Name)
		if err := os.WriteFile(o.Output, result.Artifact.Data, 0644); err != nil {
			return outcome{}, fmt.Errorf("unable to write preview: %w", err)
		}
		engine.Logger.Info("Wrote preview", "input", input, "output", o.Output,
			"size", humanize.Bytes(uint64(len(result.Artifact.Data))))
	}
	return o, nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drummonds/docpreview/capture"
	"github.com/drummonds/docpreview/config"
	"github.com/drummonds/docpreview/engine/pdfrenderer"
	"github.com/drummonds/docpreview/preview"
)

// Converter is the assembled preview pipeline with the shared engine and browser loaders
type Converter struct {
	Pipeline  *preview.Pipeline
	Resources *preview.ResourceManager
	Engines   *preview.Loader[pdfrenderer.Engine]
	Browsers  *preview.Loader[preview.Browser]
	Format    preview.Format
	Order     []preview.Strategy
}

// NewConverter builds every strategy from the configuration. Nothing expensive
// happens here; engines and browsers are only started on first use.
func NewConverter(serverConfig config.ServerConfig, logger *slog.Logger) (*Converter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	format, err := preview.ParseFormat(serverConfig.PreviewFormat, serverConfig.PreviewQuality)
	if err != nil {
		return nil, err
	}
	order, err := preview.ParseStrategies(serverConfig.PreviewStrategies)
	if err != nil {
		return nil, err
	}

	engineConfig := pdfrenderer.Config{
		Backend:       serverConfig.EngineBackend,
		Workers:       serverConfig.EngineWorkers,
		WorkerTimeout: 30 * time.Second,
	}
	engines := preview.NewLoader("engine", func(ctx context.Context) (pdfrenderer.Engine, error) {
		return pdfrenderer.NewEngine(engineConfig)
	}, logger)

	browsers := preview.NewLoader("browser", capture.Factory(capture.Options{
		Backend:     serverConfig.CaptureBackend,
		BrowserPath: serverConfig.CaptureBrowserPath,
		RemoteURL:   serverConfig.CaptureRemoteURL,
		Logger:      logger,
	}), logger)

	resources := preview.NewResourceManager(serverConfig.TempPath, logger)

	renderers := make([]preview.Renderer, 0, len(order))
	for _, strategy := range order {
		switch strategy {
		case preview.StrategyNative:
			renderers = append(renderers, preview.NewNative(engines, preview.NativeOptions{
				Format:   format,
				Scale:    serverConfig.PreviewScale,
				MaxWidth: serverConfig.PreviewMaxWidth,
				Logger:   logger,
			}))
		case preview.StrategyCapture:
			renderers = append(renderers, preview.NewCapture(browsers, resources, preview.CaptureOptions{
				Timeout:           serverConfig.CaptureTimeout,
				Format:            format,
				MaxWidth:          serverConfig.PreviewMaxWidth,
				PreferPassthrough: serverConfig.PreferPassthrough,
				Logger:            logger,
			}))
		case preview.StrategySynthetic:
			renderers = append(renderers, preview.NewSynthetic(preview.SyntheticOptions{
				Format:   format,
				MaxWidth: serverConfig.PreviewMaxWidth,
				Logger:   logger,
			}))
		default:
			return nil, fmt.Errorf("no renderer for strategy %s", strategy)
		}
	}

	return &Converter{
		Pipeline:  preview.NewPipeline(logger, renderers...),
		Resources: resources,
		Engines:   engines,
		Browsers:  browsers,
		Format:    format,
		Order:     order,
	}, nil
}

// Convert runs the configured strategy order over one document
func (c *Converter) Convert(ctx context.Context, src preview.Source) preview.Result {
	return c.Pipeline.Convert(ctx, src)
}

// Warmup starts the native engine ahead of the first request
func (c *Converter) Warmup(ctx context.Context) error {
	_, err := c.Engines.Acquire(ctx)
	return err
}

// Close shuts down the engine and the browser if they were started
func (c *Converter) Close() error {
	return errors.Join(c.Browsers.Close(), c.Engines.Close())
}

package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/drummonds/docpreview/capture"
)

// engineWarmupTimeout bounds the background warm-up
const engineWarmupTimeout = 2 * time.Minute

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig := serverHandler.ServerConfig
	for _, dir := range []struct{ name, path string }{
		{"document", serverConfig.DocumentPath},
		{"preview", serverConfig.PreviewPath},
		{"temp", serverConfig.TempPath},
	} {
		if err := directoryChecks(dir.name, dir.path); err != nil {
			return err
		}
	}
	captureChecks(serverConfig.CaptureBackend, serverConfig.CaptureBrowserPath, serverConfig.CaptureRemoteURL)

	if serverConfig.EngineWarmup {
		go serverHandler.warmupEngine()
	}
	return nil
}

// warmupEngine loads the native engine so the first upload doesn't pay for it.
// A failure here is retried by the first conversion.
func (serverHandler *ServerHandler) warmupEngine() {
	ctx, cancel := context.WithTimeout(context.Background(), engineWarmupTimeout)
	defer cancel()
	start := time.Now()
	if err := serverHandler.Converter.Warmup(ctx); err != nil {
		Logger.Warn("Engine warm-up failed, native previews will retry on demand", "error", err)
		return
	}
	Logger.Info("Engine warmed up", "backend", serverHandler.ServerConfig.EngineBackend, "elapsed", time.Since(start))
}

func captureChecks(backend, browserPath, remoteURL string) {
	switch backend {
	case "none", "off", "disabled":
		Logger.Info("Capture disabled, capture previews will be skipped")
		return
	}
	if remoteURL != "" {
		Logger.Info("Capture will attach to a remote browser", "backend", backend, "url", remoteURL)
		return
	}
	if browserPath != "" {
		Logger.Info("Capture browser configured", "backend", backend, "path", browserPath)
		return
	}
	path, err := capture.FindBrowser()
	if err != nil {
		Logger.Warn("No browser found, capture previews will fail over", "backend", backend, "error", err)
		return
	}
	Logger.Info("Capture browser found", "backend", backend, "path", path)
}

// directoryChecks ensures a storage directory exists
func directoryChecks(name, path string) error {
	if path == "" {
		Logger.Warn("Path not configured", "directory", name)
		return nil
	}

	// Check if directory exists
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating directory", "directory", name, "path", path)
			if err := os.MkdirAll(path, 0755); err != nil {
				Logger.Error("Failed to create directory", "directory", name, "path", path, "error", err)
				return err
			}
			return nil
		}
		Logger.Error("Error checking directory", "directory", name, "path", path, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !info.IsDir() {
		Logger.Error("Path exists but is not a directory", "directory", name, "path", path)
		return fmt.Errorf("%s path is not a directory: %s", name, path)
	}

	Logger.Info("Directory exists", "directory", name, "path", path)
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/docpreview/config"
	database "github.com/drummonds/docpreview/database"
	engine "github.com/drummonds/docpreview/engine"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	// Parse command-line flags
	port := flag.String("port", "", "Port to run the server on (overrides SERVER_PORT)")
	flag.Parse()

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages
	if *port != "" {
		serverConfig.ListenAddrPort = *port
	}

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println("• Previews are still written to PREVIEW_PATH")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Database setup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	Logger.Info("Database setup complete")

	converter, err := engine.NewConverter(serverConfig, logger)
	if err != nil {
		Logger.Error("Invalid preview configuration", "error", err)
		os.Exit(1)
	}
	defer converter.Close()

	serverHandler, err := newServer(serverConfig, db, converter)
	if err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	scheduler := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- startServer(serverHandler.Echo, &serverConfig)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			Logger.Error("Server stopped", "error", err)
		}
	case <-ctx.Done():
		Logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serverHandler.Echo.Shutdown(shutdownCtx); err != nil {
			Logger.Error("Graceful shutdown failed", "error", err)
		}
	}
}

// newServer builds the echo instance with every route and runs the startup checks
func newServer(serverConfig config.ServerConfig, db database.Repository, converter *engine.Converter) (*engine.ServerHandler, error) {
	e := echo.New()
	e.HideBanner = true

	// Custom 404 handler for API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	serverHandler := &engine.ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Converter:    converter,
		Store: &engine.FileStore{
			DocumentPath: serverConfig.DocumentPath,
			PreviewPath:  serverConfig.PreviewPath,
		},
	}
	if err := serverHandler.StartupChecks(); err != nil {
		return nil, err
	}
	serverHandler.RegisterRoutes()
	return serverHandler, nil
}

// startServer tries successive ports when the configured one is in use
func startServer(e *echo.Echo, serverConfig *config.ServerConfig) error {
	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)
		if attempt > 0 {
			Logger.Warn("Server starting on alternative port due to conflicts",
				"requested_port", startPort, "actual_port", serverConfig.ListenAddrPort)
		}

		err := e.Start(addr)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if !isAddressInUse(err) {
			return err
		}

		Logger.Warn("Port already in use, trying next port",
			"port", serverConfig.ListenAddrPort,
			"attempt", attempt+1,
			"max_attempts", maxRetries)
		portNum := 0
		fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
		serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum+1)
	}
	return fmt.Errorf("no available port between %s and %s", startPort, serverConfig.ListenAddrPort)
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}

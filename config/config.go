package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	DocumentPath     string // originals are stored here
	PreviewPath      string // rendered artifacts are stored here
	TempPath         string // per-attempt temporary resources
	BaseURL          string
	PreviewConfig
	EngineConfig
	CaptureConfig
	MaintenanceConfig
}

// PreviewConfig stores the conversion settings
type PreviewConfig struct {
	PreviewFormat     string
	PreviewQuality    int
	PreviewMaxWidth   int
	PreviewScale      float64
	PreviewStrategies string // ordered, comma separated
	PreferPassthrough bool
	BatchConcurrency  int
	MaxUploadBytes    int64
}

// EngineConfig stores the native rendering engine settings
type EngineConfig struct {
	EngineBackend string
	EngineWorkers int
	EngineWarmup  bool
}

// CaptureConfig stores the capture browser settings
type CaptureConfig struct {
	CaptureBackend     string
	CaptureTimeout     time.Duration
	CaptureBrowserPath string
	CaptureRemoteURL   string
}

// MaintenanceConfig stores the housekeeping schedule
type MaintenanceConfig struct {
	SweepInterval        int // minutes
	TempMaxAge           time.Duration
	PreviewRetentionDays int
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

// getEnvDuration accepts Go durations ("2s") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// absPath resolves a configured directory, falling back to the relative path
func absPath(logger *slog.Logger, name, path string) string {
	abs, err := filepath.Abs(filepath.ToSlash(path))
	if err != nil {
		logger.Error("Failed creating absolute path", "name", name, "path", path, "error", err)
		return path
	}
	return abs
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	serverConfigLive := loadServerConfig(logger)

	fmt.Println("\n========================================")
	fmt.Println("   docpreview - Document Preview Service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "docpreview.log"))
	fmt.Println("Initializing...")

	logger.Info("About to setup database", "type", serverConfigLive.DatabaseType)
	return serverConfigLive, logger
}

// loadServerConfig reads every setting from the environment
func loadServerConfig(logger *slog.Logger) ServerConfig {
	cfg := ServerConfig{}

	// Server configuration
	cfg.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	cfg.ListenAddrIP = getEnv("SERVER_ADDR", "")
	cfg.BaseURL = getEnv("BASE_URL", "")

	// Database configuration
	cfg.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	cfg.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	cfg.DatabasePort = getEnv("DATABASE_PORT", "5432")
	cfg.DatabaseUser = getEnv("DATABASE_USER", "docpreview")
	cfg.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	cfg.DatabaseDbname = getEnv("DATABASE_NAME", "databases/docpreview.sqlite")
	cfg.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")
	logger.Info("Database configuration loaded", "type", cfg.DatabaseType)

	// Storage configuration
	cfg.DocumentPath = absPath(logger, "documents", getEnv("DOCUMENT_PATH", "documents"))
	cfg.PreviewPath = absPath(logger, "previews", getEnv("PREVIEW_PATH", "previews"))
	cfg.TempPath = absPath(logger, "temp", getEnv("TEMP_PATH", filepath.Join(os.TempDir(), "docpreview")))

	// Conversion configuration
	cfg.PreviewFormat = getEnv("PREVIEW_FORMAT", "png")
	cfg.PreviewQuality = getEnvInt("PREVIEW_QUALITY", 95)
	cfg.PreviewMaxWidth = getEnvInt("PREVIEW_MAX_WIDTH", 0)
	cfg.PreviewScale = getEnvFloat("PREVIEW_SCALE", 1.5)
	cfg.PreviewStrategies = getEnv("PREVIEW_STRATEGIES", "native,capture,synthetic")
	cfg.PreferPassthrough = getEnvBool("PREVIEW_PREFER_PASSTHROUGH", true)
	cfg.BatchConcurrency = getEnvInt("BATCH_CONCURRENCY", 4)
	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20

	// Engine configuration
	cfg.EngineBackend = getEnv("ENGINE_BACKEND", "pdfium")
	cfg.EngineWorkers = getEnvInt("ENGINE_WORKERS", 2)
	cfg.EngineWarmup = getEnvBool("ENGINE_WARMUP", true)

	// Capture configuration
	cfg.CaptureBackend = getEnv("CAPTURE_BACKEND", "chromedp")
	cfg.CaptureTimeout = getEnvDuration("CAPTURE_TIMEOUT", 2*time.Second)
	cfg.CaptureBrowserPath = getEnv("CAPTURE_BROWSER_PATH", "")
	cfg.CaptureRemoteURL = getEnv("CAPTURE_REMOTE_URL", "")
	if cfg.CaptureBrowserPath != "" {
		if err := checkExecutables(cfg.CaptureBrowserPath, logger); err != nil {
			logger.Warn("Configured browser not found, falling back to discovery", "path", cfg.CaptureBrowserPath)
			cfg.CaptureBrowserPath = ""
		}
	}

	// Maintenance configuration
	cfg.SweepInterval = getEnvInt("SWEEP_INTERVAL", 30)
	cfg.TempMaxAge = getEnvDuration("TEMP_MAX_AGE", time.Hour)
	cfg.PreviewRetentionDays = getEnvInt("PREVIEW_RETENTION_DAYS", 0)

	logger.Info("Preview configuration loaded",
		"strategies", cfg.PreviewStrategies,
		"format", cfg.PreviewFormat,
		"engine", cfg.EngineBackend,
		"capture", cfg.CaptureBackend,
		"captureTimeout", cfg.CaptureTimeout)
	return cfg
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "docpreview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// GetPreferredOutboundIP gets preferred outbound IP of this machine
func GetPreferredOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP, nil
}

// checkExecutables verifies that an executable exists at the given path
func checkExecutables(path string, logger *slog.Logger) error {
	_, err := os.Stat(path)
	if err != nil {
		logger.Error("Cannot find executable at location specified", "path", path)
		return err
	}
	logger.Debug("Executable found", "path", path)
	return nil
}

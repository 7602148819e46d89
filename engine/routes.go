package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/drummonds/docpreview/config"
	"github.com/drummonds/docpreview/database"
	"github.com/drummonds/docpreview/inspect"
	"github.com/drummonds/docpreview/preview"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Converter    *Converter
	Store        *FileStore
}

// errTooLarge is returned for uploads above MaxUploadBytes
var errTooLarge = errors.New("upload exceeds the configured size limit")

// RegisterRoutes adds every API and viewer route to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo

	// Preview API routes
	e.POST("/api/previews", serverHandler.UploadPreview)
	e.POST("/api/previews/batch", serverHandler.BatchPreviews)
	e.GET("/api/previews", serverHandler.GetLatestPreviews)
	e.GET("/api/previews/:id", serverHandler.GetPreview)

	// Admin API routes
	e.POST("/api/cleanup", serverHandler.RunCleanupNow)
	e.GET("/api/health", serverHandler.GetHealth)

	// Job tracking API routes
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	// File routes (serve actual files - not JSON, so not under /api/*)
	e.GET("/previews/:id/image", serverHandler.GetPreviewImage)
	e.GET("/previews/:id/view", serverHandler.ViewPreview)
	e.GET("/documents/:id", serverHandler.GetDocument)
}

// UploadPreview stores an uploaded document and converts it to a preview.
// The original is kept even when every strategy fails.
func (serverHandler *ServerHandler) UploadPreview(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Missing multipart field \"file\"",
		})
	}
	data, err := serverHandler.readUpload(fileHeader)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]interface{}{
				"error": err.Error(),
				"limit": humanize.IBytes(uint64(serverHandler.ServerConfig.MaxUploadBytes)),
			})
		}
		Logger.Error("Unable to read upload", "name", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Unable to read upload",
		})
	}

	record, err := serverHandler.createPreview(c.Request().Context(), fileHeader.Filename, data)
	if err != nil {
		Logger.Error("Unable to store document", "name", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Unable to store document",
		})
	}
	return c.JSON(http.StatusOK, record)
}

// readUpload reads an uploaded file, refusing anything above the size limit
func (serverHandler *ServerHandler) readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	limit := serverHandler.ServerConfig.MaxUploadBytes
	if limit > 0 && fileHeader.Size > limit {
		return nil, fmt.Errorf("%w: %s", errTooLarge, humanize.IBytes(uint64(fileHeader.Size)))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

// createPreview is the whole lifecycle of one document: store the original,
// record it, inspect it, convert it and record the outcome
func (serverHandler *ServerHandler) createPreview(ctx context.Context, displayName string, data []byte) (*database.Preview, error) {
	start := time.Now()
	id, err := database.CalculateUUID(start)
	if err != nil {
		return nil, fmt.Errorf("cannot generate ULID: %w", err)
	}
	displayName = filepath.Base(strings.TrimSpace(displayName))

	documentPath, hash, err := serverHandler.Store.SaveDocument(id, displayName, data)
	if err != nil {
		return nil, err
	}
	record := &database.Preview{
		ID:           id,
		Name:         displayName,
		DocumentPath: documentPath,
		DocumentSize: int64(len(data)),
		DocumentHash: hash,
		MediaType:    mediaTypeFor(displayName, data),
		CreatedAt:    start,
	}
	serverHandler.inspectDocument(record, data)
	if err := serverHandler.DB.SavePreview(record); err != nil {
		serverHandler.Store.Remove(documentPath)
		return nil, fmt.Errorf("unable to save preview record: %w", err)
	}

	result := serverHandler.Converter.Convert(ctx, preview.Source{
		Data:        data,
		DisplayName: displayName,
		Size:        int64(len(data)),
		URI:         serverHandler.documentURL(record),
		MediaType:   record.MediaType,
	})
	serverHandler.applyResult(record, result)
	record.ElapsedMS = time.Since(start).Milliseconds()

	if err := serverHandler.DB.SavePreview(record); err != nil {
		Logger.Error("Unable to record preview outcome", "id", id.String(), "error", err)
	}
	Logger.Info("Preview created", "id", id.String(), "name", displayName,
		"size", humanize.Bytes(uint64(len(data))), "strategy", record.Strategy,
		"passthrough", record.Passthrough, "error", record.Error, "elapsed", time.Since(start))
	return record, nil
}

// applyResult copies the conversion outcome onto the record, storing the raster if there is one
func (serverHandler *ServerHandler) applyResult(record *database.Preview, result preview.Result) {
	record.Strategy = result.Strategy.String()
	switch {
	case result.Passthrough:
		record.Passthrough = true
		record.PreviewURI = result.PreviewURI
	case result.HasArtifact():
		artifactPath, err := serverHandler.Store.SaveArtifact(record.ID, result.Artifact)
		if err != nil {
			Logger.Error("Unable to store preview artifact", "id", record.ID.String(), "error", err)
			record.Error = err.Error()
			return
		}
		record.ArtifactPath = artifactPath
		record.ArtifactName = result.Artifact.Name
		record.ArtifactType = result.Artifact.MediaType
		record.ArtifactSize = int64(len(result.Artifact.Data))
		record.PreviewURI = "/previews/" + record.ID.String() + "/image"
	default:
		record.Error = result.ErrorMessage
	}
}

// inspectDocument fills best-effort metadata; failures are only logged
func (serverHandler *ServerHandler) inspectDocument(record *database.Preview, data []byte) {
	info, err := inspect.Inspect(data)
	if err != nil {
		Logger.Debug("Document inspection failed", "name", record.Name, "error", err)
		return
	}
	record.Pages = info.Pages
	record.PageWidth = info.Width
	record.PageHeight = info.Height
	record.HasText = info.HasText
}

// documentURL is the durable address of the stored original
func (serverHandler *ServerHandler) documentURL(record *database.Preview) string {
	return strings.TrimSuffix(serverHandler.ServerConfig.BaseURL, "/") + "/documents/" + record.ID.String()
}

func mediaTypeFor(displayName string, data []byte) string {
	if strings.EqualFold(filepath.Ext(displayName), ".pdf") || bytes.HasPrefix(data, []byte("%PDF")) {
		return preview.MediaTypePDF
	}
	return http.DetectContentType(data)
}

// GetLatestPreviews returns the most recent previews
func (serverHandler *ServerHandler) GetLatestPreviews(c echo.Context) error {
	limit := 20
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	previews, err := serverHandler.DB.GetLatestPreviews(limit)
	if err != nil {
		Logger.Error("Failed to get latest previews", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve previews",
		})
	}
	if previews == nil {
		previews = []database.Preview{}
	}
	return c.JSON(http.StatusOK, previews)
}

// GetPreview returns one preview record by ULID
func (serverHandler *ServerHandler) GetPreview(c echo.Context) error {
	record, httpStatus, err := database.FetchPreview(c.Param("id"), serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{"error": err.Error()})
	}
	return c.JSON(httpStatus, record)
}

// GetPreviewImage serves the stored raster
func (serverHandler *ServerHandler) GetPreviewImage(c echo.Context) error {
	record, httpStatus, err := database.FetchPreview(c.Param("id"), serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{"error": err.Error()})
	}
	if !record.HasArtifact() {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Preview has no image",
		})
	}
	return c.Inline(record.ArtifactPath, record.ArtifactName)
}

// ViewPreview shows the raster when there is one and the original document otherwise
func (serverHandler *ServerHandler) ViewPreview(c echo.Context) error {
	record, httpStatus, err := database.FetchPreview(c.Param("id"), serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{"error": err.Error()})
	}
	if record.HasArtifact() {
		if _, err := os.Stat(record.ArtifactPath); err == nil {
			return c.Inline(record.ArtifactPath, record.ArtifactName)
		}
		Logger.Warn("Preview image missing, showing original", "id", record.ID.String(), "path", record.ArtifactPath)
	}
	return c.Inline(record.DocumentPath, record.Name)
}

// GetDocument serves the stored original
func (serverHandler *ServerHandler) GetDocument(c echo.Context) error {
	record, httpStatus, err := database.FetchPreview(c.Param("id"), serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{"error": err.Error()})
	}
	return c.Inline(record.DocumentPath, record.Name)
}

// GetHealth returns information about the service configuration and state
func (serverHandler *ServerHandler) GetHealth(c echo.Context) error {
	count, err := serverHandler.DB.CountPreviews()
	if err != nil {
		Logger.Error("Health check database query failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  "Database unavailable",
		})
	}

	order := make([]string, 0, len(serverHandler.Converter.Order))
	for _, strategy := range serverHandler.Converter.Order {
		order = append(order, strategy.String())
	}

	healthInfo := map[string]interface{}{
		"status":        "ok",
		"databaseType":  serverHandler.ServerConfig.DatabaseType,
		"previews":      count,
		"strategies":    order,
		"format":        serverHandler.Converter.Format.Name,
		"engineBackend": serverHandler.ServerConfig.EngineBackend,
		"engineReady":   serverHandler.Converter.Engines.Ready(),
		"captureReady":  serverHandler.Converter.Browsers.Ready(),
		"liveResources": serverHandler.Converter.Resources.Live(),
		"maxUpload":     humanize.IBytes(uint64(serverHandler.ServerConfig.MaxUploadBytes)),
	}
	return c.JSON(http.StatusOK, healthInfo)
}

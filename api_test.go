package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	config "github.com/drummonds/docpreview/config"
	database "github.com/drummonds/docpreview/database"
	engine "github.com/drummonds/docpreview/engine"
)

// setupTestServer creates a test server with all routes configured. Previews
// come from the synthetic strategy only, so no engine or browser is needed.
func setupTestServer(t *testing.T) *engine.ServerHandler {
	t.Helper()
	injectGlobals(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tempDir := t.TempDir()
	serverConfig := config.ServerConfig{
		DatabaseType:   "sqlite",
		DatabaseDbname: filepath.Join(tempDir, "api.sqlite"),
		DocumentPath:   filepath.Join(tempDir, "documents"),
		PreviewPath:    filepath.Join(tempDir, "previews"),
		TempPath:       filepath.Join(tempDir, "temp"),
	}
	serverConfig.PreviewStrategies = "synthetic"
	serverConfig.PreviewFormat = "jpeg"
	serverConfig.PreviewQuality = 80
	serverConfig.MaxUploadBytes = 1 << 20
	serverConfig.CaptureBackend = "none"
	serverConfig.TempMaxAge = time.Hour

	db, err := database.NewRepository(serverConfig)
	if err != nil {
		t.Fatalf("Failed to setup database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	converter, err := engine.NewConverter(serverConfig, Logger)
	if err != nil {
		t.Fatalf("Failed to build converter: %v", err)
	}
	t.Cleanup(func() { converter.Close() })

	serverHandler, err := newServer(serverConfig, db, converter)
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}
	return serverHandler
}

func TestUploadPreviewThroughServer(t *testing.T) {
	serverHandler := setupTestServer(t)
	e := serverHandler.Echo

	content, err := os.ReadFile(filepath.Join("preview", "testdata", "resume.pdf"))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "Jane Doe CV.PDF")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write file content: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/previews", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var record database.Preview
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if record.ArtifactName != "Jane Doe CV.jpg" || record.ArtifactType != "image/jpeg" {
		t.Errorf("Unexpected artifact %q (%q)", record.ArtifactName, record.ArtifactType)
	}
	if record.Strategy != "synthetic" {
		t.Errorf("Expected synthetic strategy, got %q", record.Strategy)
	}

	req = httptest.NewRequest(http.MethodGet, record.PreviewURI, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected image, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte{0xff, 0xd8}) {
		t.Error("Body is not a JPEG")
	}
}

func TestHealthEndpoint(t *testing.T) {
	serverHandler := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" || response["format"] != "jpeg" {
		t.Errorf("Unexpected health response: %v", response)
	}
}

func TestUnknownEndpointReturnsJSON(t *testing.T) {
	serverHandler := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil)
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Expected a JSON body: %v", err)
	}
	if response["path"] != "/api/does-not-exist" {
		t.Errorf("Unexpected body: %v", response)
	}
}

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drummonds/docpreview/config"
	"github.com/drummonds/docpreview/database"
	"github.com/drummonds/docpreview/preview"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

type namedFile struct {
	name string
	data []byte
}

// newTestHandler wires a handler on a temporary sqlite database. The native
// engine and capture browser are unavailable, so conversions fall through to synthetic.
func newTestHandler(t *testing.T, mutate func(*config.ServerConfig)) *ServerHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	Logger = logger
	database.Logger = logger

	tempDir := t.TempDir()
	serverConfig := config.ServerConfig{
		DatabaseType:   "sqlite",
		DatabaseDbname: filepath.Join(tempDir, "test.sqlite"),
		DocumentPath:   filepath.Join(tempDir, "documents"),
		PreviewPath:    filepath.Join(tempDir, "previews"),
		TempPath:       filepath.Join(tempDir, "temp"),
	}
	serverConfig.PreviewFormat = "png"
	serverConfig.PreviewStrategies = "native,capture,synthetic"
	serverConfig.PreferPassthrough = true
	serverConfig.BatchConcurrency = 2
	serverConfig.MaxUploadBytes = 1 << 20
	serverConfig.EngineBackend = "unavailable"
	serverConfig.CaptureBackend = "none"
	serverConfig.CaptureTimeout = 100 * time.Millisecond
	serverConfig.TempMaxAge = time.Hour
	if mutate != nil {
		mutate(&serverConfig)
	}

	db, err := database.NewRepository(serverConfig)
	if err != nil {
		t.Fatalf("Failed to set up database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	converter, err := NewConverter(serverConfig, logger)
	if err != nil {
		t.Fatalf("Failed to build converter: %v", err)
	}
	t.Cleanup(func() { converter.Close() })

	serverHandler := &ServerHandler{
		DB:           db,
		Echo:         echo.New(),
		ServerConfig: serverConfig,
		Converter:    converter,
		Store:        &FileStore{DocumentPath: serverConfig.DocumentPath, PreviewPath: serverConfig.PreviewPath},
	}
	if err := serverHandler.StartupChecks(); err != nil {
		t.Fatalf("Startup checks failed: %v", err)
	}
	serverHandler.RegisterRoutes()
	return serverHandler
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "preview", "testdata", name))
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", name, err)
	}
	return data
}

func multipartRequest(t *testing.T, target, field string, files ...namedFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range files {
		part, err := writer.CreateFormFile(field, file.name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(file.data)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func serve(serverHandler *ServerHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	return rec
}

func get(serverHandler *ServerHandler, target string) *httptest.ResponseRecorder {
	return serve(serverHandler, httptest.NewRequest(http.MethodGet, target, nil))
}

func uploadPreview(t *testing.T, serverHandler *ServerHandler, name string, data []byte) database.Preview {
	t.Helper()
	rec := serve(serverHandler, multipartRequest(t, "/api/previews", "file", namedFile{name, data}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload returned %d: %s", rec.Code, rec.Body.String())
	}
	var record database.Preview
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	return record
}

func TestUploadPreviewFallsBackToSynthetic(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	data := readFixture(t, "resume.pdf")

	record := uploadPreview(t, serverHandler, "resume.pdf", data)
	if record.Strategy != "synthetic" {
		t.Errorf("Expected synthetic strategy, got %q (error %q)", record.Strategy, record.Error)
	}
	if record.Error != "" || record.Passthrough {
		t.Errorf("Unexpected outcome: %+v", record)
	}
	if record.ArtifactName != "resume.png" || record.ArtifactType != "image/png" {
		t.Errorf("Unexpected artifact: %q %q", record.ArtifactName, record.ArtifactType)
	}
	if record.Pages != 10 || record.PageWidth != 612 || record.PageHeight != 792 {
		t.Errorf("Expected inspected metadata, got pages=%d %vx%v", record.Pages, record.PageWidth, record.PageHeight)
	}
	if record.PreviewURI != "/previews/"+record.ID.String()+"/image" {
		t.Errorf("Unexpected preview URI %q", record.PreviewURI)
	}

	stored, err := serverHandler.DB.GetPreview(record.ID.String())
	if err != nil {
		t.Fatalf("Preview not recorded: %v", err)
	}
	if _, err := os.Stat(stored.ArtifactPath); err != nil {
		t.Errorf("Artifact not stored: %v", err)
	}

	rec := get(serverHandler, "/previews/"+record.ID.String()+"/image")
	if rec.Code != http.StatusOK {
		t.Fatalf("Image returned %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}

	rec = get(serverHandler, "/previews/"+record.ID.String()+"/view")
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("Viewer should show the raster, got %d %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}

	rec = get(serverHandler, "/documents/"+record.ID.String())
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("Original document not served intact (status %d, %d bytes)", rec.Code, rec.Body.Len())
	}
}

func TestUploadPreviewKeepsOriginalWhenAllStrategiesFail(t *testing.T) {
	serverHandler := newTestHandler(t, func(serverConfig *config.ServerConfig) {
		serverConfig.PreviewStrategies = "native"
	})
	data := readFixture(t, "single.pdf")

	record := uploadPreview(t, serverHandler, "single.pdf", data)
	if record.Error == "" {
		t.Fatal("Expected a conversion error")
	}
	if record.ArtifactName != "" || record.Passthrough {
		t.Errorf("Failed conversion should have no artifact: %+v", record)
	}

	rec := get(serverHandler, "/previews/"+record.ID.String()+"/image")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing image, got %d", rec.Code)
	}

	// The viewer falls back to the original
	rec = get(serverHandler, "/previews/"+record.ID.String()+"/view")
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("Viewer should show the original, got %d", rec.Code)
	}
}

func TestUploadRejections(t *testing.T) {
	serverHandler := newTestHandler(t, func(serverConfig *config.ServerConfig) {
		serverConfig.MaxUploadBytes = 16
	})

	rec := serve(serverHandler, multipartRequest(t, "/api/previews", "other", namedFile{"a.pdf", []byte("%PDF")}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without file field, got %d", rec.Code)
	}

	rec = serve(serverHandler, multipartRequest(t, "/api/previews", "file", namedFile{"big.pdf", bytes.Repeat([]byte("x"), 64)}))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversized upload, got %d", rec.Code)
	}

	count, err := serverHandler.DB.CountPreviews()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Rejected uploads should not be recorded, got %d", count)
	}
}

func TestGetPreviewStatus(t *testing.T) {
	serverHandler := newTestHandler(t, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/previews/not-a-ulid", http.StatusBadRequest},
		{"/api/previews/" + ulid.Make().String(), http.StatusNotFound},
		{"/documents/" + ulid.Make().String(), http.StatusNotFound},
		{"/api/jobs/not-a-ulid", http.StatusBadRequest},
		{"/api/jobs/" + ulid.Make().String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := get(serverHandler, tt.target); rec.Code != tt.want {
			t.Errorf("GET %s: expected %d, got %d", tt.target, tt.want, rec.Code)
		}
	}
}

func TestLatestPreviewsAndHealth(t *testing.T) {
	serverHandler := newTestHandler(t, nil)

	rec := get(serverHandler, "/api/previews")
	if rec.Code != http.StatusOK || bytes.TrimSpace(rec.Body.Bytes())[0] != '[' {
		t.Fatalf("Expected an empty list, got %d %s", rec.Code, rec.Body.String())
	}

	uploadPreview(t, serverHandler, "a.pdf", readFixture(t, "single.pdf"))
	uploadPreview(t, serverHandler, "b.pdf", readFixture(t, "single.pdf"))

	rec = get(serverHandler, "/api/previews?limit=1")
	var previews []database.Preview
	if err := json.Unmarshal(rec.Body.Bytes(), &previews); err != nil {
		t.Fatalf("Failed to decode previews: %v", err)
	}
	if len(previews) != 1 {
		t.Errorf("Expected limit to apply, got %d previews", len(previews))
	}

	rec = get(serverHandler, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Health returned %d", rec.Code)
	}
	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health["previews"] != float64(2) || health["liveResources"] != float64(0) {
		t.Errorf("Unexpected health: %v", health)
	}
	strategies, _ := health["strategies"].([]interface{})
	if len(strategies) != 3 || strategies[0] != "native" {
		t.Errorf("Unexpected strategies: %v", health["strategies"])
	}
}

func waitForJob(t *testing.T, serverHandler *ServerHandler, jobID string) database.Job {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		rec := get(serverHandler, "/api/jobs/"+jobID)
		if rec.Code != http.StatusOK {
			t.Fatalf("Job lookup returned %d", rec.Code)
		}
		var job database.Job
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatalf("Failed to decode job: %v", err)
		}
		if job.Done() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish", jobID)
	return database.Job{}
}

func TestBatchPreviews(t *testing.T) {
	serverHandler := newTestHandler(t, nil)

	rec := serve(serverHandler, multipartRequest(t, "/api/previews/batch", "files",
		namedFile{"resume.pdf", readFixture(t, "resume.pdf")},
		namedFile{"single.pdf", readFixture(t, "single.pdf")},
		namedFile{"broken.pdf", []byte("not a document")},
	))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Batch returned %d: %s", rec.Code, rec.Body.String())
	}
	var started map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	job := waitForJob(t, serverHandler, started["jobId"])
	if job.Status != database.JobStatusCompleted || job.Type != database.JobTypeBatch {
		t.Fatalf("Unexpected job: %+v", job)
	}
	var summary database.JobSummary
	if err := json.Unmarshal([]byte(job.Result), &summary); err != nil {
		t.Fatalf("Failed to decode summary %q: %v", job.Result, err)
	}
	// Synthetic previews never look at the bytes, so even the broken file converts
	if summary.FilesProcessed != 3 || summary.FilesTotal != 3 || summary.Errors != 0 || len(summary.PreviewIDs) != 3 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	rec = get(serverHandler, "/api/jobs")
	var jobs []database.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil || len(jobs) != 1 {
		t.Errorf("Expected one job listed, got %d (%v)", len(jobs), err)
	}

	// The job view decodes the batch outcome into viewer links
	rec = get(serverHandler, "/api/jobs/"+started["jobId"])
	var view struct {
		Batch    *database.JobSummary `json:"batch"`
		Previews []string             `json:"previews"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("Failed to decode job view: %v", err)
	}
	if view.Batch == nil || view.Batch.FilesProcessed != 3 || len(view.Previews) != 3 {
		t.Fatalf("Unexpected job view: %s", rec.Body.String())
	}
	if rec := get(serverHandler, view.Previews[0]); rec.Code != http.StatusOK {
		t.Errorf("Viewer link %s returned %d", view.Previews[0], rec.Code)
	}

	rec = get(serverHandler, "/api/jobs?type=cleanup")
	jobs = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil || len(jobs) != 0 {
		t.Errorf("Expected no cleanup jobs, got %d (%v)", len(jobs), err)
	}
	if rec := get(serverHandler, "/api/jobs?type=ocr"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown job type, got %d", rec.Code)
	}

	rec = serve(serverHandler, multipartRequest(t, "/api/previews/batch", "files"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty batch, got %d", rec.Code)
	}
}

func TestCleanupRemovesExpiredPreviews(t *testing.T) {
	serverHandler := newTestHandler(t, func(serverConfig *config.ServerConfig) {
		serverConfig.PreviewRetentionDays = 1
	})
	store := serverHandler.Store

	oldID := ulid.Make()
	documentPath, hash, err := store.SaveDocument(oldID, "old.pdf", []byte("%PDF-1.4 old"))
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	artifactPath, err := store.SaveArtifact(oldID, &preview.Artifact{Name: "old.png", MediaType: "image/png", Data: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("SaveArtifact failed: %v", err)
	}
	old := &database.Preview{ID: oldID, Name: "old.pdf", DocumentPath: documentPath, DocumentHash: hash,
		MediaType: preview.MediaTypePDF, ArtifactPath: artifactPath, Strategy: "synthetic",
		CreatedAt: time.Now().Add(-48 * time.Hour)}
	if err := serverHandler.DB.SavePreview(old); err != nil {
		t.Fatalf("SavePreview failed: %v", err)
	}
	fresh := uploadPreview(t, serverHandler, "fresh.pdf", readFixture(t, "single.pdf"))

	stale := filepath.Join(serverHandler.ServerConfig.TempPath, preview.TempPrefix+"crashed.pdf")
	if err := os.WriteFile(stale, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	longAgo := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, longAgo, longAgo); err != nil {
		t.Fatal(err)
	}

	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "test", 3)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	summary, err := serverHandler.cleanup(job.ID)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if summary.TempRemoved != 1 || summary.PreviewsRemoved != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	for _, path := range []string{documentPath, artifactPath, stale} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected %s removed", path)
		}
	}
	if _, err := serverHandler.DB.GetPreview(oldID.String()); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected expired record deleted, got %v", err)
	}
	if _, err := serverHandler.DB.GetPreview(fresh.ID.String()); err != nil {
		t.Errorf("Fresh preview should survive: %v", err)
	}
}

func TestRunCleanupNow(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	rec := serve(serverHandler, httptest.NewRequest(http.MethodPost, "/api/cleanup", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Cleanup returned %d", rec.Code)
	}
	var started map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	job := waitForJob(t, serverHandler, started["jobId"])
	if job.Status != database.JobStatusCompleted || job.Type != database.JobTypeCleanup {
		t.Errorf("Unexpected job: %+v", job)
	}

	rec = get(serverHandler, "/api/jobs/"+started["jobId"])
	var view struct {
		Cleanup *CleanupSummary `json:"cleanup"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil || view.Cleanup == nil {
		t.Errorf("Expected the cleanup summary on the job, got %s (%v)", rec.Body.String(), err)
	}
}

func TestNewConverter(t *testing.T) {
	base := config.ServerConfig{}
	base.PreviewStrategies = "synthetic,native"
	base.PreviewFormat = "jpeg"
	base.CaptureBackend = "none"

	converter, err := NewConverter(base, nil)
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}
	order := converter.Pipeline.Order()
	if len(order) != 2 || order[0] != preview.StrategySynthetic || order[1] != preview.StrategyNative {
		t.Errorf("Unexpected order: %v", order)
	}
	if converter.Format.Extension != ".jpg" {
		t.Errorf("Expected jpeg format, got %+v", converter.Format)
	}
	if converter.Engines.Ready() || converter.Browsers.Ready() {
		t.Error("Nothing should be loaded before first use")
	}

	bad := base
	bad.PreviewStrategies = "native,teleport"
	if _, err := NewConverter(bad, nil); err == nil {
		t.Error("Expected error for unknown strategy")
	}
	bad = base
	bad.PreviewFormat = "gif"
	if _, err := NewConverter(bad, nil); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestDirectoryChecks(t *testing.T) {
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := filepath.Join(t.TempDir(), "nested", "documents")
	if err := directoryChecks("document", dir); err != nil {
		t.Fatalf("Expected directory to be created: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("Directory not created: %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain")
	os.WriteFile(file, nil, 0644)
	if err := directoryChecks("document", file); err == nil {
		t.Error("Expected error for a file path")
	}
}

func TestFileStore(t *testing.T) {
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &FileStore{DocumentPath: t.TempDir(), PreviewPath: t.TempDir()}
	id := ulid.Make()

	path, hash, err := store.SaveDocument(id, "", []byte("hello"))
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if filepath.Base(path) != id.String()+".pdf" {
		t.Errorf("Unexpected document path %s", path)
	}
	if hash != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("Unexpected hash %s", hash)
	}

	if _, err := store.SaveArtifact(id, &preview.Artifact{Name: "x.png"}); !errors.Is(err, preview.ErrEncode) {
		t.Errorf("Expected ErrEncode for empty artifact, got %v", err)
	}

	if err := store.Remove(path, "", filepath.Join(store.PreviewPath, "missing.png")); err != nil {
		t.Errorf("Remove should ignore missing files: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Document not removed")
	}
}

// damagedCopies returns resume.pdf with a few bytes overwritten in each copy
func damagedCopies(t *testing.T, n int) []namedFile {
	t.Helper()
	data := readFixture(t, "resume.pdf")
	rng := rand.New(rand.NewPCG(7, 11))
	files := make([]namedFile, n)
	for i := range files {
		out := append([]byte(nil), data...)
		for k := 1 + rng.IntN(8); k > 0; k-- {
			out[8+rng.IntN(len(out)-8)] = byte(rng.IntN(256))
		}
		files[i] = namedFile{fmt.Sprintf("scan-%d.PDF", i), out}
	}
	return files
}

func TestUploadDamagedDocuments(t *testing.T) {
	serverHandler := newTestHandler(t, nil)

	for _, f := range damagedCopies(t, 40) {
		record := uploadPreview(t, serverHandler, f.name, f.data)
		if record.Strategy != "synthetic" || record.ArtifactName == "" {
			t.Fatalf("Expected a placeholder for %s, got %+v", f.name, record)
		}
		stored, err := serverHandler.DB.GetPreview(record.ID.String())
		if err != nil {
			t.Fatalf("Record for %s not saved: %v", f.name, err)
		}
		original, err := os.ReadFile(stored.DocumentPath)
		if err != nil || !bytes.Equal(original, f.data) {
			t.Fatalf("Original of %s not stored intact: %v", f.name, err)
		}
	}
}

func TestBatchDamagedDocuments(t *testing.T) {
	serverHandler := newTestHandler(t, nil)

	files := damagedCopies(t, 20)
	rec := serve(serverHandler, multipartRequest(t, "/api/previews/batch", "files", files...))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Batch returned %d: %s", rec.Code, rec.Body.String())
	}
	var started map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	job := waitForJob(t, serverHandler, started["jobId"])
	if job.Status != database.JobStatusCompleted {
		t.Fatalf("Unexpected job: %+v", job)
	}
	var summary database.JobSummary
	if err := json.Unmarshal([]byte(job.Result), &summary); err != nil {
		t.Fatalf("Failed to decode summary %q: %v", job.Result, err)
	}
	if summary.FilesProcessed != len(files) || summary.Errors != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestConvertUploadRecoversPanic(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	serverHandler.Store = nil // SaveDocument dereferences the store

	record, err := serverHandler.convertUpload(context.Background(), upload{name: "scan.PDF", data: []byte("%PDF-1.4")})
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Errorf("Expected the panic as an error, got %v", err)
	}
	if record != nil {
		t.Errorf("Expected no record, got %+v", record)
	}
}

func TestUploadRecordsTextPresence(t *testing.T) {
	serverHandler := newTestHandler(t, nil)

	record := uploadPreview(t, serverHandler, "hello.pdf", readFixture(t, "single.pdf"))
	if record.Pages != 1 || !record.HasText {
		t.Errorf("Expected one page with text, got pages=%d hasText=%v", record.Pages, record.HasText)
	}
}

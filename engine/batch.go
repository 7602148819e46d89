package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/drummonds/docpreview/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// upload is one file of a batch, read fully before the request returns
type upload struct {
	name string
	data []byte
}

// BatchPreviews accepts several files under the "files" field and converts
// them in the background, tracked as a job
func (serverHandler *ServerHandler) BatchPreviews(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Expected a multipart form",
		})
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No files in multipart field \"files\"",
		})
	}

	uploads := make([]upload, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		data, err := serverHandler.readUpload(fileHeader)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": fmt.Sprintf("%s: %v", fileHeader.Filename, err),
			})
		}
		uploads = append(uploads, upload{name: fileHeader.Filename, data: data})
	}

	job, err := serverHandler.DB.CreateJob(database.JobTypeBatch, fmt.Sprintf("Converting %d documents", len(uploads)), len(uploads))
	if err != nil {
		Logger.Error("Failed to create batch job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	// Run the batch in a goroutine so we can return immediately
	go serverHandler.batchJobFuncWithTracking(job.ID, uploads)

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Batch conversion started",
		"jobId":   job.ID.String(),
	})
}

// batchJobFuncWithTracking converts the uploads with bounded concurrency,
// reporting progress on the job
func (serverHandler *ServerHandler) batchJobFuncWithTracking(jobID ulid.ULID, uploads []upload) {
	db := serverHandler.DB
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in batch job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Converting documents"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	limit := serverHandler.ServerConfig.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}

	var (
		mu      sync.Mutex
		summary = database.JobSummary{FilesTotal: len(uploads)}
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(limit)
	for _, u := range uploads {
		g.Go(func() error {
			record, err := serverHandler.convertUpload(ctx, u)

			mu.Lock()
			defer mu.Unlock()
			summary.FilesProcessed++
			if err != nil {
				Logger.Error("Failed to convert batch document", "name", u.name, "error", err)
				summary.Errors++
			} else {
				summary.BytesProcessed += record.DocumentSize
				summary.PreviewIDs = append(summary.PreviewIDs, record.ID.String())
				if record.Error != "" {
					summary.Errors++
				}
			}
			progress := summary.FilesProcessed * 100 / summary.FilesTotal
			if err := db.UpdateJobProgress(jobID, progress, u.name); err != nil {
				Logger.Warn("Failed to update job progress", "jobID", jobID, "error", err)
			}
			// Per-file failures are counted, never abort the batch
			return nil
		})
	}
	g.Wait()

	result, err := json.Marshal(summary)
	if err != nil {
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to encode summary: %v", err))
		return
	}
	if err := db.CompleteJob(jobID, string(result)); err != nil {
		Logger.Error("Failed to mark job as complete", "error", err)
	}
	Logger.Info("Batch job completed", "jobID", jobID, "processed", summary.FilesProcessed, "errors", summary.Errors)
}

// convertUpload runs one batch file. A panic only fails that file, errgroup
// goroutines would otherwise take the process down.
func (serverHandler *ServerHandler) convertUpload(ctx context.Context, u upload) (record *database.Preview, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered converting batch document", "name", u.name, "panic", r)
			record, err = nil, fmt.Errorf("panic converting %s: %v", u.name, r)
		}
	}()
	return serverHandler.createPreview(ctx, u.name, u.data)
}

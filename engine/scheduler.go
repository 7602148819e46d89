package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/drummonds/docpreview/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// finished jobs are kept this long
const jobRetention = 7 * 24 * time.Hour

// CleanupSummary is the result of one housekeeping run
type CleanupSummary struct {
	TempRemoved     int `json:"tempRemoved"`
	PreviewsRemoved int `json:"previewsRemoved"`
	JobsRemoved     int `json:"jobsRemoved"`
}

// InitializeSchedules starts the housekeeping cron job
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	interval := serverHandler.ServerConfig.SweepInterval
	if interval <= 0 {
		interval = 30
	}

	c := cron.New()
	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(serverHandler.cleanupJobFunc)
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), cleanupJob); err != nil {
		Logger.Error("Unable to schedule cleanup job", "error", err)
	}
	Logger.Info("Adding cleanup job scheduler", "interval_minutes", interval)
	c.Start()
	return c
}

// RunCleanupNow triggers housekeeping manually
func (serverHandler *ServerHandler) RunCleanupNow(c echo.Context) error {
	Logger.Info("Cleanup triggered via API")

	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "Starting cleanup", 3)
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	go serverHandler.cleanupJobFuncWithTracking(job.ID)

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Cleanup started",
		"jobId":   job.ID.String(),
	})
}

func (serverHandler *ServerHandler) cleanupJobFunc() {
	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "Scheduled cleanup", 3)
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return
	}
	serverHandler.cleanupJobFuncWithTracking(job.ID)
}

// cleanupJobFuncWithTracking performs housekeeping with job tracking
func (serverHandler *ServerHandler) cleanupJobFuncWithTracking(jobID ulid.ULID) {
	db := serverHandler.DB
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Cleaning up"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	summary, err := serverHandler.cleanup(jobID)
	if err != nil {
		Logger.Error("Cleanup failed", "jobID", jobID, "error", err)
		db.UpdateJobError(jobID, err.Error())
		return
	}

	result, _ := json.Marshal(summary)
	if err := db.CompleteJob(jobID, string(result)); err != nil {
		Logger.Error("Failed to mark job as complete", "error", err)
	}
	Logger.Info("Cleanup job completed", "jobID", jobID, "temp", summary.TempRemoved,
		"previews", summary.PreviewsRemoved, "jobs", summary.JobsRemoved)
}

// cleanup removes stale temporary resources, expired previews and old jobs
func (serverHandler *ServerHandler) cleanup(jobID ulid.ULID) (CleanupSummary, error) {
	var summary CleanupSummary
	db := serverHandler.DB

	maxAge := serverHandler.ServerConfig.TempMaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	db.UpdateJobProgress(jobID, 10, "Sweeping temporary files")
	removed, err := serverHandler.Converter.Resources.Sweep(maxAge)
	if err != nil {
		// A partial sweep is retried next run
		Logger.Warn("Temporary sweep incomplete", "error", err)
	}
	summary.TempRemoved = removed

	if days := serverHandler.ServerConfig.PreviewRetentionDays; days > 0 {
		db.UpdateJobProgress(jobID, 40, "Removing expired previews")
		cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		expired, err := db.DeletePreviewsOlderThan(cutoff)
		if err != nil {
			return summary, fmt.Errorf("unable to delete expired previews: %w", err)
		}
		for _, record := range expired {
			if err := serverHandler.Store.Remove(record.DocumentPath, record.ArtifactPath); err != nil {
				Logger.Warn("Unable to remove files of expired preview", "id", record.ID.String(), "error", err)
			}
		}
		summary.PreviewsRemoved = len(expired)
	}

	db.UpdateJobProgress(jobID, 80, "Removing old jobs")
	jobs, err := db.DeleteOldJobs(jobRetention)
	if err != nil {
		return summary, fmt.Errorf("unable to delete old jobs: %w", err)
	}
	summary.JobsRemoved = jobs
	return summary, nil
}

package engine

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/drummonds/docpreview/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// jobView is a job with its result decoded for the kind of job it is
type jobView struct {
	database.Job
	Batch   *database.JobSummary `json:"batch,omitempty"`
	Cleanup *CleanupSummary      `json:"cleanup,omitempty"`
	// Viewer links of the previews a batch produced
	Previews []string `json:"previews,omitempty"`
}

func newJobView(job database.Job) jobView {
	view := jobView{Job: job}
	if job.Result == "" {
		return view
	}
	switch job.Type {
	case database.JobTypeBatch:
		var summary database.JobSummary
		if err := json.Unmarshal([]byte(job.Result), &summary); err != nil {
			Logger.Warn("Unreadable batch summary", "jobID", job.ID.String(), "error", err)
			return view
		}
		view.Batch = &summary
		for _, id := range summary.PreviewIDs {
			view.Previews = append(view.Previews, "/previews/"+id+"/view")
		}
	case database.JobTypeCleanup:
		var summary CleanupSummary
		if err := json.Unmarshal([]byte(job.Result), &summary); err != nil {
			Logger.Warn("Unreadable cleanup summary", "jobID", job.ID.String(), "error", err)
			return view
		}
		view.Cleanup = &summary
	}
	return view
}

// GetJob returns a batch or cleanup job with its decoded outcome
func (serverHandler *ServerHandler) GetJob(c echo.Context) error {
	jobID, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid job ID format",
		})
	}

	job, err := serverHandler.DB.GetJob(jobID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Job not found",
		})
	case err != nil:
		Logger.Error("Failed to get job", "jobID", jobID.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve job",
		})
	}
	return c.JSON(http.StatusOK, newJobView(*job))
}

// GetRecentJobs lists recent jobs, newest first. ?type=batch|cleanup narrows
// the list, ?limit and ?offset page through it.
func (serverHandler *ServerHandler) GetRecentJobs(c echo.Context) error {
	jobType, err := database.ParseJobType(c.QueryParam("type"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}
	limit, offset := 20, 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	jobs, err := serverHandler.DB.GetRecentJobs(limit, offset, jobType)
	if err != nil {
		Logger.Error("Failed to get recent jobs", "type", jobType, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve jobs",
		})
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	return c.JSON(http.StatusOK, views)
}

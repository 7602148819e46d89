package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Preview is everything stored about one conversion
type Preview struct {
	ID           ulid.ULID `json:"id"`
	Name         string    `json:"name"` // display name as uploaded
	DocumentPath string    `json:"-"`
	DocumentSize int64     `json:"documentSize"`
	DocumentHash string    `json:"documentHash"`
	MediaType    string    `json:"mediaType"`
	ArtifactPath string    `json:"-"`
	ArtifactName string    `json:"artifactName,omitempty"`
	ArtifactType string    `json:"artifactType,omitempty"`
	ArtifactSize int64     `json:"artifactSize,omitempty"`
	Strategy     string    `json:"strategy"`
	Passthrough  bool      `json:"passthrough"`
	PreviewURI   string    `json:"previewUri,omitempty"`
	Error        string    `json:"error,omitempty"`
	Pages        int       `json:"pages,omitempty"`
	PageWidth    float64   `json:"pageWidth,omitempty"`
	PageHeight   float64   `json:"pageHeight,omitempty"`
	HasText      bool      `json:"hasText"`
	ElapsedMS    int64     `json:"elapsedMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasArtifact reports whether a raster was stored for this preview
func (p *Preview) HasArtifact() bool { return p.ArtifactPath != "" }

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	SavePreview(preview *Preview) error
	GetPreview(id string) (*Preview, error)
	GetLatestPreviews(limit int) ([]Preview, error)
	CountPreviews() (int, error)
	DeletePreviewsOlderThan(cutoff time.Time) ([]Preview, error)
	// Job tracking methods
	CreateJob(jobType JobType, message string, totalSteps int) (*Job, error)
	UpdateJobProgress(jobID ulid.ULID, progress int, currentStep string) error
	UpdateJobStatus(jobID ulid.ULID, status JobStatus, message string) error
	UpdateJobError(jobID ulid.ULID, errorMsg string) error
	CompleteJob(jobID ulid.ULID, result string) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int, jobType JobType) ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
}

// FetchPreview fetches the requested preview by ULID, with the HTTP status to report
func FetchPreview(id string, db Repository) (*Preview, int, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, http.StatusBadRequest, err
	}
	found, err := db.GetPreview(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, http.StatusNotFound, err
		}
		Logger.Error("Database error fetching preview", "id", id, "error", err)
		return nil, http.StatusInternalServerError, err
	}
	return found, http.StatusOK, nil
}

// CalculateUUID for the incoming file
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunPreview represents the previews table for Bun ORM
type BunPreview struct {
	bun.BaseModel `bun:"table:previews,alias:p"`

	ID           string    `bun:"id,pk"` // ULID stored as string
	Name         string    `bun:"name,notnull"`
	DocumentPath string    `bun:"document_path,notnull"`
	DocumentSize int64     `bun:"document_size,notnull"`
	DocumentHash string    `bun:"document_hash,notnull"`
	MediaType    string    `bun:"media_type,notnull"`
	ArtifactPath string    `bun:"artifact_path,nullzero"`
	ArtifactName string    `bun:"artifact_name,nullzero"`
	ArtifactType string    `bun:"artifact_type,nullzero"`
	ArtifactSize int64     `bun:"artifact_size,notnull,default:0"`
	Strategy     string    `bun:"strategy,notnull"`
	Passthrough  bool      `bun:"passthrough,notnull,default:false"`
	PreviewURI   string    `bun:"preview_uri,nullzero"`
	Error        string    `bun:"error,nullzero"`
	Pages        int       `bun:"pages,notnull,default:0"`
	PageWidth    float64   `bun:"page_width,notnull,default:0"`
	PageHeight   float64   `bun:"page_height,notnull,default:0"`
	HasText      bool      `bun:"has_text,notnull,default:false"`
	ElapsedMS    int64     `bun:"elapsed_ms,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ToPreview converts BunPreview to Preview
func (bp *BunPreview) ToPreview() (*Preview, error) {
	parsedULID, err := ulid.Parse(bp.ID)
	if err != nil {
		return nil, err
	}
	return &Preview{
		ID:           parsedULID,
		Name:         bp.Name,
		DocumentPath: bp.DocumentPath,
		DocumentSize: bp.DocumentSize,
		DocumentHash: bp.DocumentHash,
		MediaType:    bp.MediaType,
		ArtifactPath: bp.ArtifactPath,
		ArtifactName: bp.ArtifactName,
		ArtifactType: bp.ArtifactType,
		ArtifactSize: bp.ArtifactSize,
		Strategy:     bp.Strategy,
		Passthrough:  bp.Passthrough,
		PreviewURI:   bp.PreviewURI,
		Error:        bp.Error,
		Pages:        bp.Pages,
		PageWidth:    bp.PageWidth,
		PageHeight:   bp.PageHeight,
		HasText:      bp.HasText,
		ElapsedMS:    bp.ElapsedMS,
		CreatedAt:    bp.CreatedAt,
	}, nil
}

// FromPreview converts Preview to BunPreview
func FromPreview(p *Preview) *BunPreview {
	return &BunPreview{
		ID:           p.ID.String(),
		Name:         p.Name,
		DocumentPath: p.DocumentPath,
		DocumentSize: p.DocumentSize,
		DocumentHash: p.DocumentHash,
		MediaType:    p.MediaType,
		ArtifactPath: p.ArtifactPath,
		ArtifactName: p.ArtifactName,
		ArtifactType: p.ArtifactType,
		ArtifactSize: p.ArtifactSize,
		Strategy:     p.Strategy,
		Passthrough:  p.Passthrough,
		PreviewURI:   p.PreviewURI,
		Error:        p.Error,
		Pages:        p.Pages,
		PageWidth:    p.PageWidth,
		PageHeight:   p.PageHeight,
		HasText:      p.HasText,
		ElapsedMS:    p.ElapsedMS,
		CreatedAt:    p.CreatedAt,
	}
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"`
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,notnull"`
	Progress    int        `bun:"progress,notnull,default:0"`
	CurrentStep string     `bun:"current_step,nullzero"`
	TotalSteps  int        `bun:"total_steps,notnull,default:0"`
	Message     string     `bun:"message,nullzero"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

package dto

import "github.com/noah-isme/coursehub-api/internal/models"

// ExportRequest captures the POST /exports payload.
type ExportRequest struct {
	Format   models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	CourseID string              `json:"courseId" validate:"omitempty,uuid"`
	Term     string              `json:"term" validate:"max=32"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

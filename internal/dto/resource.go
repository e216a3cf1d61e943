package dto

import (
	"time"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// CourseLinkInput attaches a resource to a course, an offering, or both.
// At least one of the ids must be set.
type CourseLinkInput struct {
	CourseID   *string `json:"courseId" validate:"omitempty,uuid"`
	OfferingID *string `json:"offeringId" validate:"omitempty,uuid"`
}

// CreateResourceRequest is the body of POST /resources. Structured tag
// fields are rewritten into canonical tags before persisting.
type CreateResourceRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=4000"`
	Type        models.ResourceType `json:"type" validate:"required,resourcetype"`
	URL         *string             `json:"url" validate:"omitempty,url"`
	CourseLinks []CourseLinkInput   `json:"courseLinks" validate:"max=10,dive"`
	models.TagFields
}

// UpdateResourceRequest is the body of PUT /resources/:id.
type UpdateResourceRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=4000"`
	URL         *string           `json:"url" validate:"omitempty,url"`
	CourseLinks []CourseLinkInput `json:"courseLinks" validate:"max=10,dive"`
	models.TagFields
}

// ResourceView is a resource together with its derived tag labels.
type ResourceView struct {
	models.Resource
	Labels models.ResourceTagSet `json:"labels"`
}

// ResourceQuery captures GET /resources query parameters.
type ResourceQuery struct {
	Search     string `form:"search"`
	Type       string `form:"type"`
	CourseID   string `form:"courseId"`
	UploadedBy string `form:"uploadedBy"`
	Tag        string `form:"tag"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
	SortBy     string `form:"sortBy"`
	SortOrder  string `form:"sortOrder"`
}

// ResourceDownloadResponse carries a short-lived signed download link.
type ResourceDownloadResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

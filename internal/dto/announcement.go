package dto

import (
	"time"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// AnnouncementRequest is the body of POST and PUT /announcements.
type AnnouncementRequest struct {
	Title       string                      `json:"title" validate:"required,max=200"`
	Content     string                      `json:"content" validate:"required"`
	Priority    models.AnnouncementPriority `json:"priority" validate:"omitempty,priority"`
	IsPinned    bool                        `json:"isPinned"`
	PublishedAt *time.Time                  `json:"publishedAt"`
	ExpiresAt   *time.Time                  `json:"expiresAt"`
}

package models

import "time"

// AnnouncementPriority defines ordering for announcements.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow    AnnouncementPriority = "LOW"
	AnnouncementPriorityNormal AnnouncementPriority = "NORMAL"
	AnnouncementPriorityHigh   AnnouncementPriority = "HIGH"
)

// Announcement is a site-wide notice published by administrators.
type Announcement struct {
	ID          string               `db:"id" json:"id"`
	Title       string               `db:"title" json:"title"`
	Content     string               `db:"content" json:"content"`
	Priority    AnnouncementPriority `db:"priority" json:"priority"`
	IsPinned    bool                 `db:"is_pinned" json:"isPinned"`
	PublishedAt time.Time            `db:"published_at" json:"publishedAt"`
	ExpiresAt   *time.Time           `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedBy   string               `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updatedAt"`
}

// AnnouncementFilter allows listing announcements.
type AnnouncementFilter struct {
	IncludeExpired bool
	Page           int
	PageSize       int
}

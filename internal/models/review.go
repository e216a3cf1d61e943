package models

import "time"

// Review is a user's rating and comment on a course.
type Review struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"courseId"`
	OfferingID *string   `db:"offering_id" json:"offeringId,omitempty"`
	UserID     string    `db:"user_id" json:"userId"`
	AuthorName string    `db:"author_name" json:"authorName"`
	Rating     int       `db:"rating" json:"rating"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// ReviewSummary aggregates ratings for a course.
type ReviewSummary struct {
	CourseID      string  `db:"course_id" json:"courseId"`
	ReviewCount   int     `db:"review_count" json:"reviewCount"`
	AverageRating float64 `db:"average_rating" json:"averageRating"`
}

// ReviewFilter scopes review listing.
type ReviewFilter struct {
	CourseID string
	UserID   string
	Page     int
	PageSize int
}

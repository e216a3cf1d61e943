package models

import (
	"time"

	"github.com/lib/pq"
)

// Course is a catalogue course.
type Course struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Credits    float64   `db:"credits" json:"credits"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Offering is one instance of a course taught in a term by one or more instructors.
type Offering struct {
	ID          string         `db:"id" json:"id"`
	CourseID    string         `db:"course_id" json:"courseId"`
	Term        string         `db:"term" json:"term"`
	Instructors pq.StringArray `db:"instructors" json:"instructors"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// CourseFilter defines course list filters.
type CourseFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

package dto

import "github.com/noah-isme/coursehub-api/internal/models"

// CreateCourseRequest is the body of POST /courses.
type CreateCourseRequest struct {
	Code       string  `json:"code" validate:"required,max=32"`
	Name       string  `json:"name" validate:"required,max=200"`
	Department string  `json:"department" validate:"max=100"`
	Credits    float64 `json:"credits" validate:"gte=0,lte=20"`
}

// CreateOfferingRequest is the body of POST /courses/:id/offerings.
type CreateOfferingRequest struct {
	Term        string   `json:"term" validate:"required,max=32"`
	Instructors []string `json:"instructors" validate:"max=10,dive,required,max=64"`
}

// CourseQuery captures GET /courses query parameters.
type CourseQuery struct {
	Search     string `form:"search"`
	Department string `form:"department"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
	SortBy     string `form:"sortBy"`
	SortOrder  string `form:"sortOrder"`
}

// CourseDetail is a course with its offerings and rating summary.
type CourseDetail struct {
	models.Course
	Offerings []models.Offering    `json:"offerings"`
	Reviews   models.ReviewSummary `json:"reviews"`
}

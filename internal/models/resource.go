package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ResourceType enumerates the kinds of shared course material.
type ResourceType string

const (
	ResourceTypeFile ResourceType = "FILE"
	ResourceTypeLink ResourceType = "LINK"
	ResourceTypeNote ResourceType = "NOTE"
)

// Valid reports whether the type is supported.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeFile, ResourceTypeLink, ResourceTypeNote:
		return true
	default:
		return false
	}
}

// Resource is an uploaded file, link, or note associated with a course.
type Resource struct {
	ID            string         `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Slug          string         `db:"slug" json:"slug"`
	Description   string         `db:"description" json:"description"`
	Type          ResourceType   `db:"type" json:"type"`
	URL           *string        `db:"url" json:"url,omitempty"`
	FilePath      *string        `db:"file_path" json:"-"`
	MimeType      *string        `db:"mime_type" json:"mimeType,omitempty"`
	SizeBytes     int64          `db:"size_bytes" json:"sizeBytes"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	CourseLinks   []CourseLink   `db:"-" json:"courseLinks"`
	DownloadCount int            `db:"download_count" json:"downloadCount"`
	UploadedBy    string         `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
	DeletedAt     *time.Time     `db:"deleted_at" json:"deletedAt,omitempty"`
}

// CourseLink associates a resource with a course and optionally a concrete offering.
type CourseLink struct {
	ID         string        `db:"id" json:"id,omitempty"`
	ResourceID string        `db:"resource_id" json:"resourceId,omitempty"`
	CourseID   *string       `db:"course_id" json:"courseId,omitempty"`
	OfferingID *string       `db:"offering_id" json:"offeringId,omitempty"`
	Offering   *OfferingView `db:"-" json:"offering,omitempty"`
}

// OfferingView is the denormalised offering shape embedded in course links.
type OfferingView struct {
	Term       string         `json:"term,omitempty"`
	Instructor InstructorList `json:"instructor,omitempty"`
	Course     *CourseRef     `json:"course,omitempty"`
}

// CourseRef carries the display fields of a linked course.
type CourseRef struct {
	ID   string `json:"id,omitempty"`
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// InstructorList accepts either a single name or a list of names.
type InstructorList []string

// UnmarshalJSON normalises a scalar string into a one-element list. Values
// that are neither a string nor a list decode to an empty list, and non-string
// list elements are skipped.
func (l *InstructorList) UnmarshalJSON(data []byte) error {
	*l = nil
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		names := make(InstructorList, 0, len(raw))
		for _, item := range raw {
			var name *string
			if err := json.Unmarshal(item, &name); err != nil || name == nil {
				continue
			}
			names = append(names, *name)
		}
		*l = names
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil || single == "" {
		return nil
	}
	*l = InstructorList{single}
	return nil
}

// Value stores the list as a postgres text array.
func (l InstructorList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

// Scan reads a postgres text array.
func (l *InstructorList) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan instructor list: %w", err)
	}
	*l = InstructorList(arr)
	return nil
}

// CourseLinkRow is the flattened join row used to hydrate course links.
type CourseLinkRow struct {
	ID          string         `db:"id"`
	ResourceID  string         `db:"resource_id"`
	CourseID    *string        `db:"course_id"`
	OfferingID  *string        `db:"offering_id"`
	Term        *string        `db:"term"`
	Instructors InstructorList `db:"instructors"`
	CourseCode  *string        `db:"course_code"`
	CourseName  *string        `db:"course_name"`
}

// ResourceFilter captures list filters for resources.
type ResourceFilter struct {
	Search     string
	Type       ResourceType
	CourseID   string
	UploadedBy string
	Tag        string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

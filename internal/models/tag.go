package models

// ResourceTagSet is the derived display view of a resource's tags. It is
// recomputed from the resource on every read and never persisted.
type ResourceTagSet struct {
	Term        []string `json:"term"`
	CourseName  []string `json:"courseName"`
	CourseCode  []string `json:"courseCode"`
	Instructors []string `json:"instructors"`
	Others      []string `json:"others"`
}

// TagFields is the structured write-side form of a resource's tags.
type TagFields struct {
	Terms       []string `json:"terms"`
	CourseCode  string   `json:"courseCode"`
	Instructors []string `json:"instructors"`
	Tags        []string `json:"tags"`
}

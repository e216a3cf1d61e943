package tagparser

import (
	"strings"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// Canonical (write-side) prefixes. Only the Chinese form is ever persisted.
const (
	PrefixTerm       = "开课学期:"
	PrefixCourseCode = "课程代码:"
	PrefixInstructor = "开课老师:"
)

// CanonicalTag renders a structured value with its canonical prefix. It
// returns "" when the trimmed value is empty.
func CanonicalTag(field Field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	switch field {
	case FieldTerm:
		return PrefixTerm + value
	case FieldCourseCode:
		return PrefixCourseCode + value
	case FieldInstructor:
		return PrefixInstructor + value
	default:
		return ""
	}
}

// Canonicalize builds the tag list persisted for a resource: terms, the
// course code, instructors, then free tags. Free tags that already carry a
// recognised prefix in either language are rewritten to the canonical form.
func Canonicalize(fields models.TagFields) []string {
	out := make([]string, 0, len(fields.Terms)+len(fields.Instructors)+len(fields.Tags)+1)
	seen := make(map[string]struct{})
	push := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	for _, term := range fields.Terms {
		push(CanonicalTag(FieldTerm, term))
	}
	push(CanonicalTag(FieldCourseCode, fields.CourseCode))
	for _, name := range fields.Instructors {
		push(CanonicalTag(FieldInstructor, name))
	}

	for _, tag := range fields.Tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		field, value, matched := Classify(tag)
		if matched {
			push(CanonicalTag(field, value))
			continue
		}
		// free tags keep duplicates, mirroring how they are read back
		out = append(out, tag)
	}
	return out
}

// CanonicalizeTags rewrites an already flat tag list into canonical form.
func CanonicalizeTags(tags []string) []string {
	return Canonicalize(models.TagFields{Tags: tags})
}

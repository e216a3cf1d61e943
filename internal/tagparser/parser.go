// Package tagparser derives display buckets (term, course, course code,
// instructors, free tags) from a resource's flat tag list and its linked
// course offerings.
//
// Some tags carry structured values behind a bilingual prefix such as
// "开课学期:2024秋" or "Term: 2024秋". Parsing never fails: malformed or absent
// input yields empty buckets.
package tagparser

import (
	"regexp"
	"strings"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// Field identifies a structured tag field.
type Field string

const (
	FieldTerm       Field = "term"
	FieldCourseCode Field = "courseCode"
	FieldInstructor Field = "instructor"
)

type prefixRule struct {
	field    Field
	prefixes []string
}

// Order matters: the first matching rule wins.
var rules = []prefixRule{
	{field: FieldTerm, prefixes: []string{"开课学期:", "Term:"}},
	{field: FieldCourseCode, prefixes: []string{"课程代码:", "Course Code:"}},
	{field: FieldInstructor, prefixes: []string{"开课老师:", "Instructor:"}},
}

var bareTermPattern = regexp.MustCompile(`^\d{4}[春秋]$`)

// Option tunes parser behaviour.
type Option func(*Parser)

// WithBareTermPattern additionally classifies unprefixed tags shaped like
// "2024秋" as terms.
func WithBareTermPattern(enabled bool) Option {
	return func(p *Parser) {
		p.bareTerm = enabled
	}
}

// Parser classifies resource tags. The zero value applies the strict prefix rules.
type Parser struct {
	bareTerm bool
}

// New constructs a parser.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse classifies the resource with the strict prefix rules.
func Parse(resource models.Resource) models.ResourceTagSet {
	return defaultParser.Parse(resource)
}

// Parse derives the tag buckets for a resource.
func (p *Parser) Parse(resource models.Resource) models.ResourceTagSet {
	term := newOrderedSet()
	courseName := newOrderedSet()
	courseCode := newOrderedSet()
	instructors := newOrderedSet()
	others := make([]string, 0, len(resource.Tags))

	for _, link := range resource.CourseLinks {
		offering := link.Offering
		if offering == nil {
			continue
		}
		term.add(offering.Term)
		for _, name := range offering.Instructor {
			instructors.add(name)
		}
		if offering.Course != nil {
			courseName.add(offering.Course.Name)
		}
	}

	for _, tag := range resource.Tags {
		field, value, matched := p.Classify(tag)
		if !matched {
			others = append(others, tag)
			continue
		}
		switch field {
		case FieldTerm:
			term.add(value)
		case FieldCourseCode:
			courseCode.add(value)
		case FieldInstructor:
			instructors.add(value)
		}
	}

	return models.ResourceTagSet{
		Term:        term.items,
		CourseName:  courseName.items,
		CourseCode:  courseCode.items,
		Instructors: instructors.items,
		Others:      others,
	}
}

// Classify reports which structured field a tag belongs to. matched is false
// for free tags; a matched tag with an empty value is still matched so callers
// drop it instead of treating it as a free tag.
func (p *Parser) Classify(tag string) (field Field, value string, matched bool) {
	for _, rule := range rules {
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(tag, prefix) {
				return rule.field, extractValue(tag), true
			}
		}
	}
	if p != nil && p.bareTerm && bareTermPattern.MatchString(tag) {
		return FieldTerm, tag, true
	}
	return "", "", false
}

// Classify runs the strict rules against a single tag.
func Classify(tag string) (Field, string, bool) {
	return defaultParser.Classify(tag)
}

// extractValue returns everything after the first colon, trimmed. Later
// colons stay part of the value.
func extractValue(tag string) string {
	_, value, found := strings.Cut(tag, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{items: []string{}, seen: map[string]struct{}{}}
}

// add appends non-empty values not seen before.
func (s *orderedSet) add(value string) {
	if value == "" {
		return
	}
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.items = append(s.items, value)
}

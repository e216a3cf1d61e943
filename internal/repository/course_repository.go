package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = "23505"

func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

var courseSorts = map[string]string{
	"code":      "code",
	"name":      "name",
	"createdAt": "created_at",
}

// CourseRepository manages courses and their offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns a page of courses and the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args), len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		where = append(where, fmt.Sprintf("department = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	order := orderBy(filter.SortBy, filter.SortOrder, courseSorts, "code")
	if filter.SortBy == "" && filter.SortOrder == "" {
		order = "code ASC"
	}

	query := fmt.Sprintf(`SELECT id, code, name, department, credits, created_at, updated_at FROM courses WHERE %s ORDER BY %s LIMIT %d OFFSET %d`, whereClause, order, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM courses WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, department, credits, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// Create inserts a course; a duplicate code yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now

	const query = `INSERT INTO courses (id, code, name, department, credits, created_at, updated_at)
VALUES (:id, :code, :name, :department, :credits, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", translateUnique(err))
	}
	return nil
}

// ListOfferings returns every offering of a course, newest term first.
func (r *CourseRepository) ListOfferings(ctx context.Context, courseID string) ([]models.Offering, error) {
	const query = `SELECT id, course_id, term, instructors, created_at, updated_at FROM course_offerings WHERE course_id = $1 ORDER BY term DESC, created_at DESC`
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, courseID); err != nil {
		return nil, fmt.Errorf("list course offerings: %w", err)
	}
	return offerings, nil
}

// FindOffering returns an offering by id.
func (r *CourseRepository) FindOffering(ctx context.Context, id string) (*models.Offering, error) {
	const query = `SELECT id, course_id, term, instructors, created_at, updated_at FROM course_offerings WHERE id = $1`
	var offering models.Offering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course offering: %w", err)
	}
	return &offering, nil
}

// CreateOffering inserts an offering; a duplicate (course, term) yields ErrDuplicate.
func (r *CourseRepository) CreateOffering(ctx context.Context, offering *models.Offering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	if offering.Instructors == nil {
		offering.Instructors = pq.StringArray{}
	}
	now := time.Now().UTC()
	offering.CreatedAt, offering.UpdatedAt = now, now

	const query = `INSERT INTO course_offerings (id, course_id, term, instructors, created_at, updated_at)
VALUES (:id, :course_id, :term, :instructors, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create course offering: %w", translateUnique(err))
	}
	return nil
}

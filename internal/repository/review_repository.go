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

	"github.com/noah-isme/coursehub-api/internal/models"
)

const reviewColumns = `rv.id, rv.course_id, rv.offering_id, rv.user_id, COALESCE(u.display_name, '') AS author_name, rv.rating, rv.content, rv.created_at, rv.updated_at`

// ReviewRepository stores course reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// List returns reviews newest first with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		where = append(where, fmt.Sprintf("rv.course_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("rv.user_id = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM course_reviews rv LEFT JOIN users u ON u.id = rv.user_id WHERE %s ORDER BY rv.created_at DESC LIMIT %d OFFSET %d`, reviewColumns, whereClause, size, offset)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM course_reviews rv WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// FindByID returns a single review.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_reviews rv LEFT JOIN users u ON u.id = rv.user_id WHERE rv.id = $1`, reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &review, nil
}

// Create inserts a review. The (course_id, user_id) unique index turns a
// second review by the same user into ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt, review.UpdatedAt = now, now

	const query = `INSERT INTO course_reviews (id, course_id, offering_id, user_id, rating, content, created_at, updated_at)
VALUES (:id, :course_id, :offering_id, :user_id, :rating, :content, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", translateUnique(err))
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Summary aggregates the rating count and mean for a course.
func (r *ReviewRepository) Summary(ctx context.Context, courseID string) (*models.ReviewSummary, error) {
	const query = `SELECT $1::text AS course_id, COUNT(*) AS review_count, COALESCE(AVG(rating), 0)::float8 AS average_rating
FROM course_reviews WHERE course_id = $1`
	var summary models.ReviewSummary
	if err := r.db.GetContext(ctx, &summary, query, courseID); err != nil {
		return nil, fmt.Errorf("summarize reviews: %w", err)
	}
	return &summary, nil
}

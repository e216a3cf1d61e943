package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

func TestReviewRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_reviews rv LEFT JOIN users u ON u.id = rv.user_id WHERE 1=1 AND rv.course_id = $1 ORDER BY rv.created_at DESC LIMIT 5 OFFSET 0")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "offering_id", "user_id", "author_name", "rating", "content", "created_at", "updated_at"}).
			AddRow("rev-1", "course-1", nil, "user-1", "小明", 5, "讲得很清楚", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM course_reviews rv WHERE 1=1 AND rv.course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reviews, total, err := repo.List(context.Background(), models.ReviewFilter{CourseID: "course-1", PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "小明", reviews[0].AuthorName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_reviews")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "course_reviews_course_id_user_id_key"})

	err := repo.Create(context.Background(), &models.Review{CourseID: "course-1", UserID: "user-1", Rating: 4})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReviewRepositorySummary(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(AVG(rating), 0)::float8 AS average_rating")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "review_count", "average_rating"}).AddRow("course-1", 3, 4.333))

	summary, err := repo.Summary(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ReviewCount)
	assert.InDelta(t, 4.333, summary.AverageRating, 0.001)
}

func TestReviewRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_reviews WHERE id = $1")).
		WithArgs("rev-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "rev-x"), sql.ErrNoRows)
}

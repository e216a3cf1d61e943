package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

func TestCourseRepositoryListDefaultsToCodeOrder(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE 1=1 AND (LOWER(code) LIKE $1 OR LOWER(name) LIKE $1) ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WithArgs("%math%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "department", "credits", "created_at", "updated_at"}).
			AddRow("course-1", "MATH101", "高等数学", "Math", 4.0, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses")).
		WithArgs("%math%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Search: "MATH"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "高等数学", courses[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "courses_code_key"})

	err := repo.Create(context.Background(), &models.Course{Code: "MATH101", Name: "高等数学"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListOfferings(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_offerings WHERE course_id = $1 ORDER BY term DESC")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "term", "instructors", "created_at", "updated_at"}).
			AddRow("off-1", "course-1", "2024秋", `{张三}`, now, now).
			AddRow("off-2", "course-1", "2023春", `{张三,李四}`, now, now))

	offerings, err := repo.ListOfferings(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, offerings, 2)
	assert.Equal(t, []string{"张三", "李四"}, []string(offerings[1].Instructors))
	require.NoError(t, mock.ExpectationsWereMet())
}

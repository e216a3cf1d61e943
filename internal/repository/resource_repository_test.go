package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var resourceRowColumns = []string{"id", "title", "slug", "description", "type", "url", "file_path", "mime_type", "size_bytes", "tags", "download_count", "uploaded_by", "created_at", "updated_at", "deleted_at"}

var linkRowColumns = []string{"id", "resource_id", "course_id", "offering_id", "term", "instructors", "course_code", "course_name"}

func TestResourceRepositoryFindByIDHydratesLinks(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM resources r WHERE r.id = $1 AND r.deleted_at IS NULL")).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows(resourceRowColumns).
			AddRow("res-1", "期末复习", "期末复习", "", "NOTE", nil, nil, nil, 0, `{"开课老师:李四",重点推荐}`, 3, "user-1", now, now, nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rc.resource_id = ANY($1)")).
		WithArgs(pq.Array([]string{"res-1"})).
		WillReturnRows(sqlmock.NewRows(linkRowColumns).
			AddRow("link-1", "res-1", "course-1", "off-1", "2023春", `{张三,李四}`, "MATH101", "高等数学").
			AddRow("link-2", "res-1", "course-2", nil, nil, nil, "PHY100", "大学物理"))

	resource, err := repo.FindByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"开课老师:李四", "重点推荐"}, []string(resource.Tags))
	require.Len(t, resource.CourseLinks, 2)

	first := resource.CourseLinks[0]
	require.NotNil(t, first.Offering)
	assert.Equal(t, "2023春", first.Offering.Term)
	assert.Equal(t, models.InstructorList{"张三", "李四"}, first.Offering.Instructor)
	assert.Equal(t, "高等数学", first.Offering.Course.Name)
	assert.Equal(t, "MATH101", first.Offering.Course.Code)

	assert.Nil(t, resource.CourseLinks[1].Offering)
	assert.Equal(t, "course-2", *resource.CourseLinks[1].CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM resources r WHERE r.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResourceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.deleted_at IS NULL AND (LOWER(r.title) LIKE $1 OR LOWER(r.description) LIKE $1) AND r.type = $2 AND $3 = ANY(r.tags) AND EXISTS")+".*"+regexp.QuoteMeta("ORDER BY r.title ASC LIMIT 10 OFFSET 10")).
		WithArgs("%linear%", models.ResourceTypeFile, "重点推荐", "course-1").
		WillReturnRows(sqlmock.NewRows(resourceRowColumns).
			AddRow("res-2", "Linear notes", "linear-notes", "", "FILE", nil, "resources/res-2/a.pdf", "application/pdf", 1024, `{}`, 0, "user-1", now, now, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM resources r WHERE r.deleted_at IS NULL")).
		WithArgs("%linear%", models.ResourceTypeFile, "重点推荐", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rc.resource_id = ANY($1)")).
		WithArgs(pq.Array([]string{"res-2"})).
		WillReturnRows(sqlmock.NewRows(linkRowColumns))

	resources, total, err := repo.List(context.Background(), models.ResourceFilter{
		Search:    "Linear",
		Type:      models.ResourceTypeFile,
		Tag:       "重点推荐",
		CourseID:  "course-1",
		Page:      2,
		PageSize:  10,
		SortBy:    "title",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, resources, 1)
	assert.NotNil(t, resources[0].CourseLinks)
	assert.Empty(t, resources[0].CourseLinks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryCreateWritesLinksInTransaction(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	courseID := "course-1"
	offeringID := "off-1"
	resource := &models.Resource{
		Title:       "Week 1 slides",
		Slug:        "week-1-slides",
		Type:        models.ResourceTypeLink,
		Tags:        pq.StringArray{"开课学期:2024秋"},
		UploadedBy:  "user-1",
		CourseLinks: []models.CourseLink{{CourseID: &courseID, OfferingID: &offeringID}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resources")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resource_courses (id, resource_id, course_id, offering_id, position) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), &courseID, &offeringID, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), resource))
	assert.NotEmpty(t, resource.ID)
	assert.Equal(t, resource.ID, resource.CourseLinks[0].ResourceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryUpdateRollsBackWhenMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET title = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Resource{ID: "gone", Title: "x"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("res-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "res-1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryListForExportPages(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY r.title ASC, r.id ASC LIMIT $1 OFFSET $2")).
		WithArgs(50, 100, "course-1").
		WillReturnRows(sqlmock.NewRows(resourceRowColumns).
			AddRow("res-9", "习题答案", "xi-ti-da-an", "", "NOTE", nil, nil, nil, 0, `{开课学期:2024秋}`, 0, "user-1", now, now, nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rc.resource_id = ANY($1)")).
		WithArgs(pq.Array([]string{"res-9"})).
		WillReturnRows(sqlmock.NewRows(linkRowColumns))

	resources, err := repo.ListForExport(context.Background(), "course-1", 50, 100)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "res-9", resources[0].ID)
	assert.Empty(t, resources[0].CourseLinks)
	require.NoError(t, mock.ExpectationsWereMet())
}

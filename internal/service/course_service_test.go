package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type courseRepoStub struct {
	courses   map[string]*models.Course
	offerings map[string][]models.Offering
	listCalls int
	createErr error
}

func newCourseRepoStub() *courseRepoStub {
	return &courseRepoStub{courses: map[string]*models.Course{}, offerings: map[string][]models.Offering{}}
}

func (r *courseRepoStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	r.listCalls++
	out := make([]models.Course, 0, len(r.courses))
	for _, course := range r.courses {
		out = append(out, *course)
	}
	return out, len(out), nil
}

func (r *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := r.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func (r *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	if r.createErr != nil {
		return r.createErr
	}
	course.ID = fmt.Sprintf("course-%d", len(r.courses)+1)
	r.courses[course.ID] = course
	return nil
}

func (r *courseRepoStub) ListOfferings(ctx context.Context, courseID string) ([]models.Offering, error) {
	return r.offerings[courseID], nil
}

func (r *courseRepoStub) CreateOffering(ctx context.Context, offering *models.Offering) error {
	offering.ID = fmt.Sprintf("off-%d", len(r.offerings[offering.CourseID])+1)
	r.offerings[offering.CourseID] = append(r.offerings[offering.CourseID], *offering)
	return nil
}

type summaryStub struct {
	summary *models.ReviewSummary
	err     error
}

func (s summaryStub) Summary(ctx context.Context, courseID string) (*models.ReviewSummary, error) {
	return s.summary, s.err
}

func TestCourseServiceListCachesAndCreateInvalidates(t *testing.T) {
	repo := newCourseRepoStub()
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewCourseService(repo, nil, cache, nil, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateCourseRequest{Code: " cs101 ", Name: "Intro", Credits: 3})
	require.NoError(t, err)

	items, pagination, hit, err := svc.List(ctx, dto.CourseQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)
	assert.Equal(t, "CS101", items[0].Code)
	assert.Equal(t, 20, pagination.PageSize)

	_, _, hit, err = svc.List(ctx, dto.CourseQuery{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.Create(ctx, dto.CreateCourseRequest{Code: "MA201", Name: "Calculus"})
	require.NoError(t, err)

	items, _, hit, err = svc.List(ctx, dto.CourseQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 2)
}

func TestCourseServiceCreateConflictAndValidation(t *testing.T) {
	repo := newCourseRepoStub()
	svc := NewCourseService(repo, nil, nil, nil, nil, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateCourseRequest{Code: "", Name: "x"})
	assertAppError(t, err, appErrors.ErrValidation)

	repo.createErr = fmt.Errorf("%w: courses_code_key", repository.ErrDuplicate)
	_, err = svc.Create(ctx, dto.CreateCourseRequest{Code: "CS101", Name: "x"})
	assertAppError(t, err, appErrors.ErrConflict)
}

func TestCourseServiceGetIncludesOfferingsAndSummary(t *testing.T) {
	repo := newCourseRepoStub()
	repo.courses["c1"] = &models.Course{ID: "c1", Code: "CS101", Name: "Intro"}
	svc := NewCourseService(repo, summaryStub{summary: &models.ReviewSummary{CourseID: "c1", ReviewCount: 2, AverageRating: 4.5}}, nil, nil, nil, 0)
	ctx := context.Background()

	offering, err := svc.CreateOffering(ctx, "c1", dto.CreateOfferingRequest{Term: "2024秋", Instructors: []string{" 张三 ", "张三", "李四"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"张三", "李四"}, []string(offering.Instructors))

	detail, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, detail.Offerings, 1)
	assert.Equal(t, 2, detail.Reviews.ReviewCount)
	assert.InDelta(t, 4.5, detail.Reviews.AverageRating, 0.001)

	_, err = svc.Get(ctx, "missing")
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = svc.CreateOffering(ctx, "missing", dto.CreateOfferingRequest{Term: "2024秋"})
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestCourseServiceGetToleratesSummaryFailure(t *testing.T) {
	repo := newCourseRepoStub()
	repo.courses["c1"] = &models.Course{ID: "c1"}
	svc := NewCourseService(repo, summaryStub{err: fmt.Errorf("boom")}, nil, nil, nil, 0)

	detail, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", detail.Reviews.CourseID)
	assert.Empty(t, detail.Offerings)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	ListOfferings(ctx context.Context, courseID string) ([]models.Offering, error)
	CreateOffering(ctx context.Context, offering *models.Offering) error
}

type reviewSummarizer interface {
	Summary(ctx context.Context, courseID string) (*models.ReviewSummary, error)
}

const courseListKeyPrefix = "courses:list:"

type courseListPage struct {
	Items      []models.Course   `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// CourseService exposes the course catalogue.
type CourseService struct {
	repo      courseStore
	reviews   reviewSummarizer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseStore, reviews reviewSummarizer, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, reviews: reviews, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns a page of courses, cached per query.
func (s *CourseService) List(ctx context.Context, query dto.CourseQuery) ([]models.Course, *models.Pagination, bool, error) {
	filter := models.CourseFilter{
		Search:     strings.TrimSpace(query.Search),
		Department: strings.TrimSpace(query.Department),
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	key := courseListKey(filter)
	var cached courseListPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, &cached.Pagination, true, nil
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	page := courseListPage{
		Items:      courses,
		Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
	}
	s.cache.Set(ctx, key, page, s.cacheTTL)
	return page.Items, &page.Pagination, false, nil
}

// Get returns a course with its offerings and rating summary.
func (s *CourseService) Get(ctx context.Context, id string) (*dto.CourseDetail, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	offerings, err := s.repo.ListOfferings(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	if offerings == nil {
		offerings = []models.Offering{}
	}
	detail := &dto.CourseDetail{Course: *course, Offerings: offerings, Reviews: models.ReviewSummary{CourseID: id}}
	if s.reviews != nil {
		summary, err := s.reviews.Summary(ctx, id)
		if err != nil {
			s.logger.Warn("failed to load review summary", zap.String("course_id", id), zap.Error(err))
		} else if summary != nil {
			detail.Reviews = *summary
		}
	}
	return detail, nil
}

// ListOfferings returns the offerings of a course.
func (s *CourseService) ListOfferings(ctx context.Context, courseID string) ([]models.Offering, error) {
	if _, err := s.find(ctx, courseID); err != nil {
		return nil, err
	}
	offerings, err := s.repo.ListOfferings(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	if offerings == nil {
		offerings = []models.Offering{}
	}
	return offerings, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Code:       strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:       strings.TrimSpace(req.Name),
		Department: strings.TrimSpace(req.Department),
		Credits:    req.Credits,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.cache.Invalidate(ctx, nil, courseListKeyPrefix+"*")
	return course, nil
}

// CreateOffering adds a term offering to a course.
func (s *CourseService) CreateOffering(ctx context.Context, courseID string, req dto.CreateOfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if _, err := s.find(ctx, courseID); err != nil {
		return nil, err
	}
	offering := &models.Offering{
		CourseID:    courseID,
		Term:        strings.TrimSpace(req.Term),
		Instructors: uniqueTrimmed(req.Instructors),
	}
	if err := s.repo.CreateOffering(ctx, offering); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "offering already exists for term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}
	return offering, nil
}

func (s *CourseService) find(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func courseListKey(filter models.CourseFilter) string {
	return fmt.Sprintf("%s%s|%s|%d|%d|%s|%s", courseListKeyPrefix,
		strings.ToLower(filter.Search), filter.Department, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}

// uniqueTrimmed drops blanks and duplicates, keeping first-seen order.
func uniqueTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type reviewStore interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	FindByID(ctx context.Context, id string) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, courseID string) (*models.ReviewSummary, error)
}

// ReviewService handles course ratings.
type ReviewService struct {
	repo      reviewStore
	courses   offeringLookup
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewStore, courses offeringLookup, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	validate.RegisterValidation("rating", func(fl validator.FieldLevel) bool { //nolint:errcheck
		rating := fl.Field().Int()
		return rating >= 1 && rating <= 5
	})
	return &ReviewService{repo: repo, courses: courses, audit: audit, validator: validate, logger: logger}
}

// List returns a page of reviews for a course plus its rating summary.
func (s *ReviewService) List(ctx context.Context, courseID string, page, pageSize int) ([]models.Review, *models.Pagination, *models.ReviewSummary, error) {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return nil, nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	reviews, total, err := s.repo.List(ctx, models.ReviewFilter{CourseID: courseID, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	summary, err := s.repo.Summary(ctx, courseID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise reviews")
	}
	return reviews, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, summary, nil
}

// Create records the caller's review. Each user may review a course once.
func (s *ReviewService) Create(ctx context.Context, courseID string, req dto.CreateReviewRequest, actor *models.JWTClaims) (*models.Review, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return nil, err
	}
	offeringID := trimmedPtr(req.OfferingID)
	if offeringID != nil {
		offering, err := s.courses.FindOffering(ctx, *offeringID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "offering not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
		}
		if offering.CourseID != courseID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "offering does not belong to course")
		}
	}

	review := &models.Review{
		CourseID:   courseID,
		OfferingID: offeringID,
		UserID:     actor.UserID,
		AuthorName: actor.DisplayName,
		Rating:     req.Rating,
		Content:    strings.TrimSpace(req.Content),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrAlreadyReviewed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	return review, nil
}

// Delete removes a review. Authors may delete their own; moderators any.
func (s *ReviewService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if review.UserID != actor.UserID && !actor.Role.CanModerate() {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionReviewDelete,
		Resource:   "review",
		ResourceID: &id,
		OldValues:  auditValues(map[string]interface{}{"courseId": review.CourseID, "rating": review.Rating, "author": review.UserID}),
	})
	return nil
}

func (s *ReviewService) findCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("priority", func(fl validator.FieldLevel) bool { //nolint:errcheck
		switch models.AnnouncementPriority(strings.ToUpper(fl.Field().String())) {
		case models.AnnouncementPriorityLow, models.AnnouncementPriorityNormal, models.AnnouncementPriorityHigh:
			return true
		default:
			return false
		}
	})
	return svc
}

// List returns active announcements with pagination. Admins may include expired ones.
func (s *AnnouncementService) List(ctx context.Context, page, pageSize int, includeExpired bool) ([]models.Announcement, *models.Pagination, error) {
	filter := models.AnnouncementFilter{IncludeExpired: includeExpired, Page: page, PageSize: pageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	if rows == nil {
		rows = []models.Announcement{}
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	return ann, nil
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req dto.AnnouncementRequest, createdBy string) (*models.Announcement, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	announcement := &models.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Priority:  normalizePriority(req.Priority),
		IsPinned:  req.IsPinned,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: createdBy,
	}
	if req.PublishedAt != nil {
		announcement.PublishedAt = *req.PublishedAt
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return announcement, nil
}

// Update modifies an existing announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req dto.AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Title = strings.TrimSpace(req.Title)
	existing.Content = req.Content
	existing.Priority = normalizePriority(req.Priority)
	existing.IsPinned = req.IsPinned
	if req.PublishedAt != nil {
		existing.PublishedAt = *req.PublishedAt
	}
	existing.ExpiresAt = req.ExpiresAt
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return existing, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) validate(req dto.AnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.ExpiresAt == nil {
		return nil
	}
	published := time.Now()
	if req.PublishedAt != nil {
		published = *req.PublishedAt
	}
	if !req.ExpiresAt.After(published) {
		return appErrors.Clone(appErrors.ErrValidation, "expiresAt must be after publishedAt")
	}
	return nil
}

func normalizePriority(priority models.AnnouncementPriority) models.AnnouncementPriority {
	if priority == "" {
		return models.AnnouncementPriorityNormal
	}
	return models.AnnouncementPriority(strings.ToUpper(string(priority)))
}

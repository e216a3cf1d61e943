package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/tagparser"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/slug"
	"github.com/noah-isme/coursehub-api/pkg/storage"
)

type resourceStore interface {
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error)
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, resource *models.Resource) error
	Update(ctx context.Context, resource *models.Resource) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	IncrementDownloads(ctx context.Context, id string) error
}

type offeringLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindOffering(ctx context.Context, id string) (*models.Offering, error)
}

type fileStorage interface {
	SaveStream(name string, r io.Reader, maxBytes int64) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type downloadSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.Claims, error)
}

const (
	resourceDetailKeyPrefix = "resources:detail:"
	maxSlugAttempts         = 20
)

// ResourceUpload carries an uploaded file stream and its metadata.
type ResourceUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// ResourceDownload bundles an opened resource file for streaming.
type ResourceDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// ResourceServiceConfig holds upload limits and URL settings.
type ResourceServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
	CacheTTL     time.Duration
}

// ResourceService manages shared course resources and derives their tag labels.
type ResourceService struct {
	repo      resourceStore
	courses   offeringLookup
	storage   fileStorage
	signer    downloadSigner
	parser    *tagparser.Parser
	cache     *CacheService
	metrics   *MetricsService
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ResourceServiceConfig
	mimeSet   map[string]struct{}
	now       func() time.Time
}

// ResourceServiceDeps groups the collaborators of ResourceService.
type ResourceServiceDeps struct {
	Repo      resourceStore
	Courses   offeringLookup
	Storage   fileStorage
	Signer    downloadSigner
	Parser    *tagparser.Parser
	Cache     *CacheService
	Metrics   *MetricsService
	Audit     auditLogger
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewResourceService constructs the service with defaults.
func NewResourceService(deps ResourceServiceDeps, cfg ResourceServiceConfig) *ResourceService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Parser == nil {
		deps.Parser = tagparser.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "application/zip", "image/png", "image/jpeg", "text/plain"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	deps.Validator.RegisterValidation("resourcetype", func(fl validator.FieldLevel) bool { //nolint:errcheck
		return models.ResourceType(strings.ToUpper(fl.Field().String())).Valid()
	})
	return &ResourceService{
		repo:      deps.Repo,
		courses:   deps.Courses,
		storage:   deps.Storage,
		signer:    deps.Signer,
		parser:    deps.Parser,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		validator: deps.Validator,
		logger:    deps.Logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
		now:       time.Now,
	}
}

// Labels derives the display tag buckets of a resource.
func (s *ResourceService) Labels(resource models.Resource) models.ResourceTagSet {
	return s.parser.Parse(resource)
}

// List returns a page of resources with their labels.
func (s *ResourceService) List(ctx context.Context, query dto.ResourceQuery) ([]dto.ResourceView, *models.Pagination, error) {
	filter := models.ResourceFilter{
		Search:     strings.TrimSpace(query.Search),
		CourseID:   query.CourseID,
		UploadedBy: query.UploadedBy,
		Tag:        strings.TrimSpace(query.Tag),
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	if query.Type != "" {
		filter.Type = models.ResourceType(strings.ToUpper(query.Type))
		if !filter.Type.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid resource type")
		}
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

	start := time.Now()
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	s.metrics.ObserveDBQuery("resources_list", time.Since(start))

	views := make([]dto.ResourceView, 0, len(rows))
	for _, row := range rows {
		views = append(views, s.view(row))
	}
	return views, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single resource view. cacheHit reports whether it was served from cache.
func (s *ResourceService) Get(ctx context.Context, id string) (view *dto.ResourceView, cacheHit bool, err error) {
	key := resourceDetailKeyPrefix + id
	var cached dto.ResourceView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	resource, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	result := s.view(*resource)
	s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	return &result, false, nil
}

// Create stores a link or note resource. Files go through Upload.
func (s *ResourceService) Create(ctx context.Context, req dto.CreateResourceRequest, actor *models.JWTClaims) (*dto.ResourceView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	resourceType := models.ResourceType(strings.ToUpper(string(req.Type)))
	if resourceType == models.ResourceTypeFile {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file resources must be uploaded")
	}
	if resourceType == models.ResourceTypeLink && (req.URL == nil || strings.TrimSpace(*req.URL) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "url is required for link resources")
	}

	links, err := s.resolveLinks(ctx, req.CourseLinks)
	if err != nil {
		return nil, err
	}
	resource := &models.Resource{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        resourceType,
		URL:         req.URL,
		Tags:        tagparser.Canonicalize(req.TagFields),
		CourseLinks: links,
		UploadedBy:  actor.UserID,
	}
	if resourceType == models.ResourceTypeNote {
		resource.URL = nil
	}
	return s.persist(ctx, resource, actor)
}

// Upload validates and stores a file, then creates a FILE resource for it.
func (s *ResourceService) Upload(ctx context.Context, meta dto.CreateResourceRequest, upload ResourceUpload, actor *models.JWTClaims) (*dto.ResourceView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	meta.Type = models.ResourceTypeFile
	meta.URL = nil
	if err := s.validator.Struct(meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "mime type not allowed")
	}

	links, err := s.resolveLinks(ctx, meta.CourseLinks)
	if err != nil {
		return nil, err
	}

	filename := s.generateFilename(upload.Filename, mimeType)
	written, err := s.storage.SaveStream(filename, upload.Content, s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store resource file")
	}

	title := strings.TrimSpace(meta.Title)
	resource := &models.Resource{
		Title:       title,
		Description: meta.Description,
		Type:        models.ResourceTypeFile,
		FilePath:    &filename,
		MimeType:    &mimeType,
		SizeBytes:   written,
		Tags:        tagparser.Canonicalize(meta.TagFields),
		CourseLinks: links,
		UploadedBy:  actor.UserID,
	}
	view, err := s.persist(ctx, resource, actor)
	if err != nil {
		if delErr := s.storage.Delete(filename); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("file", filename), zap.Error(delErr))
		}
		return nil, err
	}
	s.metrics.ObserveUpload(written)
	return view, nil
}

// Update replaces the editable fields of a resource. Owners and moderators may edit.
func (s *ResourceService) Update(ctx context.Context, id string, req dto.UpdateResourceRequest, actor *models.JWTClaims) (*dto.ResourceView, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureCanEdit(existing, actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	if existing.Type == models.ResourceTypeLink && (req.URL == nil || strings.TrimSpace(*req.URL) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "url is required for link resources")
	}
	links, err := s.resolveLinks(ctx, req.CourseLinks)
	if err != nil {
		return nil, err
	}

	before := s.view(*existing)
	title := strings.TrimSpace(req.Title)
	if title != existing.Title {
		slugValue, err := s.uniqueSlug(ctx, title, existing.ID)
		if err != nil {
			return nil, err
		}
		existing.Slug = slugValue
	}
	existing.Title = title
	existing.Description = req.Description
	if existing.Type == models.ResourceTypeLink {
		existing.URL = req.URL
	}
	existing.Tags = tagparser.Canonicalize(req.TagFields)
	existing.CourseLinks = links

	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource")
	}
	s.cache.Invalidate(ctx, []string{resourceDetailKeyPrefix + id})

	after := s.view(*existing)
	s.metrics.ObserveTagSet(after.Labels)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionResourceUpdate,
		Resource:   "resource",
		ResourceID: &existing.ID,
		OldValues:  auditValues(map[string]interface{}{"title": before.Title, "tags": before.Tags}),
		NewValues:  auditValues(map[string]interface{}{"title": after.Title, "tags": after.Tags}),
	})
	return &after, nil
}

// Delete soft deletes a resource. Only the uploader or an admin may delete.
func (s *ResourceService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.UserID != existing.UploadedBy && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.repo.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	s.cache.Invalidate(ctx, []string{resourceDetailKeyPrefix + id})
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionResourceDelete,
		Resource:   "resource",
		ResourceID: &id,
		OldValues:  auditValues(map[string]interface{}{"title": existing.Title}),
	})
	return nil
}

// DownloadURL signs a short-lived download link for a FILE resource.
func (s *ResourceService) DownloadURL(ctx context.Context, id string) (*dto.ResourceDownloadResponse, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	resource, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if resource.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resource has no file")
	}
	token, expiresAt, err := s.signer.Generate(resource.ID, *resource.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.ResourceDownloadResponse{
		DownloadURL: fmt.Sprintf("%s/resources/%s/download?token=%s", base, resource.ID, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Download validates the token and opens the resource file.
func (s *ResourceService) Download(ctx context.Context, id, token string) (*ResourceDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	resource, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download token expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	if resource.FilePath == nil || claims.Subject != resource.ID || claims.Path != *resource.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}

	file, err := s.storage.Open(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open resource file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read resource file")
	}

	if err := s.repo.IncrementDownloads(ctx, resource.ID); err != nil {
		s.logger.Warn("failed to increment download count", zap.String("resource_id", resource.ID), zap.Error(err))
	} else {
		s.cache.Invalidate(ctx, []string{resourceDetailKeyPrefix + resource.ID})
	}

	mimeType := "application/octet-stream"
	if resource.MimeType != nil {
		mimeType = *resource.MimeType
	}
	return &ResourceDownload{
		File:      file,
		Filename:  downloadFilename(resource.Title, claims.Path),
		MimeType:  mimeType,
		SizeBytes: info.Size(),
	}, nil
}

func (s *ResourceService) persist(ctx context.Context, resource *models.Resource, actor *models.JWTClaims) (*dto.ResourceView, error) {
	slugValue, err := s.uniqueSlug(ctx, resource.Title, "")
	if err != nil {
		return nil, err
	}
	resource.Slug = slugValue
	if err := s.repo.Create(ctx, resource); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}

	view := s.view(*resource)
	s.metrics.ObserveTagSet(view.Labels)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionResourceCreate,
		Resource:   "resource",
		ResourceID: &resource.ID,
		NewValues:  auditValues(map[string]interface{}{"title": resource.Title, "type": resource.Type, "tags": resource.Tags}),
	})
	return &view, nil
}

func (s *ResourceService) load(ctx context.Context, id string) (*models.Resource, error) {
	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if resource.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	return resource, nil
}

func (s *ResourceService) view(resource models.Resource) dto.ResourceView {
	if resource.Tags == nil {
		resource.Tags = []string{}
	}
	if resource.CourseLinks == nil {
		resource.CourseLinks = []models.CourseLink{}
	}
	return dto.ResourceView{Resource: resource, Labels: s.parser.Parse(resource)}
}

// resolveLinks checks every referenced course and offering exists and fills
// the offering view so labels can be derived before the links are reloaded.
func (s *ResourceService) resolveLinks(ctx context.Context, inputs []dto.CourseLinkInput) ([]models.CourseLink, error) {
	links := make([]models.CourseLink, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		courseID := trimmedPtr(input.CourseID)
		offeringID := trimmedPtr(input.OfferingID)
		if courseID == nil && offeringID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course link requires courseId or offeringId")
		}

		var offering *models.Offering
		if offeringID != nil {
			found, err := s.courses.FindOffering(ctx, *offeringID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrValidation, "offering not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
			}
			if courseID != nil && *courseID != found.CourseID {
				return nil, appErrors.Clone(appErrors.ErrValidation, "offering does not belong to course")
			}
			offering = found
			courseID = &found.CourseID
		}

		key := *courseID
		if offeringID != nil {
			key += "/" + *offeringID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		course, err := s.courses.FindByID(ctx, *courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}

		link := models.CourseLink{CourseID: courseID, OfferingID: offeringID}
		if offering != nil {
			link.Offering = &models.OfferingView{
				Term:       offering.Term,
				Instructor: models.InstructorList(offering.Instructors),
				Course:     &models.CourseRef{ID: course.ID, Code: course.Code, Name: course.Name},
			}
		}
		links = append(links, link)
	}
	return links, nil
}

func (s *ResourceService) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := slug.From(title)
	if base == "" {
		base = "resource"
	}
	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, fmt.Sprintf("%d", attempt))
	}
	return slug.WithSuffix(base, randomSuffix()), nil
}

func (s *ResourceService) generateFilename(original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = mimeExtension(mimeType)
	}
	if ext == "" {
		ext = ".bin"
	}
	now := s.now().UTC()
	return fmt.Sprintf("resources/%s/%d_%s%s", now.Format("2006/01"), now.Unix(), randomSuffix(), ext)
}

func ensureCanEdit(resource *models.Resource, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.UserID == resource.UploadedBy || actor.Role.CanModerate() {
		return nil
	}
	return appErrors.ErrForbidden
}

// detectMime sniffs the leading bytes of the upload. The client-declared type
// is only used to name an OOXML document, which sniffs as a zip archive.
func detectMime(upload ResourceUpload) (string, error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(upload.Content, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}

	sniffed := baseMediaType(http.DetectContentType(header[:n]))
	declared := baseMediaType(upload.MimeType)
	if sniffed == "application/zip" && strings.HasPrefix(declared, "application/vnd.openxmlformats-officedocument.") {
		return declared, nil
	}
	return sniffed, nil
}

func baseMediaType(value string) string {
	mediaType, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "application/zip":
		return ".zip"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "text/plain":
		return ".txt"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ".pptx"
	default:
		return ""
	}
}

func downloadFilename(title, path string) string {
	name := slug.From(title)
	if name == "" {
		return filepath.Base(path)
	}
	return name + filepath.Ext(path)
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

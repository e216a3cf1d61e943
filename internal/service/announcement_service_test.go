package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type announcementRepoStub struct {
	items  map[string]*models.Announcement
	filter models.AnnouncementFilter
}

func (r *announcementRepoStub) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	r.filter = filter
	return nil, 0, nil
}

func (r *announcementRepoStub) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	if item, ok := r.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (r *announcementRepoStub) Create(ctx context.Context, announcement *models.Announcement) error {
	announcement.ID = "ann-1"
	r.items[announcement.ID] = announcement
	return nil
}

func (r *announcementRepoStub) Update(ctx context.Context, announcement *models.Announcement) error {
	r.items[announcement.ID] = announcement
	return nil
}

func (r *announcementRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func TestAnnouncementServiceCreateDefaultsPriority(t *testing.T) {
	repo := &announcementRepoStub{items: map[string]*models.Announcement{}}
	svc := NewAnnouncementService(repo, nil, nil)

	ann, err := svc.Create(context.Background(), dto.AnnouncementRequest{Title: " Exam week ", Content: "Library hours extended"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementPriorityNormal, ann.Priority)
	assert.Equal(t, "Exam week", ann.Title)
	assert.Equal(t, "admin-1", ann.CreatedBy)

	updated, err := svc.Update(context.Background(), ann.ID, dto.AnnouncementRequest{Title: "Exam week", Content: "x", Priority: "high", IsPinned: true})
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementPriorityHigh, updated.Priority)
	assert.True(t, updated.IsPinned)
}

func TestAnnouncementServiceValidation(t *testing.T) {
	repo := &announcementRepoStub{items: map[string]*models.Announcement{}}
	svc := NewAnnouncementService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.AnnouncementRequest{Title: "t", Content: "c", Priority: "URGENT"}, "admin")
	assertAppError(t, err, appErrors.ErrValidation)

	published := time.Now().Add(time.Hour)
	expires := published.Add(-time.Minute)
	_, err = svc.Create(ctx, dto.AnnouncementRequest{Title: "t", Content: "c", PublishedAt: &published, ExpiresAt: &expires}, "admin")
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.Update(ctx, "missing", dto.AnnouncementRequest{Title: "t", Content: "c"})
	assertAppError(t, err, appErrors.ErrNotFound)

	err = svc.Delete(ctx, "missing")
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestAnnouncementServiceListDefaults(t *testing.T) {
	repo := &announcementRepoStub{items: map[string]*models.Announcement{}}
	svc := NewAnnouncementService(repo, nil, nil)

	rows, pagination, err := svc.List(context.Background(), 0, 0, false)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.False(t, repo.filter.IncludeExpired)
}

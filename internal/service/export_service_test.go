package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/jobs"
	"github.com/noah-isme/coursehub-api/pkg/storage"
)

type exportSourceStub struct {
	resources []models.Resource
	courseID  string
	offsets   []int
	err       error
}

func (s *exportSourceStub) ListForExport(_ context.Context, courseID string, limit, offset int) ([]models.Resource, error) {
	s.courseID = courseID
	s.offsets = append(s.offsets, offset)
	if s.err != nil {
		return nil, s.err
	}
	if offset >= len(s.resources) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.resources) {
		end = len(s.resources)
	}
	return s.resources[offset:end], nil
}

type exportJobRepoStub struct {
	mu   sync.Mutex
	jobs map[string]*models.ExportJob
	seq  int
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(_ context.Context, job *models.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	job.ID = fmt.Sprintf("job-%d", r.seq)
	job.CreatedAt = time.Now().UTC()
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *exportJobRepoStub) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	stored := *job
	return &stored, nil
}

func (r *exportJobRepoStub) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListByStatus(_ context.Context, _ int, statuses ...models.ExportStatus) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		for _, status := range statuses {
			if job.Status == status {
				out = append(out, *job)
			}
		}
	}
	return out, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, *models.ExportJob) (*ExportResult, error) {
	return nil, errors.New("disk full")
}

func exportResources() []models.Resource {
	courseID := testCourseID
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	return []models.Resource{
		{
			ID: "r1", Title: "期中复习", Type: models.ResourceTypeNote, DownloadCount: 3, CreatedAt: created,
			Tags: []string{"开课学期:2024秋", "课程代码:CS201", "开课老师:张三", "复习"},
			CourseLinks: []models.CourseLink{{CourseID: &courseID, Offering: &models.OfferingView{
				Course: &models.CourseRef{ID: testCourseID, Name: "数据结构", Code: "CS201"},
			}}},
		},
		{
			ID: "r2", Title: "Lab 1", Type: models.ResourceTypeLink, CreatedAt: created,
			Tags: []string{"Term: 2023春"},
		},
	}
}

func newExportServiceForTest(t *testing.T, source exportSource) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	return newExportServiceWithConfig(t, source, nil, ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour})
}

func newExportServiceWithConfig(t *testing.T, source exportSource, metrics *MetricsService, cfg ExportConfig) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(source, store, signer, nil, metrics, cfg, zap.NewNop())
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	source := &exportSourceStub{resources: exportResources()}
	svc, _ := newExportServiceForTest(t, source)
	job := &models.ExportJob{ID: "job-1", Params: models.ExportJobParams{Format: models.ExportFormatCSV, CourseID: testCourseID}}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, testCourseID, source.courseID)
	assert.Equal(t, 2, result.Rows)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.True(t, strings.HasSuffix(result.URL, result.Token))

	claims, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", claims.Subject)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "期中复习", records[1][0])
	assert.Equal(t, "2024秋", records[1][2])
	assert.Equal(t, "CS201", records[1][4])
	assert.Equal(t, "张三", records[1][5])
	assert.Equal(t, "复习", records[1][6])
	assert.Equal(t, "3", records[1][7])
}

func TestExportServiceGenerateFiltersTermAndRendersPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &exportSourceStub{resources: exportResources()})
	job := &models.ExportJob{ID: "job-2", Params: models.ExportJobParams{Format: models.ExportFormatPDF, Term: "2023春"}}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))
	assert.Equal(t, "application/pdf", svc.ContentType(models.ExportFormatPDF))
}

func TestExportServiceTermFilterPagesPastFirstBatch(t *testing.T) {
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	var resources []models.Resource
	for i := 0; i < 5; i++ {
		resources = append(resources, models.Resource{ID: fmt.Sprintf("old-%d", i), Title: fmt.Sprintf("旧资料 %d", i), CreatedAt: created, Tags: []string{"开课学期:2023春"}})
	}
	resources = append(resources,
		models.Resource{ID: "new-1", Title: "新资料 1", CreatedAt: created, Tags: []string{"开课学期:2024秋"}},
		models.Resource{ID: "new-2", Title: "新资料 2", CreatedAt: created, Tags: []string{"开课学期:2024秋"}},
	)
	source := &exportSourceStub{resources: resources}
	metrics := NewMetricsService()
	svc, _ := newExportServiceWithConfig(t, source, metrics, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour, MaxRows: 2})

	job := &models.ExportJob{ID: "job-term", Params: models.ExportJobParams{Format: models.ExportFormatCSV, Term: "2024秋"}}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.False(t, result.Truncated)
	assert.Equal(t, []int{0, 2, 4, 6}, source.offsets)
	assert.EqualValues(t, 4, metrics.Snapshot().DBQueryCount)

	source.offsets = nil
	result, err = svc.Generate(context.Background(), &models.ExportJob{ID: "job-all", Params: models.ExportJobParams{Format: models.ExportFormatCSV}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.True(t, result.Truncated)
	assert.Equal(t, []int{0, 2}, source.offsets)
}

func TestExportServiceGenerateErrors(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &exportSourceStub{err: errors.New("db down")})

	_, err := svc.Generate(context.Background(), &models.ExportJob{ID: "x", Params: models.ExportJobParams{Format: "xlsx"}})
	require.Error(t, err)

	_, err = svc.Generate(context.Background(), &models.ExportJob{ID: "x", Params: models.ExportJobParams{Format: models.ExportFormatCSV}})
	require.Error(t, err)

	_, err = svc.Generate(context.Background(), nil)
	require.Error(t, err)
}

func TestExportPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{}
	exporter, _ := newExportServiceForTest(t, &exportSourceStub{resources: exportResources()})
	jobsSvc := NewExportJobService(repo, queue, exporter, NewMetricsService(), nil, zap.NewNop(), ExportJobConfig{ResultTTL: time.Hour})
	worker := NewExportWorker(repo, exporter, nil, zap.NewNop())

	created, err := jobsSvc.CreateJob(ctx, dto.ExportRequest{Format: models.ExportFormatCSV}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, created.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, ExportJobType, queue.jobs[0].Type)

	_, err = jobsSvc.ResolveDownload(ctx, "bogus")
	assertAppError(t, err, appErrors.ErrForbidden)

	require.NoError(t, worker.Handle(ctx, queue.jobs[0]))

	status, err := jobsSvc.GetStatus(ctx, created.ID, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)

	_, err = jobsSvc.GetStatus(ctx, created.ID, &models.JWTClaims{UserID: "u2", Role: models.RoleUser})
	assertAppError(t, err, appErrors.ErrForbidden)
	_, err = jobsSvc.GetStatus(ctx, created.ID, &models.JWTClaims{UserID: "mod", Role: models.RoleModerator})
	require.NoError(t, err)

	download, err := jobsSvc.ResolveDownload(ctx, extractToken(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv; charset=utf-8", download.ContentType)
	assert.True(t, strings.HasPrefix(download.Filename, "resources_all_na_"))
}

func TestExportJobServiceCreateValidationAndEnqueueFailure(t *testing.T) {
	ctx := context.Background()
	repo := newExportJobRepoStub()
	exporter, _ := newExportServiceForTest(t, &exportSourceStub{})

	svc := NewExportJobService(repo, &dispatcherStub{}, exporter, nil, nil, zap.NewNop(), ExportJobConfig{})
	_, err := svc.CreateJob(ctx, dto.ExportRequest{Format: "xlsx"}, "u1")
	assertAppError(t, err, appErrors.ErrValidation)
	_, err = svc.CreateJob(ctx, dto.ExportRequest{Format: models.ExportFormatCSV, CourseID: "not-a-uuid"}, "u1")
	assertAppError(t, err, appErrors.ErrValidation)

	svc = NewExportJobService(repo, &dispatcherStub{err: jobs.ErrQueueStopped}, exporter, nil, nil, zap.NewNop(), ExportJobConfig{})
	_, err = svc.CreateJob(ctx, dto.ExportRequest{Format: models.ExportFormatPDF}, "u1")
	assertAppError(t, err, appErrors.ErrInternal)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestExportWorkerRequeuesThenExhausts(t *testing.T) {
	ctx := context.Background()
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{}
	exporter, _ := newExportServiceForTest(t, &exportSourceStub{})
	svc := NewExportJobService(repo, queue, exporter, nil, nil, zap.NewNop(), ExportJobConfig{})
	worker := NewExportWorker(repo, failingGenerator{}, nil, zap.NewNop())

	created, err := svc.CreateJob(ctx, dto.ExportRequest{Format: models.ExportFormatCSV}, "u1")
	require.NoError(t, err)

	err = worker.Handle(ctx, queue.jobs[0])
	require.Error(t, err)
	job, _ := repo.GetByID(ctx, created.ID)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "disk full", *job.ErrorMessage)

	svc.HandleExhausted(ctx, queue.jobs[0], err)
	job, _ = repo.GetByID(ctx, created.ID)
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	assert.Equal(t, 100, job.Progress)

	require.NoError(t, worker.Handle(ctx, queue.jobs[0]))
	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: "missing"}))
}

func TestExportJobServiceRecoverAndCleanup(t *testing.T) {
	ctx := context.Background()
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{}
	exporter, _ := newExportServiceForTest(t, &exportSourceStub{resources: exportResources()})
	svc := NewExportJobService(repo, queue, exporter, nil, nil, zap.NewNop(), ExportJobConfig{ResultTTL: time.Minute})

	finishedJob := &models.ExportJob{Params: models.ExportJobParams{Format: models.ExportFormatCSV}, Status: models.ExportStatusQueued}
	require.NoError(t, repo.Create(ctx, finishedJob))
	result, err := exporter.Generate(ctx, finishedJob)
	require.NoError(t, err)
	old := time.Now().Add(-time.Hour)
	repo.jobs[finishedJob.ID].Status = models.ExportStatusFinished
	repo.jobs[finishedJob.ID].ResultURL = &result.URL
	repo.jobs[finishedJob.ID].FinishedAt = &old

	require.NoError(t, repo.Create(ctx, &models.ExportJob{Status: models.ExportStatusProcessing}))

	svc.RecoverPendingJobs(ctx)
	require.Len(t, queue.jobs, 1)

	svc.cleanupExpired(ctx)
	_, err = exporter.Open(result.RelativePath)
	assert.Error(t, err)
}

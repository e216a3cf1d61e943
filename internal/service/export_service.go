package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/tagparser"
	"github.com/noah-isme/coursehub-api/pkg/export"
	"github.com/noah-isme/coursehub-api/pkg/storage"
)

type exportSource interface {
	ListForExport(ctx context.Context, courseID string, limit, offset int) ([]models.Resource, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

var exportHeaders = []string{"Title", "Type", "Term", "Course", "Course Code", "Instructors", "Tags", "Downloads", "Created At"}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	// MaxRows caps the rows of one export. The catalogue is read in MaxRows
	// batches so a term filter still sees resources past the first batch.
	MaxRows int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	Rows         int
	Truncated    bool
	ExpiresAt    time.Time
}

// ExportService renders the resource catalogue and persists the document.
type ExportService struct {
	resources exportSource
	storage   exportStorage
	renderers map[models.ExportFormat]export.Renderer
	parser    *tagparser.Parser
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(resources exportSource, store exportStorage, signer *storage.SignedURLSigner, parser *tagparser.Parser, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = tagparser.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &ExportService{
		resources: resources,
		storage:   store,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		parser:  parser,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// ContentType reports the MIME type served for a format.
func (s *ExportService) ContentType(format models.ExportFormat) string {
	if renderer, ok := s.renderers[format]; ok {
		return renderer.ContentType()
	}
	return "application/octet-stream"
}

// Generate builds the dataset for job, renders it and stores a signed result.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	dataset, truncated, err := s.buildDataset(ctx, job.Params)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	if truncated {
		s.logger.Sugar().Warnw("export truncated", "job_id", job.ID, "max_rows", s.cfg.MaxRows)
	}
	s.logger.Sugar().Infow("export generated", "job_id", job.ID, "format", job.Params.Format, "rows", len(dataset.Rows), "path", relPath)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		Rows:         len(dataset.Rows),
		Truncated:    truncated,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Claims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, falling back to ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// buildDataset collects up to MaxRows rows. truncated reports that matching
// resources beyond the cap were left out.
func (s *ExportService) buildDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, bool, error) {
	term := strings.TrimSpace(params.Term)
	limit := s.cfg.MaxRows
	rows := make([]map[string]string, 0)
	truncated := false

	for offset := 0; ; offset += limit {
		start := time.Now()
		batch, err := s.resources.ListForExport(ctx, params.CourseID, limit, offset)
		if err != nil {
			return export.Dataset{}, false, err
		}
		s.metrics.ObserveDBQuery("resources_export", time.Since(start))

		for _, resource := range batch {
			labels := s.parser.Parse(resource)
			if term != "" && !containsFold(labels.Term, term) {
				continue
			}
			if len(rows) == limit {
				truncated = true
				break
			}
			rows = append(rows, exportRow(resource, labels))
		}
		if truncated || len(batch) < limit {
			break
		}
	}

	title := "Resource Catalogue"
	if term != "" {
		title = fmt.Sprintf("%s %s", title, term)
	}
	return export.Dataset{Title: title, Headers: exportHeaders, Rows: rows}, truncated, nil
}

func exportRow(resource models.Resource, labels models.ResourceTagSet) map[string]string {
	return map[string]string{
		"Title":       resource.Title,
		"Type":        string(resource.Type),
		"Term":        strings.Join(labels.Term, ", "),
		"Course":      strings.Join(labels.CourseName, ", "),
		"Course Code": strings.Join(labels.CourseCode, ", "),
		"Instructors": strings.Join(labels.Instructors, ", "),
		"Tags":        strings.Join(labels.Others, ", "),
		"Downloads":   strconv.Itoa(resource.DownloadCount),
		"Created At":  resource.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *ExportService) buildFilename(job *models.ExportJob, ext string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.CourseID != "" {
		scope = job.Params.CourseID
	}
	return fmt.Sprintf("resources_%s_%s_%s.%s", sanitizeFilename(scope), sanitizeFilename(job.Params.Term), timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

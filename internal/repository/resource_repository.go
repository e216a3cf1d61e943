package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/coursehub-api/internal/models"
)

const resourceColumns = `r.id, r.title, r.slug, r.description, r.type, r.url, r.file_path, r.mime_type, r.size_bytes, r.tags, r.download_count, r.uploaded_by, r.created_at, r.updated_at, r.deleted_at`

var resourceSorts = map[string]string{
	"title":     "r.title",
	"createdAt": "r.created_at",
	"updatedAt": "r.updated_at",
	"downloads": "r.download_count",
}

// ResourceRepository persists resources and their course links.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns a page of live resources together with the total match count.
// Course links are hydrated for every returned row.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error) {
	where := []string{"r.deleted_at IS NULL"}
	args := []interface{}{}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(r.title) LIKE $%d OR LOWER(r.description) LIKE $%d)", len(args), len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("r.type = $%d", len(args)))
	}
	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		where = append(where, fmt.Sprintf("r.uploaded_by = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(r.tags)", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		where = append(where, fmt.Sprintf(`EXISTS (SELECT 1 FROM resource_courses rc LEFT JOIN course_offerings o ON o.id = rc.offering_id
WHERE rc.resource_id = r.id AND COALESCE(rc.course_id, o.course_id) = $%d)`, len(args)))
	}

	whereClause := strings.Join(where, " AND ")
	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	order := orderBy(filter.SortBy, filter.SortOrder, resourceSorts, "r.created_at")

	query := fmt.Sprintf("SELECT %s FROM resources r WHERE %s ORDER BY %s LIMIT %d OFFSET %d", resourceColumns, whereClause, order, size, offset)
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list resources: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM resources r WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}

	if err := r.LoadCourseLinks(ctx, resources); err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

// FindByID returns a live resource with its course links.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	query := fmt.Sprintf("SELECT %s FROM resources r WHERE r.id = $1 AND r.deleted_at IS NULL", resourceColumns)
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}

	single := []models.Resource{resource}
	if err := r.LoadCourseLinks(ctx, single); err != nil {
		return nil, err
	}
	return &single[0], nil
}

// SlugExists reports whether slug is taken by a resource other than excludeID.
func (r *ResourceRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM resources WHERE slug = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, slug, excludeID); err != nil {
		return false, fmt.Errorf("check resource slug: %w", err)
	}
	return exists, nil
}

// LoadCourseLinks fills CourseLinks on each resource with a single query.
// Links pointing at an offering carry an OfferingView with the offering term,
// its instructors and the owning course.
func (r *ResourceRepository) LoadCourseLinks(ctx context.Context, resources []models.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	ids := make([]string, len(resources))
	index := make(map[string]int, len(resources))
	for i := range resources {
		ids[i] = resources[i].ID
		index[resources[i].ID] = i
		resources[i].CourseLinks = []models.CourseLink{}
	}

	const query = `SELECT rc.id, rc.resource_id, COALESCE(rc.course_id, o.course_id) AS course_id, rc.offering_id,
o.term, o.instructors, c.code AS course_code, c.name AS course_name
FROM resource_courses rc
LEFT JOIN course_offerings o ON o.id = rc.offering_id
LEFT JOIN courses c ON c.id = COALESCE(rc.course_id, o.course_id)
WHERE rc.resource_id = ANY($1)
ORDER BY rc.resource_id, rc.position`
	var rows []models.CourseLinkRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load resource course links: %w", err)
	}

	for _, row := range rows {
		i, ok := index[row.ResourceID]
		if !ok {
			continue
		}
		resources[i].CourseLinks = append(resources[i].CourseLinks, linkFromRow(row))
	}
	return nil
}

func linkFromRow(row models.CourseLinkRow) models.CourseLink {
	link := models.CourseLink{
		ID:         row.ID,
		ResourceID: row.ResourceID,
		CourseID:   row.CourseID,
		OfferingID: row.OfferingID,
	}
	if row.OfferingID == nil {
		return link
	}
	view := &models.OfferingView{Instructor: row.Instructors}
	if row.Term != nil {
		view.Term = *row.Term
	}
	if row.CourseName != nil || row.CourseCode != nil {
		ref := &models.CourseRef{}
		if row.CourseID != nil {
			ref.ID = *row.CourseID
		}
		if row.CourseCode != nil {
			ref.Code = *row.CourseCode
		}
		if row.CourseName != nil {
			ref.Name = *row.CourseName
		}
		view.Course = ref
	}
	link.Offering = view
	return link
}

// Create inserts the resource and its course links in one transaction.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now
	if resource.Tags == nil {
		resource.Tags = pq.StringArray{}
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO resources (id, title, slug, description, type, url, file_path, mime_type, size_bytes, tags, download_count, uploaded_by, created_at, updated_at)
VALUES (:id, :title, :slug, :description, :type, :url, :file_path, :mime_type, :size_bytes, :tags, :download_count, :uploaded_by, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, resource); err != nil {
			return fmt.Errorf("create resource: %w", err)
		}
		return insertLinks(ctx, tx, resource)
	})
}

// Update rewrites the mutable columns and replaces the course links.
func (r *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	resource.UpdatedAt = time.Now().UTC()
	if resource.Tags == nil {
		resource.Tags = pq.StringArray{}
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		const query = `UPDATE resources SET title = :title, slug = :slug, description = :description, url = :url, tags = :tags, updated_at = :updated_at
WHERE id = :id AND deleted_at IS NULL`
		res, err := tx.NamedExecContext(ctx, query, resource)
		if err != nil {
			return fmt.Errorf("update resource: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_courses WHERE resource_id = $1`, resource.ID); err != nil {
			return fmt.Errorf("clear resource course links: %w", err)
		}
		return insertLinks(ctx, tx, resource)
	})
}

func insertLinks(ctx context.Context, tx *sqlx.Tx, resource *models.Resource) error {
	const query = `INSERT INTO resource_courses (id, resource_id, course_id, offering_id, position) VALUES ($1, $2, $3, $4, $5)`
	for i := range resource.CourseLinks {
		link := &resource.CourseLinks[i]
		if link.ID == "" {
			link.ID = uuid.NewString()
		}
		link.ResourceID = resource.ID
		if _, err := tx.ExecContext(ctx, query, link.ID, resource.ID, link.CourseID, link.OfferingID, i); err != nil {
			return fmt.Errorf("create resource course link: %w", err)
		}
	}
	return nil
}

// SoftDelete stamps deleted_at; already deleted rows yield sql.ErrNoRows.
func (r *ResourceRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE resources SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementDownloads bumps the download counter.
func (r *ResourceRepository) IncrementDownloads(ctx context.Context, id string) error {
	const query = `UPDATE resources SET download_count = download_count + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment resource downloads: %w", err)
	}
	return nil
}

// ListForExport returns one page of live resources, optionally scoped to a
// course, ordered by title.
func (r *ResourceRepository) ListForExport(ctx context.Context, courseID string, limit, offset int) ([]models.Resource, error) {
	if limit <= 0 {
		limit = 5000
	}
	if offset < 0 {
		offset = 0
	}
	args := []interface{}{limit, offset}
	where := "r.deleted_at IS NULL"
	if courseID != "" {
		args = append(args, courseID)
		where += ` AND EXISTS (SELECT 1 FROM resource_courses rc LEFT JOIN course_offerings o ON o.id = rc.offering_id
WHERE rc.resource_id = r.id AND COALESCE(rc.course_id, o.course_id) = $3)`
	}
	query := fmt.Sprintf("SELECT %s FROM resources r WHERE %s ORDER BY r.title ASC, r.id ASC LIMIT $1 OFFSET $2", resourceColumns, where)

	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources for export: %w", err)
	}
	if err := r.LoadCourseLinks(ctx, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *ResourceRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type resourceService interface {
	List(ctx context.Context, query dto.ResourceQuery) ([]dto.ResourceView, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.ResourceView, bool, error)
	Create(ctx context.Context, req dto.CreateResourceRequest, actor *models.JWTClaims) (*dto.ResourceView, error)
	Upload(ctx context.Context, meta dto.CreateResourceRequest, upload service.ResourceUpload, actor *models.JWTClaims) (*dto.ResourceView, error)
	Update(ctx context.Context, id string, req dto.UpdateResourceRequest, actor *models.JWTClaims) (*dto.ResourceView, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	DownloadURL(ctx context.Context, id string) (*dto.ResourceDownloadResponse, error)
	Download(ctx context.Context, id, token string) (*service.ResourceDownload, error)
}

// ResourceHandler exposes shared course resources.
type ResourceHandler struct {
	service resourceService
}

// NewResourceHandler constructs the handler.
func NewResourceHandler(svc resourceService) *ResourceHandler {
	return &ResourceHandler{service: svc}
}

// List godoc
// @Summary List resources
// @Description Paginated resources, each with its derived tag labels
// @Tags Resources
// @Produce json
// @Param search query string false "Title search"
// @Param type query string false "FILE, LINK or NOTE"
// @Param courseId query string false "Course ID"
// @Param uploadedBy query string false "Uploader ID"
// @Param tag query string false "Tag substring"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	var query dto.ResourceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get resource
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/{id} [get]
func (h *ResourceHandler) Get(c *gin.Context) {
	view, hit, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil, withCacheMeta(c, hit))
}

// Create godoc
// @Summary Create link or note resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param payload body dto.CreateResourceRequest true "Resource"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /resources [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateResourceRequest
	if !bindJSON(c, &req, "invalid resource payload") {
		return
	}
	view, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Upload godoc
// @Summary Upload file resource
// @Description Multipart form with a "file" part and a "metadata" JSON part
// @Tags Resources
// @Accept mpfd
// @Produce json
// @Param file formData file true "File"
// @Param metadata formData string true "CreateResourceRequest JSON"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/upload [post]
func (h *ResourceHandler) Upload(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	var meta dto.CreateResourceRequest
	if raw := strings.TrimSpace(c.PostForm("metadata")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid metadata"))
			return
		}
	}
	if meta.Title == "" {
		meta.Title = c.PostForm("title")
	}
	meta.Type = models.ResourceTypeFile

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	view, err := h.service.Upload(c.Request.Context(), meta, service.ResourceUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Update godoc
// @Summary Update resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param id path string true "Resource ID"
// @Param payload body dto.UpdateResourceRequest true "Resource"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/{id} [put]
func (h *ResourceHandler) Update(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateResourceRequest
	if !bindJSON(c, &req, "invalid resource payload") {
		return
	}
	view, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Delete godoc
// @Summary Delete resource
// @Tags Resources
// @Param id path string true "Resource ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Issue a signed download URL
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/{id}/download-url [get]
func (h *ResourceHandler) DownloadURL(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	res, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download resource file
// @Tags Resources
// @Produce octet-stream
// @Param id path string true "Resource ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /resources/{id}/download [get]
func (h *ResourceHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download token required"))
		return
	}
	download, err := h.service.Download(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	size := download.SizeBytes
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, download.MimeType, download.File, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": download.Filename}),
		"Cache-Control":       "private, no-store",
	})
}

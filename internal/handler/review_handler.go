package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type reviewService interface {
	List(ctx context.Context, courseID string, page, pageSize int) ([]models.Review, *models.Pagination, *models.ReviewSummary, error)
	Create(ctx context.Context, courseID string, req dto.CreateReviewRequest, actor *models.JWTClaims) (*models.Review, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// ReviewHandler exposes course reviews.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(svc reviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// List godoc
// @Summary List reviews of a course
// @Description Paginated reviews; meta.summary carries review count and average rating
// @Tags Reviews
// @Produce json
// @Param id path string true "Course ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	reviews, pagination, summary, err := h.service.List(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination, map[string]interface{}{"summary": summary})
}

// Create godoc
// @Summary Review a course
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	claims, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	review, err := h.service.Create(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Delete godoc
// @Summary Delete review
// @Tags Reviews
// @Param id path string true "Review ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
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

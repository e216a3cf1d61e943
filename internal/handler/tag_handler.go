package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/tagparser"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

// TagHandler exposes the tag parser for clients that render labels themselves.
type TagHandler struct {
	parser *tagparser.Parser
}

// NewTagHandler constructs the handler; a nil parser uses the strict defaults.
func NewTagHandler(parser *tagparser.Parser) *TagHandler {
	if parser == nil {
		parser = tagparser.New()
	}
	return &TagHandler{parser: parser}
}

// Parse godoc
// @Summary Derive tag labels for a resource
// @Description Classifies tags and course links into term, course name, course code, instructors and other tags
// @Tags Tags
// @Accept json
// @Produce json
// @Param payload body models.Resource true "Resource"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tags/parse [post]
func (h *TagHandler) Parse(c *gin.Context) {
	var resource models.Resource
	if !bindJSON(c, &resource, "invalid resource payload") {
		return
	}
	response.JSON(c, http.StatusOK, h.parser.Parse(resource), nil)
}

// Canonicalize godoc
// @Summary Build canonical tags from structured fields
// @Tags Tags
// @Accept json
// @Produce json
// @Param payload body models.TagFields true "Structured tag fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tags/canonicalize [post]
func (h *TagHandler) Canonicalize(c *gin.Context) {
	var fields models.TagFields
	if !bindJSON(c, &fields, "invalid tag fields") {
		return
	}
	response.JSON(c, http.StatusOK, tagparser.Canonicalize(fields), nil)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/handlers/dto"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/pagination"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

const contentPerPage = 30

type ContentHandler struct {
	content *services.ContentService
	log     *zap.Logger
}

func NewContentHandler(content *services.ContentService, log *zap.Logger) *ContentHandler {
	return &ContentHandler{content: content, log: log}
}

func (h *ContentHandler) ListContent(c *gin.Context) {
	page, perPage := pageParams(c, contentPerPage)

	p, err := h.content.List(c.Request.Context(), middleware.OptionalUser(c), page, perPage, pageURL("/v1/content"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pagination.Map(p, func(m models.Content) dto.ContentResponse {
		return dto.NewContentResponse(&m)
	}))
}

func (h *ContentHandler) GetContent(c *gin.Context) {
	content, err := h.content.Get(c.Request.Context(), middleware.OptionalUser(c), c.Param("public_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewContentResponse(content))
}

func (h *ContentHandler) CreateContent(c *gin.Context) {
	var in services.ContentInput
	if err := decodeJSON(c, &in, true); err != nil {
		respondError(c, h.log, err)
		return
	}

	content, err := h.content.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Location", dto.ContentPath(content.PublicID))
	c.JSON(http.StatusCreated, dto.NewContentResponse(content))
}

func (h *ContentHandler) UpdateContent(c *gin.Context) {
	var in services.ContentInput
	if err := decodeJSON(c, &in, true); err != nil {
		respondError(c, h.log, err)
		return
	}

	content, err := h.content.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("public_id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewContentResponse(content))
}

func (h *ContentHandler) DeleteContent(c *gin.Context) {
	if err := h.content.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("public_id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

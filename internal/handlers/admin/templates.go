package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/templates"
)

// ListTemplates
// @Summary List email templates
// @Tags admin
// @Produce json
// @Param category query string false "Filter by category"
// @Success 200
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/templates [get]
func (h *Handler) ListTemplates(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	list, err := h.Templates.List(ctx, c.Query("category"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list templates")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "templates": list})
}

// GetTemplate
// @Summary Get an email template
// @Tags admin
// @Produce json
// @Param id path string true "Template id"
// @Success 200
// @Failure 404
// @Security BearerAuth
// @Router /api/admin/templates/{id} [get]
func (h *Handler) GetTemplate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	t, err := h.Templates.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "template": t})
}

// CreateTemplate
// @Summary Create an email template
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.CreateTemplateRequest true "Template"
// @Success 200
// @Failure 400
// @Failure 409
// @Security BearerAuth
// @Router /api/admin/templates [post]
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Name, subject and content are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	t, err := h.Templates.Create(ctx, req, currentSession(c).UserID)
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "template": t})
}

// UpdateTemplate
// @Summary Update an email template
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Template id"
// @Param request body models.UpdateTemplateRequest true "Fields to update"
// @Success 200
// @Failure 404
// @Failure 409
// @Security BearerAuth
// @Router /api/admin/templates/{id} [put]
func (h *Handler) UpdateTemplate(c *gin.Context) {
	var req models.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid template payload"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	t, err := h.Templates.Update(ctx, c.Param("id"), req)
	if err != nil {
		h.respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "template": t})
}

// DeleteTemplate
// @Summary Delete an email template
// @Tags admin
// @Produce json
// @Param id path string true "Template id"
// @Success 200
// @Failure 404
// @Security BearerAuth
// @Router /api/admin/templates/{id} [delete]
func (h *Handler) DeleteTemplate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.Templates.Delete(ctx, c.Param("id")); err != nil {
		h.respondTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Template deleted"})
}

func (h *Handler) respondTemplateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Template not found"})
	case errors.Is(err, templates.ErrTemplateNameTaken):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "A template with this name already exists"})
	default:
		h.log.Error().Err(err).Msg("template operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Template operation failed"})
	}
}

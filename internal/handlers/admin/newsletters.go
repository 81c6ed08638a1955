package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/newsletters"
)

// Broadcasts can take a while with large audiences; give them more room
// than the regular request timeout.
const broadcastTimeout = 5 * time.Minute

const defaultListLimit = 50

// SendNewsletter
// @Summary Send or schedule a newsletter
// @Description Broadcasts a newsletter to the selected audience, or schedules it for later.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.SendNewsletterRequest true "Newsletter"
// @Success 200
// @Failure 400
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/newsletters [post]
func (h *Handler) SendNewsletter(c *gin.Context) {
	var req models.SendNewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Subject, content and a valid audience are required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), broadcastTimeout)
	defer cancel()

	report, err := h.Newsletters.Send(ctx, req, currentSession(c).UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to send newsletter")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send newsletter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// ListNewsletters
// @Summary List newsletters
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum rows returned"
// @Success 200
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/newsletters [get]
func (h *Handler) ListNewsletters(c *gin.Context) {
	limit := defaultListLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	list, err := h.Newsletters.List(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list newsletters")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list newsletters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "newsletters": list})
}

// GetNewsletter
// @Summary Get a newsletter
// @Tags admin
// @Produce json
// @Param id path string true "Newsletter id"
// @Success 200
// @Failure 404
// @Security BearerAuth
// @Router /api/admin/newsletters/{id} [get]
func (h *Handler) GetNewsletter(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	n, err := h.Newsletters.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, newsletters.ErrNewsletterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Newsletter not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load newsletter")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load newsletter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "newsletter": n})
}

// DashboardStats
// @Summary Dashboard statistics
// @Description Subscriber counts, open and click rates, and the weekly activity series.
// @Tags admin
// @Produce json
// @Success 200
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/dashboard [get]
func (h *Handler) DashboardStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	stats, err := h.Dashboard.Stats(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to compute dashboard stats")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

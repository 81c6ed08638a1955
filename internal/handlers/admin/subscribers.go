package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zntb/automated-newsletter-service/internal/models"
)

// ListSubscribers
// @Summary List subscribers
// @Description Lists subscribers with optional search and status filter.
// @Tags admin
// @Produce json
// @Param search query string false "Match against email or name"
// @Param status query string false "Filter by status" Enums(PENDING, CONFIRMED, UNSUBSCRIBED, BOUNCED)
// @Success 200
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/subscribers [get]
func (h *Handler) ListSubscribers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	subs, err := h.Subscribers.List(ctx, c.Query("search"), c.Query("status"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list subscribers")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list subscribers"})
		return
	}

	items := make([]models.SubscriberListItem, 0, len(subs))
	for _, s := range subs {
		item := models.SubscriberListItem{
			ID:         s.ID,
			Email:      s.Email,
			Name:       s.Name,
			Status:     s.Status,
			JoinedDate: s.CreatedAt.Format("2006-01-02"),
		}
		if s.LastOpenedAt != nil {
			item.LastOpened = s.LastOpenedAt.Format("2006-01-02")
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "subscribers": items})
}

// AddSubscriber
// @Summary Add a subscriber
// @Description Creates a PENDING subscriber without sending a confirmation email.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.AddSubscriberRequest true "Subscriber details"
// @Success 200
// @Failure 400
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/subscribers [post]
func (h *Handler) AddSubscriber(c *gin.Context) {
	var req models.AddSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A valid email address is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	sub, err := h.Subscribers.UpsertPending(ctx, req.Email, req.Name, nil)
	if err != nil {
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to add subscriber")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to add subscriber"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": sub.ID, "email": sub.Email})
}

// DeleteSubscribers
// @Summary Delete subscribers
// @Description Permanently removes the given subscribers and their preferences.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.DeleteSubscribersRequest true "Subscriber ids"
// @Success 200
// @Failure 400
// @Failure 500
// @Security BearerAuth
// @Router /api/admin/subscribers [delete]
func (h *Handler) DeleteSubscribers(c *gin.Context) {
	var req models.DeleteSubscribersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "At least one subscriber id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	deleted, err := h.Subscribers.DeleteByIDs(ctx, req.IDs)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to delete subscribers")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete subscribers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

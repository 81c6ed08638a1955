package preferences

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/subscriptions"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
)

const timeoutDuration = 10 * time.Second

// manageLinkMessage is returned whether or not the address is subscribed,
// so the endpoint cannot be used to probe the subscriber list.
const manageLinkMessage = "If this address is subscribed, a preferences link has been sent to it."

type preferenceManager interface {
	RequestManageLink(ctx context.Context, email string) error
	GetPreferences(ctx context.Context, email, token string) (models.PreferencesView, error)
	UpdatePreferences(ctx context.Context, req models.UpdatePreferencesRequest) error
	Unsubscribe(ctx context.Context, req models.UnsubscribeRequest) error
}

type Handler struct {
	Service preferenceManager
	log     zerolog.Logger
}

func NewHandler(svc preferenceManager, logger zerolog.Logger) *Handler {
	return &Handler{
		Service: svc,
		log:     logger.With().Str("component", "PreferencesHandler").Logger(),
	}
}

// ManageLink
// @Summary Request a preferences link
// @Description Emails a short-lived link for managing subscription preferences.
// @Tags preferences
// @Accept json
// @Produce json
// @Param request body models.ManageLinkRequest true "Subscriber email"
// @Success 200
// @Failure 400
// @Router /api/preferences/manage-link [post]
func (h *Handler) ManageLink(c *gin.Context) {
	var req models.ManageLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A valid email address is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.Service.RequestManageLink(ctx, req.Email); err != nil {
		h.log.Error().Err(err).Msg("manage link request failed")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": manageLinkMessage})
}

// GetPreferences
// @Summary Get current preferences
// @Description Validates the manage token without consuming it and returns the stored preferences.
// @Tags preferences
// @Produce json
// @Param email query string true "Subscriber email"
// @Param token query string true "Manage token"
// @Success 200
// @Failure 400
// @Failure 500
// @Router /api/preferences [get]
func (h *Handler) GetPreferences(c *gin.Context) {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email and token are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	view, err := h.Service.GetPreferences(ctx, email, token)
	if err != nil {
		h.respondError(c, err, "Failed to load preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": view})
}

// UpdatePreferences
// @Summary Update preferences
// @Description Consumes the manage token and applies a partial preferences update.
// @Tags preferences
// @Accept json
// @Produce json
// @Param request body models.UpdatePreferencesRequest true "Fields to update"
// @Success 200
// @Failure 400
// @Failure 500
// @Router /api/preferences [put]
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email and token are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.Service.UpdatePreferences(ctx, req); err != nil {
		if errors.Is(err, subscriptions.ErrNoCategories) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "At least one category is required unless emails are paused",
			})
			return
		}
		h.respondError(c, err, "Failed to update preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Your preferences have been updated."})
}

// Unsubscribe
// @Summary Unsubscribe
// @Description Consumes the token and removes the subscriber from future mailings.
// @Tags preferences
// @Accept json
// @Produce json
// @Param request body models.UnsubscribeRequest true "Unsubscribe details"
// @Success 200
// @Failure 400
// @Failure 500
// @Router /api/unsubscribe [post]
func (h *Handler) Unsubscribe(c *gin.Context) {
	var req models.UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email and token are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.Service.Unsubscribe(ctx, req); err != nil {
		h.respondError(c, err, "Failed to unsubscribe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You have been unsubscribed."})
}

func (h *Handler) respondError(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, tokens.ErrTokenExpired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "This link has expired. Please request a new one."})
	case errors.Is(err, tokens.ErrTokenNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "This link is invalid or was already used."})
	case errors.Is(err, subscriptions.ErrSubscriberNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "This link is invalid or was already used."})
	default:
		h.log.Error().Err(err).Msg(generic)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": generic})
	}
}

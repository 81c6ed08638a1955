package subscription

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/subscriptions"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
)

const timeoutDuration = 10 * time.Second

type subscriber interface {
	Subscribe(ctx context.Context, req models.SubscribeRequest) (models.SubscribeResult, error)
	Confirm(ctx context.Context, token string) (models.ConfirmResult, error)
}

type Handler struct {
	Service subscriber
	BaseURL string
	log     zerolog.Logger
}

func NewHandler(svc subscriber, baseURL string, logger zerolog.Logger) *Handler {
	return &Handler{
		Service: svc,
		BaseURL: baseURL,
		log:     logger.With().Str("component", "SubscriptionHandler").Logger(),
	}
}

// Subscribe
// @Summary Subscribe to the newsletter
// @Description Registers a subscriber with delivery preferences and emails a confirmation link.
// @Tags subscription
// @Accept json
// @Produce json
// @Param request body models.SubscribeRequest true "Subscription details"
// @Success 200
// @Failure 400
// @Failure 500
// @Router /api/subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Valid email, frequency and at least one category are required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	result, err := h.Service.Subscribe(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, subscriptions.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid email address"})
		case errors.Is(err, subscriptions.ErrNoCategories):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "At least one category is required"})
		default:
			h.log.Error().Err(err).Str("email", req.Email).Msg("subscribe failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to subscribe"})
		}
		return
	}

	resp := gin.H{
		"success":  true,
		"message":  result.Message,
		"email":    result.Email,
		"isUpdate": result.Updated,
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	c.JSON(http.StatusOK, resp)
}

// Confirm
// @Summary Confirm a subscription
// @Description Redeems the emailed confirmation token and redirects to the confirmation page.
// @Tags subscription
// @Param token query string true "Confirmation token"
// @Success 302
// @Router /api/confirm [get]
func (h *Handler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.Redirect(http.StatusFound, h.BaseURL+"/confirmation?error=missing-token")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	result, err := h.Service.Confirm(ctx, token)
	if err != nil {
		h.log.Warn().Err(err).Msg("confirmation failed")
		c.Redirect(http.StatusFound, h.BaseURL+"/confirmation?error="+confirmErrorParam(err))
		return
	}

	c.Redirect(http.StatusFound,
		h.BaseURL+"/confirmation?confirmed=true&email="+url.QueryEscape(result.Email)+
			"&name="+url.QueryEscape(result.Name))
}

func confirmErrorParam(err error) string {
	switch {
	case errors.Is(err, tokens.ErrTokenExpired):
		return url.QueryEscape("This confirmation link has expired")
	case errors.Is(err, tokens.ErrTokenNotFound):
		return url.QueryEscape("This confirmation link is invalid or was already used")
	default:
		return "confirmation-failed"
	}
}

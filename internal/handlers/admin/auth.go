package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/auth"
)

// Login
// @Summary Admin login
// @Description Verifies admin credentials and issues a session token.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200
// @Failure 401
// @Failure 500
// @Router /api/admin/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email and password are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	token, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password"})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// RequireAdmin rejects requests without a valid admin bearer token and
// stores the parsed session in the gin context.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "error": "Authentication required"})
			return
		}

		session, err := h.Auth.ParseSession(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "error": "Invalid or expired session"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func currentSession(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(auth.Session); ok {
			return s
		}
	}
	return auth.Session{}
}

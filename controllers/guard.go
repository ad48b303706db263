package controllers

import (
	"errors"
	"net/http"

	"github.com/kyleolivo/viet-food/logger"
	"github.com/kyleolivo/viet-food/models"
	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
)

// guard runs the shared front half of every mutating pipeline: lock check,
// rate limit, moderation. Each rejection writes its one audit row and the
// HTTP response, so handlers just bail out.
type guard struct {
	security  *services.SecurityService
	audit     *services.AuditService
	moderator services.Moderator
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// authorize runs the lock and rate-limit gates and maps the typed
// rejections to their responses. Returns false once the response has been
// written.
func (g guard) authorize(c *gin.Context, userID, action string) bool {
	err := g.security.Authorize(userID, action, requestMeta(c))
	if err == nil {
		return true
	}

	var locked *services.AccountLockedError
	var limited *services.RateLimitedError
	switch {
	case errors.As(err, &locked):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account locked"})
	case errors.As(err, &limited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limit exceeded",
			"resetAt": limited.ResetAt,
		})
	default:
		g.fail(c, userID, action, "Security check failed", err)
	}
	return false
}

func (g guard) moderateText(c *gin.Context, userID, action, text string) bool {
	result, err := g.moderator.ModerateText(c.Request.Context(), text)
	if err != nil {
		g.fail(c, userID, action, "Moderation failed", err)
		return false
	}
	if !result.Appropriate {
		g.security.RegisterBlocked(userID, action, "content", "Inappropriate text: "+result.Reason, requestMeta(c))
		g.rejectContent(c, &services.ContentRejectedError{Reason: result.Reason})
		return false
	}
	return true
}

func (g guard) moderateImage(c *gin.Context, userID, action string, data []byte, contentType string) bool {
	result, err := g.moderator.ModerateImage(c.Request.Context(), data, contentType)
	if err != nil {
		g.fail(c, userID, action, "Moderation failed", err)
		return false
	}
	if !result.Appropriate {
		g.security.RegisterBlocked(userID, action, "content", "Inappropriate image: "+result.Reason, requestMeta(c))
		g.rejectContent(c, &services.ContentRejectedError{Reason: result.Reason})
		return false
	}
	return true
}

func (g guard) rejectContent(c *gin.Context, err *services.ContentRejectedError) {
	c.JSON(http.StatusForbidden, gin.H{"error": "Content rejected", "reason": err.Reason})
}

// fail is the unexpected-error exit: one failure audit row, a logged error
// and a 500 body.
func (g guard) fail(c *gin.Context, userID, action, msg string, err error) {
	logger.Error(msg, "user_id", userID, "action", action, "error", err)
	if auditErr := g.audit.Log(services.AuditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: "api",
		Details:      err.Error(),
		Status:       models.AuditStatusFailure,
		Meta:         requestMeta(c),
	}); auditErr != nil {
		logger.Error("failed to audit failure", "user_id", userID, "error", auditErr)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/kyleolivo/viet-food/logger"
	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
)

// UploadFunc stores an image blob and returns its public URL.
type UploadFunc func(ctx context.Context, data []byte, contentType, filenamePrefix string) (string, error)

type IdentifyController struct {
	guard
	vision services.VisionIdentifier
	upload UploadFunc
}

func NewIdentifyController(security *services.SecurityService, audit *services.AuditService, moderator services.Moderator, vision services.VisionIdentifier, upload UploadFunc) *IdentifyController {
	return &IdentifyController{
		guard:  guard{security: security, audit: audit, moderator: moderator},
		vision: vision,
		upload: upload,
	}
}

// POST /api/identify with multipart {image, context?}.
//
// Pipeline: lock check, rate limit, text moderation of the optional context,
// image moderation, object storage upload, vision call, best-effort parse.
// Every exit path writes exactly one audit row.
func (i *IdentifyController) Identify(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	const action = "identify"
	if !i.authorize(c, userID, action) {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}
	defer file.Close()

	userContext := c.PostForm("context")
	if userContext != "" && !i.moderateText(c, userID, action, userContext) {
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if !i.moderateImage(c, userID, action, data, contentType) {
		return
	}

	imageURL, err := i.upload(c.Request.Context(), data, contentType, userID)
	if err != nil {
		i.fail(c, userID, action, "Failed to store image", err)
		return
	}

	ident, err := i.vision.Identify(c.Request.Context(), data, contentType, userContext)
	if err != nil {
		i.fail(c, userID, action, "Failed to identify food", err)
		return
	}

	if err := i.audit.Log(services.AuditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: "food",
		Details:      ident.Name,
		Meta:         requestMeta(c),
	}); err != nil {
		logger.Error("failed to audit identification", "user_id", userID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        ident.Name,
		"description": ident.Description,
		"ingredients": ident.Ingredients,
		"imageUrl":    imageURL,
	})
}

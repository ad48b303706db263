package controllers

import (
	"net/http"

	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	security *services.SecurityService
}

func NewAdminController(security *services.SecurityService) *AdminController {
	return &AdminController{security: security}
}

type LockInput struct {
	Reason string `json:"reason" binding:"required"`
}

// POST /api/admin/users/:id/lock
func (a *AdminController) LockUser(c *gin.Context) {
	actor, ok := currentUserID(c)
	if !ok {
		return
	}

	var input LockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reason is required"})
		return
	}

	target := c.Param("id")
	if err := a.security.Lock(target, input.Reason, actor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to lock user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": target, "locked": true})
}

// POST /api/admin/users/:id/unlock
func (a *AdminController) UnlockUser(c *gin.Context) {
	actor, ok := currentUserID(c)
	if !ok {
		return
	}

	target := c.Param("id")
	if err := a.security.Unlock(target, actor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlock user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": target, "locked": false})
}

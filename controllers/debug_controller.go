package controllers

import (
	"net/http"

	"github.com/kyleolivo/viet-food/config"
	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
)

type DebugController struct {
	audit *services.AuditService
}

func NewDebugController(audit *services.AuditService) *DebugController {
	return &DebugController{audit: audit}
}

// GET /api/debug/logs — the caller's last 20 audit rows.
func (d *DebugController) Logs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	logs, err := d.audit.RecentLogs(userID, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GET /api/init-db — idempotently creates or upgrades all tables.
func InitDB(c *gin.Context) {
	if err := config.Migrate(config.DB); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize database"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Database initialized successfully",
		"tables":  []string{"users", "food_entries", "audit_logs", "user_status"},
	})
}

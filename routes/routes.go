package routes

import (
	"github.com/kyleolivo/viet-food/controllers"
	"github.com/kyleolivo/viet-food/middlewares"
	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the external collaborators the router needs; tests swap in
// fakes here.
type Deps struct {
	DB        *gorm.DB
	Moderator services.Moderator
	Vision    services.VisionIdentifier
	Upload    controllers.UploadFunc
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()

	audit := services.NewAuditService(d.DB)
	alerts := services.NewAlertService(audit)
	security := services.NewSecurityService(d.DB, audit, alerts, services.DefaultRateLimits())
	foods := services.NewFoodService(d.DB)

	foodCtl := controllers.NewFoodController(foods, security, audit, d.Moderator)
	identifyCtl := controllers.NewIdentifyController(security, audit, d.Moderator, d.Vision, d.Upload)
	adminCtl := controllers.NewAdminController(security)
	debugCtl := controllers.NewDebugController(audit)

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	api := r.Group("/api")
	api.GET("/init-db", controllers.InitDB)

	protected := api.Group("")
	protected.Use(middlewares.AuthMiddleware())
	{
		protected.GET("/foods", foodCtl.List)
		protected.POST("/foods", foodCtl.Create)
		protected.DELETE("/foods/:id", foodCtl.Delete)
		protected.POST("/identify", identifyCtl.Identify)
		protected.GET("/debug/logs", debugCtl.Logs)

		admin := protected.Group("/admin")
		admin.Use(middlewares.AdminOnly())
		{
			admin.POST("/users/:id/lock", adminCtl.LockUser)
			admin.POST("/users/:id/unlock", adminCtl.UnlockUser)
		}
	}

	return r
}
